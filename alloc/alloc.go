// File: alloc/alloc.go
// Author: momentics
// License: Apache-2.0
//
// The default api.Allocator: device arena plus host pool, with tier
// copies implemented as plain memory copies over the arena's process
// addresses.

package alloc

import (
	"unsafe"

	"github.com/momentics/spillmem/api"
)

// Allocator combines the device arena and the host pool behind the
// api.Allocator contract.
type Allocator struct {
	arena *DeviceArena
	hosts *HostPool
}

// New creates an allocator over a fresh device arena of deviceCapacity
// bytes.
func New(deviceCapacity int64) (*Allocator, error) {
	arena, err := NewDeviceArena(deviceCapacity)
	if err != nil {
		return nil, err
	}
	return &Allocator{arena: arena, hosts: NewHostPool()}, nil
}

// Device returns the underlying arena, e.g. to install a reclaim
// callback.
func (a *Allocator) Device() *DeviceArena { return a.arena }

// AllocDevice allocates size bytes of device memory.
func (a *Allocator) AllocDevice(size int64) (api.DeviceMemory, error) {
	addr, err := a.arena.Alloc(size)
	if err != nil {
		return nil, err
	}
	return &deviceMemory{arena: a.arena, addr: addr, size: size}, nil
}

// AllocHost allocates size bytes of host memory from the pool.
func (a *Allocator) AllocHost(size int64) (api.HostMemory, error) {
	if size < 0 {
		return nil, api.ErrInvalidArgument
	}
	return &hostMemory{pool: a.hosts, buf: a.hosts.Get(size)}, nil
}

// CopyDeviceToHost copies len(dst) bytes from device address src.
func (a *Allocator) CopyDeviceToHost(dst []byte, src uintptr) {
	copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(src)), len(dst)))
}

// CopyHostToDevice copies len(src) bytes to device address dst.
func (a *Allocator) CopyHostToDevice(dst uintptr, src []byte) {
	copy(unsafe.Slice((*byte)(unsafe.Pointer(dst)), len(src)), src)
}

// Close releases the arena region.
func (a *Allocator) Close() { a.arena.Close() }

var _ api.Allocator = (*Allocator)(nil)

// deviceMemory is an owned arena range.
type deviceMemory struct {
	arena *DeviceArena
	addr  uintptr
	size  int64
}

func (d *deviceMemory) Addr() uintptr { return d.addr }
func (d *deviceMemory) Size() int64   { return d.size }
func (d *deviceMemory) Free()         { d.arena.Free(d.addr) }

// hostMemory is an owned pooled host block.
type hostMemory struct {
	pool *HostPool
	buf  []byte
}

func (h *hostMemory) Bytes() []byte { return h.buf }
func (h *hostMemory) Free()         { h.pool.Put(h.buf) }

// regionAddr returns the address of the first byte of a region.
func regionAddr(region []byte) uintptr {
	if len(region) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&region[0]))
}
