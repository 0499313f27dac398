// Author: momentics
// SPDX-License-Identifier: Apache-2.0

package fake

import (
	"sync"
	"unsafe"

	"github.com/momentics/spillmem/api"
)

// Allocator is a fake api.Allocator backed by heap slices. Device
// addresses are the slices' real addresses, so tier copies behave like
// the production allocator. Allocation failures can be injected.
type Allocator struct {
	mu sync.Mutex

	// FailDeviceAfter fails device allocations once this many have
	// succeeded; negative means never fail.
	FailDeviceAfter int

	deviceAllocs int
	deviceFrees  int
	hostAllocs   int
	hostFrees    int

	// live keeps device backing slices reachable while allocated.
	live map[uintptr][]byte
}

// NewAllocator creates a fake allocator that never fails.
func NewAllocator() *Allocator {
	return &Allocator{
		FailDeviceAfter: -1,
		live:            make(map[uintptr][]byte),
	}
}

// AllocDevice allocates a heap-backed "device" region.
func (a *Allocator) AllocDevice(size int64) (api.DeviceMemory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailDeviceAfter >= 0 && a.deviceAllocs >= a.FailDeviceAfter {
		return nil, api.ErrOutOfMemory
	}
	a.deviceAllocs++
	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	a.live[addr] = buf
	return &fakeDeviceMemory{alloc: a, addr: addr, size: size}, nil
}

// AllocHost allocates a plain byte slice.
func (a *Allocator) AllocHost(size int64) (api.HostMemory, error) {
	a.mu.Lock()
	a.hostAllocs++
	a.mu.Unlock()
	return &fakeHostMemory{alloc: a, buf: make([]byte, size)}, nil
}

// CopyDeviceToHost copies from the fake device address.
func (a *Allocator) CopyDeviceToHost(dst []byte, src uintptr) {
	copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(src)), len(dst)))
}

// CopyHostToDevice copies to the fake device address.
func (a *Allocator) CopyHostToDevice(dst uintptr, src []byte) {
	copy(unsafe.Slice((*byte)(unsafe.Pointer(dst)), len(src)), src)
}

// DeviceAllocs returns the number of successful device allocations.
func (a *Allocator) DeviceAllocs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deviceAllocs
}

// DeviceFrees returns the number of device frees.
func (a *Allocator) DeviceFrees() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deviceFrees
}

// DeviceInUse returns the number of live device allocations.
func (a *Allocator) DeviceInUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

func (a *Allocator) freeDevice(addr uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[addr]; ok {
		delete(a.live, addr)
		a.deviceFrees++
	}
}

var _ api.Allocator = (*Allocator)(nil)

type fakeDeviceMemory struct {
	alloc *Allocator
	addr  uintptr
	size  int64
}

func (d *fakeDeviceMemory) Addr() uintptr { return d.addr }
func (d *fakeDeviceMemory) Size() int64   { return d.size }
func (d *fakeDeviceMemory) Free()         { d.alloc.freeDevice(d.addr) }

type fakeHostMemory struct {
	alloc *Allocator
	buf   []byte
}

func (h *fakeHostMemory) Bytes() []byte { return h.buf }
func (h *fakeHostMemory) Free() {
	h.alloc.mu.Lock()
	h.alloc.hostFrees++
	h.alloc.mu.Unlock()
}
