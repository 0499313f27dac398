// File: alloc/device_arena.go
// Author: momentics
// License: Apache-2.0
//
// Fixed-capacity device arena with first-fit allocation, free-block
// coalescing and an optional reclaim callback for spill-on-demand.

package alloc

import (
	"sync"

	"github.com/momentics/spillmem/api"
)

// allocAlign is the allocation granularity. Matches common accelerator
// allocator alignment.
const allocAlign = 256

// span is a [off, off+size) range within the arena region.
type span struct {
	off  int64
	size int64
}

// DeviceArena allocates contiguous ranges out of one pre-mapped
// region. Exhaustion invokes the reclaim callback once, giving the
// spill manager a chance to free device memory before the allocation
// fails with ErrOutOfMemory.
type DeviceArena struct {
	mu     sync.Mutex
	region []byte
	mapped bool
	base   uintptr
	cap    int64
	used   int64
	free   []span           // sorted by offset, coalesced
	sizes  map[uintptr]int64 // live allocation sizes

	reclaim func(need int64) bool
}

// NewDeviceArena maps a region of capacity bytes.
func NewDeviceArena(capacity int64) (*DeviceArena, error) {
	if capacity <= 0 {
		return nil, api.ErrInvalidArgument
	}
	capacity = alignUp(capacity)
	region, mapped := mapRegion(capacity)
	a := &DeviceArena{
		region: region,
		mapped: mapped,
		base:   regionAddr(region),
		cap:    capacity,
		free:   []span{{off: 0, size: capacity}},
		sizes:  make(map[uintptr]int64),
	}
	return a, nil
}

// SetReclaim installs the out-of-memory callback, typically the spill
// manager's HandleOutOfMemory.
func (a *DeviceArena) SetReclaim(fn func(need int64) bool) {
	a.mu.Lock()
	a.reclaim = fn
	a.mu.Unlock()
}

// Alloc returns the address of a fresh range of at least size bytes.
func (a *DeviceArena) Alloc(size int64) (uintptr, error) {
	if size < 0 {
		return 0, api.ErrInvalidArgument
	}
	need := alignUp(size)
	if need == 0 {
		need = allocAlign
	}
	if addr, ok := a.tryAlloc(need); ok {
		return addr, nil
	}
	a.mu.Lock()
	reclaim := a.reclaim
	a.mu.Unlock()
	// Reclaim runs without the arena lock: spilling frees device
	// allocations, which re-enters Free.
	if reclaim != nil && reclaim(need) {
		if addr, ok := a.tryAlloc(need); ok {
			return addr, nil
		}
	}
	return 0, api.ErrOutOfMemory
}

// tryAlloc claims the first free span that fits.
func (a *DeviceArena) tryAlloc(need int64) (uintptr, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, s := range a.free {
		if s.size < need {
			continue
		}
		addr := a.base + uintptr(s.off)
		if s.size == need {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = span{off: s.off + need, size: s.size - need}
		}
		a.sizes[addr] = need
		a.used += need
		return addr, true
	}
	return 0, false
}

// Free returns a previously allocated range to the arena. Unknown
// addresses are ignored.
func (a *DeviceArena) Free(addr uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	size, ok := a.sizes[addr]
	if !ok {
		return
	}
	delete(a.sizes, addr)
	a.used -= size
	a.insertFree(span{off: int64(addr - a.base), size: size})
}

// insertFree adds a span keeping the free list sorted and coalesced.
func (a *DeviceArena) insertFree(s span) {
	i := 0
	for i < len(a.free) && a.free[i].off < s.off {
		i++
	}
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s
	// Coalesce with the next span, then the previous.
	if i+1 < len(a.free) && a.free[i].off+a.free[i].size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == a.free[i].off {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

// InUse returns the currently allocated byte count.
func (a *DeviceArena) InUse() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// Capacity returns the arena's total size.
func (a *DeviceArena) Capacity() int64 { return a.cap }

// Close unmaps the arena region. All allocations must be freed first.
func (a *DeviceArena) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.region != nil {
		unmapRegion(a.region, a.mapped)
		a.region = nil
	}
}

func alignUp(n int64) int64 {
	return (n + allocAlign - 1) &^ (allocAlign - 1)
}
