// File: buffer/spillable.go
// Author: momentics
// License: Apache-2.0
//
// Base buffer state, construction dispatch and lifecycle.

package buffer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/spillmem/api"
)

// Options carries the collaborators a buffer depends on. Allocator is
// required; a nil Manager disables spill tracking (the buffer is never
// registered and budget enforcement is skipped).
type Options struct {
	Allocator api.Allocator
	Manager   api.Manager
}

// viewRef tags a Buffer as a view of base at a fixed absolute offset.
// View chains are flattened at derivation time, so base is always the
// ultimate base buffer.
type viewRef struct {
	base   *Buffer
	offset int64
}

// Buffer is a spillable device-or-host memory handle. A Buffer is
// either a base (view == nil) owning memory, lock and spill state, or
// a zero-copy view delegating all state to its base.
type Buffer struct {
	size int64
	view *viewRef

	released atomic.Bool // this handle's Close latch

	// Base-only state. mu guards residency transitions and pin minting;
	// exposed and pinCount are additionally readable without the lock
	// for quick checks (exposed only ever advances false->true).
	mu           sync.Mutex
	residency    api.Residency
	addr         uintptr
	hostMem      []byte
	devOwner     api.DeviceMemory
	hostOwner    api.HostMemory
	hostShared   bool // host block bytes escaped via a zero-copy view
	exposed      atomic.Bool
	pinCount     atomic.Int64
	lastAccessed atomic.Int64
	refs         atomic.Int32 // self + live views
	closed       bool

	alloc api.Allocator
	mgr   api.Manager
}

// New constructs a base buffer from a data source.
//
// Accepted sources:
//   - api.DeviceMemory: captured zero-copy; the buffer takes ownership.
//   - []byte: contiguous host memory, wrapped zero-copy when
//     exposed=false, or copied eagerly to a fresh device allocation
//     when exposed=true (the copy itself was never escaped, so the new
//     buffer reports exposed=false).
//   - Strided: non-contiguous host memory; rejected with
//     ErrInvalidLayout unless exposed=true forces the compacting copy
//     path.
//
// Constructing from another *Buffer fails with ErrInvalidSource; use
// Slice for view derivation so spill state is never aliased.
func New(opts Options, src any, exposed bool) (*Buffer, error) {
	if opts.Allocator == nil {
		return nil, api.ErrInvalidArgument
	}
	var b *Buffer
	switch s := src.(type) {
	case *Buffer:
		return nil, api.ErrInvalidSource
	case api.DeviceMemory:
		b = &Buffer{
			size:      s.Size(),
			residency: api.DeviceResident,
			addr:      s.Addr(),
			devOwner:  s,
			alloc:     opts.Allocator,
			mgr:       opts.Manager,
		}
		b.exposed.Store(exposed)
	case []byte:
		var err error
		b, err = newFromHost(opts, s, exposed)
		if err != nil {
			return nil, err
		}
	case Strided:
		if s.Contiguous() {
			var err error
			b, err = newFromHost(opts, s.Data[:s.Count*s.ItemSize], exposed)
			if err != nil {
				return nil, err
			}
			break
		}
		if !exposed {
			return nil, api.ErrInvalidLayout
		}
		// An exposed source cannot be spilled in later; compact it into a
		// fresh device allocation instead. The copy was never escaped.
		var err error
		b, err = newDeviceCopy(opts, s.Compact())
		if err != nil {
			return nil, err
		}
	default:
		return nil, api.ErrInvalidSource
	}
	b.refs.Store(1)
	b.touch()
	b.registerWithManager()
	return b, nil
}

// newFromHost wraps or copies contiguous host bytes per the exposed hint.
func newFromHost(opts Options, data []byte, exposed bool) (*Buffer, error) {
	if exposed {
		return newDeviceCopy(opts, data)
	}
	return &Buffer{
		size:      int64(len(data)),
		residency: api.HostResident,
		hostMem:   data,
		alloc:     opts.Allocator,
		mgr:       opts.Manager,
	}, nil
}

// newDeviceCopy copies host bytes into a fresh device allocation.
func newDeviceCopy(opts Options, data []byte) (*Buffer, error) {
	dm, err := opts.Allocator.AllocDevice(int64(len(data)))
	if err != nil {
		return nil, err
	}
	opts.Allocator.CopyHostToDevice(dm.Addr(), data)
	return &Buffer{
		size:      int64(len(data)),
		residency: api.DeviceResident,
		addr:      dm.Addr(),
		devOwner:  dm,
		alloc:     opts.Allocator,
		mgr:       opts.Manager,
	}, nil
}

// registerWithManager probes the address-range index, then registers
// the buffer and enforces the device budget.
//
// An overlap with an already-known base means two live handles alias
// the same memory without coordinated spill tracking; the existing
// base is conservatively latched exposed.
func (b *Buffer) registerWithManager() {
	if b.mgr == nil {
		return
	}
	if b.residency == api.DeviceResident {
		if existing, ok := b.mgr.FindOverlappingBase(b.addr, b.size); ok {
			existing.MarkExposed()
			b.mgr.EnforceBudget()
			return
		}
	}
	if !b.exposed.Load() {
		b.mgr.Register(b)
	}
	b.mgr.EnforceBudget()
}

// base resolves the ultimate base buffer.
func (b *Buffer) base() *Buffer {
	if b.view != nil {
		return b.view.base
	}
	return b
}

// absOffset is this handle's byte offset within its base.
func (b *Buffer) absOffset() int64 {
	if b.view != nil {
		return b.view.offset
	}
	return 0
}

// IsView reports whether this handle is a view.
func (b *Buffer) IsView() bool { return b.view != nil }

// Size returns this handle's byte length (a view's own length).
func (b *Buffer) Size() int64 { return b.size }

// Residency reports the tier currently backing the buffer.
func (b *Buffer) Residency() api.Residency {
	bb := b.base()
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return bb.residency
}

// Exposed reports whether a raw pointer has permanently escaped the
// base. Lock-free; the flag only ever advances false->true.
func (b *Buffer) Exposed() bool {
	return b.base().exposed.Load()
}

// Spillable reports whether the base may change residency: not exposed
// and no live pins.
func (b *Buffer) Spillable() bool {
	bb := b.base()
	return !bb.exposed.Load() && bb.pinCount.Load() == 0
}

// spillableLocked is Spillable with the base lock already held.
func (b *Buffer) spillableLocked() bool {
	return !b.exposed.Load() && b.pinCount.Load() == 0
}

// PinCount returns the number of live pin tokens for the base.
func (b *Buffer) PinCount() int64 {
	return b.base().pinCount.Load()
}

// LastAccessed returns the time of the last residency-relevant access.
func (b *Buffer) LastAccessed() time.Time {
	return time.Unix(0, b.base().lastAccessed.Load())
}

// touch refreshes the access timestamp. Callers hold the base lock or
// run during construction.
func (b *Buffer) touch() {
	b.lastAccessed.Store(time.Now().UnixNano())
}

// MarkExposed latches the base's exposure flag. Irreversible.
func (b *Buffer) MarkExposed() {
	bb := b.base()
	bb.mu.Lock()
	bb.exposed.Store(true)
	bb.mu.Unlock()
}

// TrySpill attempts a non-blocking device-to-host move on a base
// buffer. Used by the manager's spill scan, which must never wait on a
// locked buffer. Returns the bytes freed and whether a spill happened.
func (b *Buffer) TrySpill() (int64, bool) {
	if b.view != nil {
		return 0, false
	}
	if !b.mu.TryLock() {
		return 0, false
	}
	defer b.mu.Unlock()
	if b.closed || b.residency != api.DeviceResident || !b.spillableLocked() {
		return 0, false
	}
	if err := b.moveLocked(api.HostResident); err != nil {
		return 0, false
	}
	return b.size, true
}

// IsOverlapping reports whether this handle is currently backed by
// device memory whose address range intersects [ptr, ptr+size). Never
// true for a spilled buffer.
func (b *Buffer) IsOverlapping(ptr uintptr, size int64) bool {
	bb := b.base()
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.closed || bb.residency != api.DeviceResident {
		return false
	}
	lo := bb.addr + uintptr(b.absOffset())
	hi := lo + uintptr(b.size)
	return ptr < hi && lo < ptr+uintptr(size)
}

// DeviceArray derives an interop description of this handle. The
// description itself is side-effect free; reading its address resolves
// through Ptr and therefore forces residency and permanent exposure.
func (b *Buffer) DeviceArray() *api.DeviceArrayDescription {
	return api.NewDeviceArrayDescription(b.size, b.Ptr)
}

// Close drops this handle's reference to the base. When the last
// handle (base plus views) is gone, the underlying allocation is
// released and the buffer leaves spill tracking. Idempotent.
func (b *Buffer) Close() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	bb := b.base()
	if bb.refs.Add(-1) > 0 {
		return
	}
	bb.mu.Lock()
	if !bb.closed {
		bb.closed = true
		if bb.devOwner != nil {
			bb.devOwner.Free()
			bb.devOwner = nil
		}
		bb.releaseHostLocked()
		bb.addr = 0
		bb.hostMem = nil
	}
	bb.mu.Unlock()
	if bb.mgr != nil {
		bb.mgr.Unregister(bb)
	}
}

var _ api.BaseBuffer = (*Buffer)(nil)
