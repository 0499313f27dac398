// File: buffer/ptr.go
// Author: momentics
// License: Apache-2.0
//
// Raw device address access: permanent exposure and transient pinning.

package buffer

import "github.com/momentics/spillmem/api"

// Ptr returns a dereferenceable device address for this handle and
// permanently marks the base as exposed: the address is assumed to
// escape into code outside spill tracking, so the base can never be
// moved again.
//
// Budget pressure is relieved first, while other buffers can still be
// spilled; then the base is forced device-resident and latched.
func (b *Buffer) Ptr() (uintptr, error) {
	bb := b.base()
	if bb.mgr != nil {
		bb.mgr.EnforceBudget()
	}
	bb.mu.Lock()
	var unspilled int64
	if bb.residency == api.HostResident {
		unspilled = bb.size
	}
	if err := bb.moveLocked(api.DeviceResident); err != nil {
		bb.mu.Unlock()
		return 0, err
	}
	first := !bb.exposed.Load()
	bb.exposed.Store(true)
	bb.touch()
	addr := bb.addr + uintptr(b.absOffset())
	bb.mu.Unlock()
	// Statistics run outside the base lock; the manager may query the
	// buffer, which would re-enter it.
	if first && bb.mgr != nil {
		bb.mgr.LogExpose(bb, unspilled)
	}
	return addr, nil
}

// PtrWithPin returns a dereferenceable device address for a bounded
// scope without permanently exposing the base. A freshly minted pin
// token is appended to pins; the base stays unspillable until every
// token derived from it has been released. Exposed remains false, so
// callers can still distinguish "ever escaped" from "currently
// unmovable".
func (b *Buffer) PtrWithPin(pins *PinList) (uintptr, error) {
	if pins == nil {
		return 0, api.ErrInvalidArgument
	}
	bb := b.base()
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if err := bb.moveLocked(api.DeviceResident); err != nil {
		return 0, err
	}
	bb.pinCount.Add(1)
	pins.append(&Pin{count: &bb.pinCount})
	bb.touch()
	return bb.addr + uintptr(b.absOffset()), nil
}
