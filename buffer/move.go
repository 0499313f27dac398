// File: buffer/move.go
// Author: momentics
// License: Apache-2.0
//
// In-place residency transitions. This is the only code path that
// mutates residency.

package buffer

import "github.com/momentics/spillmem/api"

// MoveInplace converts the base between device and host residency in
// place, transparently to all views. A no-op when the base already
// matches target (the access timestamp is not refreshed). Fails with
// ErrUnspillable when the base is exposed or pinned, and with
// ErrUnsupportedTarget for any tier other than device or host. On
// error the prior state is left fully intact.
func (b *Buffer) MoveInplace(target api.Residency) error {
	bb := b.base()
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return bb.moveLocked(target)
}

// moveLocked performs the transition with the base lock held. Internal
// callers that already hold the lock (pointer access, host
// materialization, the manager's TrySpill) enter here directly.
func (b *Buffer) moveLocked(target api.Residency) error {
	if target != api.DeviceResident && target != api.HostResident {
		return api.ErrUnsupportedTarget
	}
	if b.closed {
		return api.ErrClosed
	}
	if b.residency == target {
		return nil
	}
	if !b.spillableLocked() {
		return api.NewError(api.ErrCodeUnspillable, "buffer is exposed or pinned").
			WithContext("exposed", b.exposed.Load()).
			WithContext("pins", b.pinCount.Load())
	}
	switch target {
	case api.HostResident:
		hm, err := b.alloc.AllocHost(b.size)
		if err != nil {
			return err
		}
		host := hm.Bytes()[:b.size]
		b.alloc.CopyDeviceToHost(host, b.addr)
		if b.devOwner != nil {
			b.devOwner.Free()
			b.devOwner = nil
		}
		b.addr = 0
		b.hostOwner = hm
		b.hostShared = false
		b.hostMem = host
		b.residency = api.HostResident
	case api.DeviceResident:
		dm, err := b.alloc.AllocDevice(b.size)
		if err != nil {
			return err
		}
		b.alloc.CopyHostToDevice(dm.Addr(), b.hostMem)
		b.releaseHostLocked()
		b.hostMem = nil
		b.devOwner = dm
		b.addr = dm.Addr()
		b.residency = api.DeviceResident
	}
	b.touch()
	return nil
}

// releaseHostLocked drops the owned host block. A block whose bytes
// escaped through a zero-copy host view must not return to the pool:
// the reference is dropped instead, leaving the block to the GC for as
// long as the caller's view survives.
func (b *Buffer) releaseHostLocked() {
	if b.hostOwner == nil {
		return
	}
	if !b.hostShared {
		b.hostOwner.Free()
	}
	b.hostOwner = nil
	b.hostShared = false
}
