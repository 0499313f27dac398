// File: buffer/hostview.go
// Author: momentics
// License: Apache-2.0

package buffer

import "github.com/momentics/spillmem/api"

// AsHostView returns host-readable bytes covering [offset, offset+size)
// of this handle.
//
// A spillable base is moved host-resident in place and a zero-copy
// slice of its host storage is returned. An exposed or pinned base
// must keep its device residency untouched, so its bytes are copied
// into a fresh host slice instead.
func (b *Buffer) AsHostView(offset, size int64) ([]byte, error) {
	if offset < 0 || size < 0 {
		return nil, api.ErrInvalidArgument
	}
	bb := b.base()
	abs := b.absOffset() + offset
	if abs+size > bb.size {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "host view out of range").
			WithContext("offset", abs).
			WithContext("size", size).
			WithContext("base_size", bb.size)
	}
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.closed {
		return nil, api.ErrClosed
	}
	if bb.spillableLocked() {
		if err := bb.moveLocked(api.HostResident); err != nil {
			return nil, err
		}
		// The returned slice aliases the owned host block; once handed
		// out, the block may never be recycled into the pool.
		if bb.hostOwner != nil {
			bb.hostShared = true
		}
		return bb.hostMem[abs : abs+size : abs+size], nil
	}
	out := make([]byte, size)
	if bb.residency == api.DeviceResident {
		bb.alloc.CopyDeviceToHost(out, bb.addr+uintptr(abs))
	} else {
		copy(out, bb.hostMem[abs:abs+size])
	}
	return out, nil
}
