// File: buffer/view.go
// Author: momentics
// License: Apache-2.0

package buffer

import "github.com/momentics/spillmem/api"

// Slice derives a zero-copy view covering [offset, offset+size) of
// this handle. Slicing a view flattens: the result references the
// ultimate base at the accumulated absolute offset. The view shares
// the base's lock, residency, exposure and pin state, owns no memory
// of its own, and keeps the base alive until closed.
//
// Negative offset or size, or a range past the end of the base, fails
// with ErrInvalidArgument. Slicing a base whose allocation is already
// released fails with ErrClosed.
func (b *Buffer) Slice(offset, size int64) (*Buffer, error) {
	if offset < 0 || size < 0 {
		return nil, api.ErrInvalidArgument
	}
	bb := b.base()
	abs := b.absOffset() + offset
	if abs+size > bb.size {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "slice out of range").
			WithContext("offset", abs).
			WithContext("size", size).
			WithContext("base_size", bb.size)
	}
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.closed {
		return nil, api.ErrClosed
	}
	bb.refs.Add(1)
	return &Buffer{
		size: size,
		view: &viewRef{base: bb, offset: abs},
	}, nil
}

// ViewOffset returns this handle's absolute byte offset within its
// base; zero for base buffers.
func (b *Buffer) ViewOffset() int64 {
	return b.absOffset()
}

// Base returns the ultimate base buffer of this handle (itself for a
// base buffer).
func (b *Buffer) Base() *Buffer {
	return b.base()
}
