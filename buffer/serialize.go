// File: buffer/serialize.go
// Author: momentics
// License: Apache-2.0
//
// Single-frame serialization: a (header, payload-frames) pair where
// the payload is exactly one frame. A spilled buffer ships a
// host-readable copy; a device-resident buffer ships the handle itself
// zero-copy. The binary header codec follows the library's fixed
// big-endian framing style.

package buffer

import (
	"encoding/binary"

	"github.com/momentics/spillmem/api"
)

// Frame is a serialization payload: either a *Buffer (device-resident,
// zero-copy) or a []byte (host-readable copy of a spilled buffer).
type Frame any

// Header describes a serialized buffer.
type Header struct {
	// Spilled reports whether the payload frame is host bytes rather
	// than a live buffer handle.
	Spilled bool

	// Size is the buffer's byte length.
	Size int64
}

const (
	headerMagic byte = 0xB5
	headerLen        = 10 // magic + flags + 8-byte size
)

// EncodeHeader serializes a header into its fixed wire form.
func EncodeHeader(h Header) []byte {
	out := make([]byte, headerLen)
	out[0] = headerMagic
	if h.Spilled {
		out[1] = 1
	}
	binary.BigEndian.PutUint64(out[2:], uint64(h.Size))
	return out
}

// DecodeHeader parses a wire-form header. Returns the header and the
// number of bytes consumed; a short or foreign prefix fails with
// ErrInvalidArgument.
func DecodeHeader(raw []byte) (Header, int, error) {
	if len(raw) < headerLen || raw[0] != headerMagic {
		return Header{}, 0, api.ErrInvalidArgument
	}
	return Header{
		Spilled: raw[1]&1 != 0,
		Size:    int64(binary.BigEndian.Uint64(raw[2:])),
	}, headerLen, nil
}

// Serialize produces the transport pair for this handle. A spilled
// handle yields its host bytes (zero-copy when the base is spillable);
// otherwise the handle itself is the single frame.
func (b *Buffer) Serialize() (Header, []Frame, error) {
	bb := b.base()
	bb.mu.Lock()
	spilled := bb.residency == api.HostResident
	bb.mu.Unlock()
	if spilled {
		data, err := b.AsHostView(0, b.size)
		if err != nil {
			return Header{}, nil, err
		}
		return Header{Spilled: true, Size: b.size}, []Frame{data}, nil
	}
	return Header{Spilled: false, Size: b.size}, []Frame{b}, nil
}

// Deserialize reconstructs a buffer from a transport pair. Exactly one
// frame is accepted. A *Buffer frame is reused as-is; a []byte frame
// constructs a fresh unexposed base registered with the manager.
func Deserialize(h Header, frames []Frame, opts Options) (*Buffer, error) {
	if len(frames) != 1 {
		return nil, api.ErrFrameCountMismatch
	}
	switch f := frames[0].(type) {
	case *Buffer:
		return f, nil
	case []byte:
		return New(opts, f, false)
	default:
		return nil, api.ErrInvalidSource
	}
}
