// Package api
// Author: momentics
//
// Common error taxonomy for the spillmem library.

package api

import "fmt"

// Sentinel errors raised at the point of violation. None are retried
// internally; budget enforcement is the only place that moves on to
// other candidates when one buffer cannot be spilled.
var (
	// ErrInvalidSource: construction from an incompatible source, e.g.
	// another spillable buffer (use Slice for view derivation instead).
	ErrInvalidSource = fmt.Errorf("invalid buffer source")

	// ErrInvalidLayout: non-contiguous host input without the copy path.
	ErrInvalidLayout = fmt.Errorf("host memory is not contiguous")

	// ErrUnspillable: residency transition attempted on an exposed or
	// pinned buffer.
	ErrUnspillable = fmt.Errorf("buffer is not spillable")

	// ErrUnsupportedTarget: residency transition to an unknown tier.
	ErrUnsupportedTarget = fmt.Errorf("unsupported residency target")

	// ErrInvalidArgument: negative size, out-of-bounds slice and similar.
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// ErrFrameCountMismatch: deserialization requires exactly one frame.
	ErrFrameCountMismatch = fmt.Errorf("frame count mismatch")

	// ErrOutOfMemory: the raw allocator could not satisfy a request.
	ErrOutOfMemory = fmt.Errorf("out of memory")

	// ErrClosed: use of a buffer after its allocation was released.
	ErrClosed = fmt.Errorf("buffer is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidSource
	ErrCodeInvalidLayout
	ErrCodeUnspillable
	ErrCodeUnsupportedTarget
	ErrCodeInvalidArgument
	ErrCodeFrameCountMismatch
	ErrCodeOutOfMemory
	ErrCodeClosed
	ErrCodeInternal
)

// sentinel maps the code to its sentinel error.
func (c ErrorCode) sentinel() error {
	switch c {
	case ErrCodeInvalidSource:
		return ErrInvalidSource
	case ErrCodeInvalidLayout:
		return ErrInvalidLayout
	case ErrCodeUnspillable:
		return ErrUnspillable
	case ErrCodeUnsupportedTarget:
		return ErrUnsupportedTarget
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeFrameCountMismatch:
		return ErrFrameCountMismatch
	case ErrCodeOutOfMemory:
		return ErrOutOfMemory
	case ErrCodeClosed:
		return ErrClosed
	default:
		return nil
	}
}

// Error is a structured error carrying a code and free-form context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap resolves the code to its sentinel, so errors.Is on a
// structured error still matches the taxonomy.
func (e *Error) Unwrap() error {
	return e.Code.sentinel()
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
