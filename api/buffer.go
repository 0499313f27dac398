// Package api
// Author: momentics
//
// Contracts for spillable device/host buffer management.
//
// A buffer lives in exactly one memory tier at a time: fast device
// memory or slow host memory. The spill manager migrates buffers
// between tiers under a global device budget; raw-pointer escapes are
// tracked so a buffer is never moved while uncontrolled code may still
// dereference its address.

package api

import "time"

// Residency identifies the memory tier currently backing a buffer.
type Residency int

const (
	// DeviceResident: backed by fast device memory, addressable by pointer.
	DeviceResident Residency = iota

	// HostResident: backed by slow host memory ("spilled").
	HostResident
)

// String returns the tier name.
func (r Residency) String() string {
	switch r {
	case DeviceResident:
		return "device"
	case HostResident:
		return "host"
	default:
		return "unknown"
	}
}

// BaseBuffer is the manager-facing surface of a base (non-view) buffer.
// The manager never sees views; views delegate all state to their base.
type BaseBuffer interface {
	// Size returns the byte length, immutable after construction.
	Size() int64

	// Residency reports the tier currently backing the buffer.
	Residency() Residency

	// Exposed reports whether a raw pointer has permanently escaped.
	// Transitions false->true exactly once and never resets.
	Exposed() bool

	// Spillable reports whether the buffer may be moved between tiers:
	// not exposed and no live pin tokens.
	Spillable() bool

	// LastAccessed returns the time of the last residency-relevant access.
	LastAccessed() time.Time

	// MarkExposed latches the exposure flag. Used by the manager when an
	// aliasing allocation is discovered at construction time.
	MarkExposed()

	// TrySpill attempts a non-blocking device-to-host move. It must not
	// wait on the buffer lock; returns the bytes freed and whether a
	// spill happened.
	TrySpill() (int64, bool)

	// IsOverlapping reports whether the buffer is device-resident and its
	// address range intersects [ptr, ptr+size).
	IsOverlapping(ptr uintptr, size int64) bool
}

// Manager is the spill policy collaborator consumed by the buffer core.
// Implementations serialize their own registry state independently of
// any buffer lock; when both are needed, the buffer lock is taken first.
type Manager interface {
	// Register records a newly constructed, unexposed base buffer as a
	// spill candidate. Idempotent.
	Register(b BaseBuffer)

	// Unregister removes a buffer from spill tracking. Called when the
	// base releases its underlying allocation.
	Unregister(b BaseBuffer)

	// FindOverlappingBase returns an already-known base whose device
	// address range intersects [ptr, ptr+size), if any.
	FindOverlappingBase(ptr uintptr, size int64) (BaseBuffer, bool)

	// EnforceBudget synchronously spills registered, currently-spillable
	// buffers until device usage is under the configured limit. A no-op
	// when already under budget or when nothing is spillable (budget may
	// remain exceeded; not an error).
	EnforceBudget()

	// LogExpose records a first permanent exposure for statistics.
	// unspilled is the number of bytes that had to be moved back to
	// device memory for the exposure, zero when the buffer was already
	// device-resident.
	LogExpose(b BaseBuffer, unspilled int64)
}
