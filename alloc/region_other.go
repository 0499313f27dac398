// File: alloc/region_other.go
//go:build !linux

// Package alloc: heap-backed region fallback for platforms without the
// mmap path.
//
// Author: momentics
// License: Apache-2.0

package alloc

func mapRegion(size int64) ([]byte, bool) {
	return make([]byte, size), false
}

func unmapRegion(_ []byte, _ bool) {}
