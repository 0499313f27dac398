// File: alloc/region_linux.go
//go:build linux

// Package alloc: Linux region mapping via anonymous private mmap, with
// heap fallback when the mapping is refused.
//
// Author: momentics
// License: Apache-2.0

package alloc

import "golang.org/x/sys/unix"

// mapRegion maps size bytes off the Go heap. The second return value
// reports whether the region must be munmapped on release.
func mapRegion(size int64) ([]byte, bool) {
	data, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return make([]byte, size), false
	}
	return data, true
}

// unmapRegion returns a mapped region to the OS.
func unmapRegion(data []byte, mapped bool) {
	if mapped {
		_ = unix.Munmap(data)
	}
}
