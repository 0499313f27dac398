// File: api/device_array.go
// Author: momentics
//
// Device-array-interface style description for interop with compute
// layers. Constructing the description is free of side effects; only
// resolving the address forces residency and exposure.

package api

import "sync"

// DeviceArrayDescription describes a buffer as a flat byte array for
// interop. Addr is resolved lazily on first read.
type DeviceArrayDescription struct {
	// Shape is the one-dimensional byte extent of the buffer.
	Shape [1]int64

	// TypeStr is the element type; buffers are opaque bytes.
	TypeStr string

	mu      sync.Mutex
	resolve func() (uintptr, error)
	addr    uintptr
	done    bool
}

// NewDeviceArrayDescription builds a description over a lazy address
// resolver. The resolver runs serialized and only until it succeeds;
// after the first success its result is cached.
func NewDeviceArrayDescription(size int64, resolve func() (uintptr, error)) *DeviceArrayDescription {
	return &DeviceArrayDescription{
		Shape:   [1]int64{size},
		TypeStr: "|u1",
		resolve: resolve,
	}
}

// Addr resolves and returns the device address. The first successful
// call may force device residency and permanent exposure of the
// underlying buffer; subsequent calls return the cached address. Safe
// for concurrent use.
func (d *DeviceArrayDescription) Addr() (uintptr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return d.addr, nil
	}
	addr, err := d.resolve()
	if err != nil {
		return 0, err
	}
	d.addr = addr
	d.done = true
	return addr, nil
}
