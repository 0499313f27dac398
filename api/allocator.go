// File: api/allocator.go
// Author: momentics
//
// Raw allocator contracts: contiguous device and host memory plus the
// copy primitives between the two tiers.

package api

// DeviceMemory is an owned contiguous device allocation. The address is
// valid for the lifetime of the handle; Free releases the region.
type DeviceMemory interface {
	// Addr returns the device address of the first byte.
	Addr() uintptr

	// Size returns the allocation length in bytes.
	Size() int64

	// Free returns the region to the allocator. The handle must not be
	// used afterwards.
	Free()
}

// HostMemory is an owned contiguous host allocation.
type HostMemory interface {
	// Bytes returns the backing slice. The slice aliases pool memory and
	// must not be retained past Free.
	Bytes() []byte

	// Free returns the region to the allocator.
	Free()
}

// Allocator provides raw device and host memory and byte-for-byte
// copies between them. Allocation failures surface ErrOutOfMemory.
type Allocator interface {
	// AllocDevice allocates size bytes of device memory.
	AllocDevice(size int64) (DeviceMemory, error)

	// AllocHost allocates size bytes of host memory.
	AllocHost(size int64) (HostMemory, error)

	// CopyDeviceToHost copies len(dst) bytes from device address src.
	CopyDeviceToHost(dst []byte, src uintptr)

	// CopyHostToDevice copies len(src) bytes to device address dst.
	CopyHostToDevice(dst uintptr, src []byte)
}
