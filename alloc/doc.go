// Package alloc provides the default raw allocators: a fixed-capacity
// device arena standing in for accelerator memory, and a size-classed
// pool of host blocks for spill targets.
//
// The arena is backed by an anonymous mmap region on Linux with a heap
// fallback elsewhere. Device addresses handed out by the arena are
// real process addresses, so tier copies are plain memory copies.
//
// Author: momentics
// License: Apache-2.0
package alloc
