// File: alloc/host_pool.go
// Author: momentics
// License: Apache-2.0
//
// Size-classed pool of host blocks used as spill targets. Freed blocks
// queue up per class and are reused by later spills, bounding idle
// host memory per class.

package alloc

import (
	"sync"

	"github.com/eapache/queue"
)

// Host block size classes (bytes).
var hostSizeClasses = [...]int64{
	4 * 1024,
	16 * 1024,
	64 * 1024,
	256 * 1024,
	1 * 1024 * 1024,
	4 * 1024 * 1024,
	16 * 1024 * 1024,
}

// maxIdlePerClass caps retained free blocks in each class.
const maxIdlePerClass = 32

// hostClassFor returns the smallest class >= size, or size itself for
// oversized requests (those bypass pooling).
func hostClassFor(size int64) int64 {
	for _, c := range hostSizeClasses {
		if size <= c {
			return c
		}
	}
	return size
}

// HostPool reuses host blocks across spills.
type HostPool struct {
	mu      sync.Mutex
	classes map[int64]*queue.Queue
}

// NewHostPool creates an empty pool.
func NewHostPool() *HostPool {
	return &HostPool{classes: make(map[int64]*queue.Queue)}
}

// Get returns a block of at least size bytes, reusing a freed block of
// the same class when available.
func (p *HostPool) Get(size int64) []byte {
	class := hostClassFor(size)
	p.mu.Lock()
	if q, ok := p.classes[class]; ok && q.Length() > 0 {
		buf := q.Remove().([]byte)
		p.mu.Unlock()
		return buf
	}
	p.mu.Unlock()
	return make([]byte, class)
}

// isHostClass reports whether n is one of the pooled class sizes.
func isHostClass(n int64) bool {
	for _, c := range hostSizeClasses {
		if n == c {
			return true
		}
	}
	return false
}

// Put returns a block for reuse. Blocks that are not an exact class
// size, or that would exceed the idle cap, are dropped for the GC.
func (p *HostPool) Put(buf []byte) {
	class := int64(cap(buf))
	if !isHostClass(class) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.classes[class]
	if !ok {
		q = queue.New()
		p.classes[class] = q
	}
	if q.Length() >= maxIdlePerClass {
		return
	}
	q.Add(buf[:class])
}

// Idle reports the number of retained free blocks in the class for
// size.
func (p *HostPool) Idle(size int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if q, ok := p.classes[hostClassFor(size)]; ok {
		return q.Length()
	}
	return 0
}
