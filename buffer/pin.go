// File: buffer/pin.go
// Author: momentics
// License: Apache-2.0
//
// Pin tokens: transient, reference-counted holds that keep a buffer
// device-resident without permanently exposing it.

package buffer

import (
	"sync"
	"sync/atomic"
)

// Pin is a live hold on a base buffer. While any pin derived from a
// base survives, the base is unspillable. Pins are safe for concurrent
// Clone and Release from multiple goroutines; the base's count reaches
// zero exactly when every derived pin has been released.
type Pin struct {
	count    *atomic.Int64
	released atomic.Bool
}

// Clone derives an independent pin sharing the same base count.
func (p *Pin) Clone() *Pin {
	p.count.Add(1)
	return &Pin{count: p.count}
}

// Release drops the hold. Releasing twice is a no-op.
func (p *Pin) Release() {
	if p.released.CompareAndSwap(false, true) {
		p.count.Add(-1)
	}
}

// PinList is a caller-owned collection of pin tokens, typically scoped
// to one asynchronous operation such as a kernel launch.
type PinList struct {
	mu   sync.Mutex
	pins []*Pin
}

// append records a freshly minted pin.
func (l *PinList) append(p *Pin) {
	l.mu.Lock()
	l.pins = append(l.pins, p)
	l.mu.Unlock()
}

// Tokens returns the held pins. Callers may Clone individual tokens
// into other lists so concurrent operations over overlapping buffers
// each hold an independent count.
func (l *PinList) Tokens() []*Pin {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Pin(nil), l.pins...)
}

// Add appends an externally obtained pin, e.g. a clone from another
// list.
func (l *PinList) Add(p *Pin) {
	l.append(p)
}

// Len reports the number of held pins.
func (l *PinList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pins)
}

// Release releases every held pin and empties the list.
func (l *PinList) Release() {
	l.mu.Lock()
	pins := l.pins
	l.pins = nil
	l.mu.Unlock()
	for _, p := range pins {
		p.Release()
	}
}
