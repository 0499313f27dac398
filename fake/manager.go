// Package fake
// Author: momentics
//
// Fake spill manager and allocator implementations for testing.

package fake

import (
	"sync"

	"github.com/momentics/spillmem/api"
)

// Expose is one recorded LogExpose call.
type Expose struct {
	Buffer    api.BaseBuffer
	Unspilled int64
}

// Manager is a fake implementation of api.Manager that records every
// call and lets tests control budget behavior.
type Manager struct {
	mu sync.Mutex

	registered   []api.BaseBuffer
	unregistered []api.BaseBuffer
	exposes      []Expose
	enforceCalls int

	// EnforceFunc, when set, runs on every EnforceBudget call.
	EnforceFunc func()
}

// NewManager creates an empty fake manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register records the buffer once.
func (m *Manager) Register(b api.BaseBuffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.registered {
		if r == b {
			return
		}
	}
	m.registered = append(m.registered, b)
}

// Unregister records the removal.
func (m *Manager) Unregister(b api.BaseBuffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregistered = append(m.unregistered, b)
	for i, r := range m.registered {
		if r == b {
			m.registered = append(m.registered[:i], m.registered[i+1:]...)
			return
		}
	}
}

// FindOverlappingBase scans the registered buffers.
func (m *Manager) FindOverlappingBase(ptr uintptr, size int64) (api.BaseBuffer, bool) {
	m.mu.Lock()
	bufs := append([]api.BaseBuffer(nil), m.registered...)
	m.mu.Unlock()
	for _, b := range bufs {
		if b.IsOverlapping(ptr, size) {
			return b, true
		}
	}
	return nil, false
}

// EnforceBudget counts the call and runs EnforceFunc when set.
func (m *Manager) EnforceBudget() {
	m.mu.Lock()
	m.enforceCalls++
	fn := m.EnforceFunc
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// LogExpose records the exposure.
func (m *Manager) LogExpose(b api.BaseBuffer, unspilled int64) {
	m.mu.Lock()
	m.exposes = append(m.exposes, Expose{Buffer: b, Unspilled: unspilled})
	m.mu.Unlock()
}

// Registered returns the currently registered buffers.
func (m *Manager) Registered() []api.BaseBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]api.BaseBuffer(nil), m.registered...)
}

// EnforceCalls returns the number of EnforceBudget invocations.
func (m *Manager) EnforceCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enforceCalls
}

// Exposes returns the recorded LogExpose calls.
func (m *Manager) Exposes() []Expose {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Expose(nil), m.exposes...)
}

var _ api.Manager = (*Manager)(nil)
