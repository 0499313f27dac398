// File: manager/manager.go
// Author: momentics
// License: Apache-2.0
//
// The spill manager: a process-wide registry of base buffers with a
// device-memory budget. Spilling walks registered buffers in
// least-recently-accessed order and never blocks on a buffer that is
// locked by another operation.

package manager

import (
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"

	"github.com/momentics/spillmem/api"
	"github.com/momentics/spillmem/control"
)

// Manager tracks base buffers and enforces the device-memory budget.
// Its registry lock is independent of any buffer lock and is the inner
// lock whenever both are needed: registry access snapshots under the
// manager lock and queries buffers only after releasing it.
type Manager struct {
	cfg     Config
	metrics control.SpillMetrics

	mu      sync.Mutex
	nextID  uint64
	ids     map[api.BaseBuffer]uint64
	buffers map[uint64]api.BaseBuffer
}

// New creates a manager with the given configuration.
func New(cfg Config) *Manager {
	return &Manager{
		cfg:     cfg,
		ids:     make(map[api.BaseBuffer]uint64),
		buffers: make(map[uint64]api.BaseBuffer),
	}
}

// Register records an unexposed, non-empty base buffer as a spill
// candidate. Idempotent.
func (m *Manager) Register(b api.BaseBuffer) {
	if b.Size() <= 0 || b.Exposed() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[b]; ok {
		return
	}
	id := m.nextID
	m.nextID++
	m.ids[b] = id
	m.buffers[id] = b
}

// Unregister removes a buffer from spill tracking.
func (m *Manager) Unregister(b api.BaseBuffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[b]; ok {
		delete(m.ids, b)
		delete(m.buffers, id)
	}
}

// baseBuffers snapshots the registry, optionally ordered by last
// access time (least recent first). Buffers are queried outside the
// registry lock.
func (m *Manager) baseBuffers(orderByAccessTime bool) []api.BaseBuffer {
	m.mu.Lock()
	out := make([]api.BaseBuffer, 0, len(m.buffers))
	for _, b := range m.buffers {
		out = append(out, b)
	}
	m.mu.Unlock()
	if orderByAccessTime {
		sort.Slice(out, func(i, j int) bool {
			return out[i].LastAccessed().Before(out[j].LastAccessed())
		})
	}
	return out
}

// SpillDeviceMemory spills at most one buffer: the least recently
// accessed registered buffer that is device-resident, spillable and
// not locked by another operation. Safe to call from allocation
// failure paths because it never waits on a buffer lock. Returns the
// number of bytes spilled, zero when nothing could be spilled.
func (m *Manager) SpillDeviceMemory() int64 {
	for _, b := range m.baseBuffers(true) {
		if n, ok := b.TrySpill(); ok {
			m.metrics.RecordSpill(n)
			return n
		}
	}
	return 0
}

// EnforceBudget spills buffers until total device usage is under the
// configured limit or no spillable candidate remains. With no limit
// configured this is a no-op. Budget left exceeded because everything
// remaining is exposed or pinned is not an error.
func (m *Manager) EnforceBudget() {
	if m.cfg.DeviceLimit <= 0 {
		return
	}
	m.SpillToDeviceLimit(m.cfg.DeviceLimit)
}

// SpillToDeviceLimit spills until device usage drops below limit.
// Returns the total bytes spilled.
func (m *Manager) SpillToDeviceLimit(limit int64) int64 {
	var total int64
	for {
		var unspilled int64
		for _, b := range m.baseBuffers(false) {
			if b.Residency() == api.DeviceResident {
				unspilled += b.Size()
			}
		}
		if unspilled < limit {
			break
		}
		n := m.SpillDeviceMemory()
		if n == 0 {
			break
		}
		total += n
	}
	return total
}

// HandleOutOfMemory tries to free at least nbytes of device memory by
// spilling. Intended as the raw allocator's reclaim callback; inert
// unless on-demand spilling is configured. Reports whether anything
// was freed so the allocation can be retried; a second attempt runs
// after forcing a garbage collection, which may release closed buffers
// still pending finalization.
func (m *Manager) HandleOutOfMemory(nbytes int64) bool {
	if !m.cfg.OnDemand {
		return false
	}
	return m.handleOutOfMemory(nbytes, true)
}

func (m *Manager) handleOutOfMemory(nbytes int64, retryOnce bool) bool {
	var total int64
	for total < nbytes {
		n := m.SpillDeviceMemory()
		if n == 0 {
			break
		}
		total += n
	}
	if total > 0 {
		return true
	}
	if retryOnce {
		runtime.GC()
		return m.handleOutOfMemory(nbytes, false)
	}
	log.Printf("spillmem: allocation of %s failed, no device memory to spill: %s",
		formatBytes(nbytes), m.String())
	return false
}

// FindOverlappingBase returns a registered base whose device address
// range intersects [ptr, ptr+size), if any.
func (m *Manager) FindOverlappingBase(ptr uintptr, size int64) (api.BaseBuffer, bool) {
	for _, b := range m.baseBuffers(false) {
		if b.IsOverlapping(ptr, size) {
			return b, true
		}
	}
	return nil, false
}

// LogExpose records a first permanent exposure for statistics.
// unspilled is the byte count the exposure had to move back to device
// memory, as observed by the caller before the move.
func (m *Manager) LogExpose(b api.BaseBuffer, unspilled int64) {
	if !m.cfg.StatExpose {
		return
	}
	m.metrics.RecordExpose(b.Size(), unspilled)
}

// Metrics returns the cumulative spill/expose counters.
func (m *Manager) Metrics() control.MetricsSnapshot {
	return m.metrics.Snapshot()
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Registered       int
	DeviceBytes      int64
	SpilledBytes     int64
	UnspillableBytes int64
}

// Stats walks the registry and sums per-tier usage. UnspillableBytes
// counts device-resident buffers that are exposed or pinned.
func (m *Manager) Stats() Stats {
	var s Stats
	for _, b := range m.baseBuffers(false) {
		s.Registered++
		if b.Residency() == api.HostResident {
			s.SpilledBytes += b.Size()
			continue
		}
		s.DeviceBytes += b.Size()
		if !b.Spillable() {
			s.UnspillableBytes += b.Size()
		}
	}
	return s
}

// String summarizes the manager state for diagnostics.
func (m *Manager) String() string {
	s := m.Stats()
	return fmt.Sprintf("<manager limit=%s | %s spilled | %s on device (%s unspillable) | %d buffers>",
		formatBytes(m.cfg.DeviceLimit), formatBytes(s.SpilledBytes),
		formatBytes(s.DeviceBytes), formatBytes(s.UnspillableBytes), s.Registered)
}

var _ api.Manager = (*Manager)(nil)

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.2f GiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.2f MiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.2f KiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
