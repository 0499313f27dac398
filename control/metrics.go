// control/metrics.go
// Author: momentics
//
// Spill accounting counters, updated lock-free by the manager on every
// spill and exposure event.

package control

import "sync/atomic"

// SpillMetrics aggregates cumulative spill/expose counters.
type SpillMetrics struct {
	spillCount        atomic.Uint64
	spilledBytesTotal atomic.Int64
	exposeCount       atomic.Uint64
	exposeBytesTotal  atomic.Int64
	exposeSpilledByte atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	SpillCount         uint64
	SpilledBytesTotal  int64
	ExposeCount        uint64
	ExposeBytesTotal   int64
	ExposeSpilledBytes int64
}

// RecordSpill accounts one device-to-host spill of n bytes.
func (m *SpillMetrics) RecordSpill(n int64) {
	m.spillCount.Add(1)
	m.spilledBytesTotal.Add(n)
}

// RecordExpose accounts one permanent exposure. spilled is the portion
// of the buffer that was host-resident at exposure time.
func (m *SpillMetrics) RecordExpose(total, spilled int64) {
	m.exposeCount.Add(1)
	m.exposeBytesTotal.Add(total)
	m.exposeSpilledByte.Add(spilled)
}

// Snapshot returns the current counter values.
func (m *SpillMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		SpillCount:         m.spillCount.Load(),
		SpilledBytesTotal:  m.spilledBytesTotal.Load(),
		ExposeCount:        m.exposeCount.Load(),
		ExposeBytesTotal:   m.exposeBytesTotal.Load(),
		ExposeSpilledBytes: m.exposeSpilledByte.Load(),
	}
}
