package manager_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/spillmem/api"
	"github.com/momentics/spillmem/manager"
)

// fakeBase is a controllable api.BaseBuffer.
type fakeBase struct {
	mu        sync.Mutex
	size      int64
	residency api.Residency
	exposed   bool
	pinned    bool
	busy      bool // simulates a base lock held by another operation
	last      time.Time
	addr      uintptr
	spills    int
}

func (f *fakeBase) Size() int64 { return f.size }

func (f *fakeBase) Residency() api.Residency {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.residency
}

func (f *fakeBase) Exposed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exposed
}

func (f *fakeBase) Spillable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.exposed && !f.pinned
}

func (f *fakeBase) LastAccessed() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeBase) MarkExposed() {
	f.mu.Lock()
	f.exposed = true
	f.mu.Unlock()
}

func (f *fakeBase) TrySpill() (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy || f.exposed || f.pinned || f.residency != api.DeviceResident {
		return 0, false
	}
	f.residency = api.HostResident
	f.spills++
	return f.size, true
}

func (f *fakeBase) IsOverlapping(ptr uintptr, size int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.residency != api.DeviceResident {
		return false
	}
	return ptr < f.addr+uintptr(f.size) && f.addr < ptr+uintptr(size)
}

func newFakeBase(size int64, last time.Time) *fakeBase {
	return &fakeBase{size: size, residency: api.DeviceResident, last: last}
}

func TestRegisterIsIdempotent(t *testing.T) {
	m := manager.New(manager.Config{})
	b := newFakeBase(64, time.Now())

	m.Register(b)
	m.Register(b)
	require.Equal(t, 1, m.Stats().Registered)

	m.Unregister(b)
	require.Zero(t, m.Stats().Registered)
}

func TestRegisterSkipsExposedAndEmpty(t *testing.T) {
	m := manager.New(manager.Config{})

	exposed := newFakeBase(64, time.Now())
	exposed.exposed = true
	m.Register(exposed)

	empty := newFakeBase(0, time.Now())
	m.Register(empty)

	require.Zero(t, m.Stats().Registered)
}

func TestSpillDeviceMemoryPicksLeastRecentlyAccessed(t *testing.T) {
	m := manager.New(manager.Config{})
	now := time.Now()
	oldest := newFakeBase(64, now.Add(-3*time.Second))
	middle := newFakeBase(64, now.Add(-2*time.Second))
	newest := newFakeBase(64, now.Add(-1*time.Second))
	m.Register(newest)
	m.Register(oldest)
	m.Register(middle)

	n := m.SpillDeviceMemory()
	require.Equal(t, int64(64), n)
	require.Equal(t, 1, oldest.spills)
	require.Zero(t, middle.spills)
	require.Zero(t, newest.spills)
}

func TestSpillDeviceMemorySkipsLockedBuffers(t *testing.T) {
	m := manager.New(manager.Config{})
	now := time.Now()
	locked := newFakeBase(64, now.Add(-2*time.Second))
	locked.busy = true
	free := newFakeBase(32, now.Add(-1*time.Second))
	m.Register(locked)
	m.Register(free)

	// The scan must not wait on the locked buffer.
	n := m.SpillDeviceMemory()
	require.Equal(t, int64(32), n)
	require.Zero(t, locked.spills)
	require.Equal(t, 1, free.spills)
}

func TestEnforceBudgetSpillsDownToLimit(t *testing.T) {
	m := manager.New(manager.Config{DeviceLimit: 100})
	now := time.Now()
	bufs := []*fakeBase{
		newFakeBase(64, now.Add(-3*time.Second)),
		newFakeBase(64, now.Add(-2*time.Second)),
		newFakeBase(64, now.Add(-1*time.Second)),
	}
	for _, b := range bufs {
		m.Register(b)
	}

	m.EnforceBudget()

	s := m.Stats()
	require.Equal(t, int64(64), s.DeviceBytes)
	require.Equal(t, int64(128), s.SpilledBytes)
	require.Equal(t, 1, bufs[0].spills)
	require.Equal(t, 1, bufs[1].spills)
	require.Zero(t, bufs[2].spills)

	snap := m.Metrics()
	require.Equal(t, uint64(2), snap.SpillCount)
	require.Equal(t, int64(128), snap.SpilledBytesTotal)
}

func TestEnforceBudgetWithoutLimitIsNoOp(t *testing.T) {
	m := manager.New(manager.Config{})
	b := newFakeBase(1 << 20, time.Now())
	m.Register(b)

	m.EnforceBudget()
	require.Zero(t, b.spills)
}

func TestEnforceBudgetToleratesUnspillableOverrun(t *testing.T) {
	m := manager.New(manager.Config{DeviceLimit: 16})
	b := newFakeBase(64, time.Now())
	m.Register(b)
	b.MarkExposed()

	// Nothing can be spilled; budget stays exceeded without error.
	m.EnforceBudget()
	require.Zero(t, b.spills)
	s := m.Stats()
	require.Equal(t, int64(64), s.DeviceBytes)
	require.Equal(t, int64(64), s.UnspillableBytes)
}

func TestHandleOutOfMemory(t *testing.T) {
	m := manager.New(manager.Config{OnDemand: true})
	now := time.Now()
	a := newFakeBase(32, now.Add(-2*time.Second))
	b := newFakeBase(32, now.Add(-1*time.Second))
	m.Register(a)
	m.Register(b)

	require.True(t, m.HandleOutOfMemory(48))
	require.Equal(t, 1, a.spills)
	require.Equal(t, 1, b.spills)

	// Everything is already spilled: nothing left to free.
	require.False(t, m.HandleOutOfMemory(1))
}

func TestHandleOutOfMemoryDisabled(t *testing.T) {
	m := manager.New(manager.Config{})
	b := newFakeBase(64, time.Now())
	m.Register(b)

	require.False(t, m.HandleOutOfMemory(1))
	require.Zero(t, b.spills)
}

func TestFindOverlappingBase(t *testing.T) {
	m := manager.New(manager.Config{})
	b := newFakeBase(64, time.Now())
	b.addr = 0x1000
	m.Register(b)

	got, ok := m.FindOverlappingBase(0x1020, 8)
	require.True(t, ok)
	require.Equal(t, api.BaseBuffer(b), got)

	_, ok = m.FindOverlappingBase(0x2000, 8)
	require.False(t, ok)

	// Spilled buffers have no device range.
	b.residency = api.HostResident
	_, ok = m.FindOverlappingBase(0x1020, 8)
	require.False(t, ok)
}

func TestLogExposeStatistics(t *testing.T) {
	m := manager.New(manager.Config{StatExpose: true})
	b := newFakeBase(64, time.Now())
	m.LogExpose(b, 0)

	snap := m.Metrics()
	require.Equal(t, uint64(1), snap.ExposeCount)
	require.Equal(t, int64(64), snap.ExposeBytesTotal)
	require.Zero(t, snap.ExposeSpilledBytes)

	// A spilled buffer exposed: the unspilled bytes count separately.
	m.LogExpose(b, 64)
	snap = m.Metrics()
	require.Equal(t, uint64(2), snap.ExposeCount)
	require.Equal(t, int64(64), snap.ExposeSpilledBytes)
}

func TestLogExposeDisabled(t *testing.T) {
	m := manager.New(manager.Config{})
	m.LogExpose(newFakeBase(64, time.Now()), 0)
	require.Zero(t, m.Metrics().ExposeCount)
}

func TestStringSummarizesState(t *testing.T) {
	m := manager.New(manager.Config{DeviceLimit: 1 << 20})
	m.Register(newFakeBase(512, time.Now()))

	s := m.String()
	require.True(t, strings.Contains(s, "1.00 MiB"), s)
	require.True(t, strings.Contains(s, "1 buffers"), s)
}
