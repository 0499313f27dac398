package manager_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/momentics/spillmem/manager"
)

func TestCollectorExportsAllMetrics(t *testing.T) {
	m := manager.New(manager.Config{DeviceLimit: 128, StatExpose: true})
	c := manager.NewCollector(m)

	require.Equal(t, 7, testutil.CollectAndCount(c))
}

func TestCollectorValues(t *testing.T) {
	m := manager.New(manager.Config{DeviceLimit: 100, StatExpose: true})
	now := time.Now()
	old := newFakeBase(64, now.Add(-2*time.Second))
	young := newFakeBase(64, now.Add(-1*time.Second))
	m.Register(old)
	m.Register(young)
	m.EnforceBudget()

	expected := `
		# HELP spillmem_device_bytes Bytes of registered buffers currently resident in device memory.
		# TYPE spillmem_device_bytes gauge
		spillmem_device_bytes 64
		# HELP spillmem_registered_buffers Number of base buffers registered with the spill manager.
		# TYPE spillmem_registered_buffers gauge
		spillmem_registered_buffers 2
		# HELP spillmem_spilled_bytes Bytes of registered buffers currently spilled to host memory.
		# TYPE spillmem_spilled_bytes gauge
		spillmem_spilled_bytes 64
		# HELP spillmem_spills_total Cumulative number of device-to-host spills.
		# TYPE spillmem_spills_total counter
		spillmem_spills_total 1
	`
	err := testutil.CollectAndCompare(manager.NewCollector(m), strings.NewReader(expected),
		"spillmem_device_bytes",
		"spillmem_registered_buffers",
		"spillmem_spilled_bytes",
		"spillmem_spills_total",
	)
	require.NoError(t, err)
}
