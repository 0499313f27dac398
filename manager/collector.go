// File: manager/collector.go
// Author: momentics
// License: Apache-2.0
//
// Prometheus collector over manager statistics.

package manager

import "github.com/prometheus/client_golang/prometheus"

// Metric descriptor indices and descriptor table.
const (
	deviceBytesDesc = iota
	spilledBytesDesc
	unspillableBytesDesc
	registeredDesc
	spillTotalDesc
	spilledBytesTotalDesc
	exposeTotalDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	deviceBytesDesc: prometheus.NewDesc(
		"spillmem_device_bytes",
		"Bytes of registered buffers currently resident in device memory.",
		nil, nil,
	),
	spilledBytesDesc: prometheus.NewDesc(
		"spillmem_spilled_bytes",
		"Bytes of registered buffers currently spilled to host memory.",
		nil, nil,
	),
	unspillableBytesDesc: prometheus.NewDesc(
		"spillmem_unspillable_bytes",
		"Device-resident bytes that cannot be spilled (exposed or pinned).",
		nil, nil,
	),
	registeredDesc: prometheus.NewDesc(
		"spillmem_registered_buffers",
		"Number of base buffers registered with the spill manager.",
		nil, nil,
	),
	spillTotalDesc: prometheus.NewDesc(
		"spillmem_spills_total",
		"Cumulative number of device-to-host spills.",
		nil, nil,
	),
	spilledBytesTotalDesc: prometheus.NewDesc(
		"spillmem_spilled_bytes_total",
		"Cumulative bytes moved from device to host by spilling.",
		nil, nil,
	),
	exposeTotalDesc: prometheus.NewDesc(
		"spillmem_exposes_total",
		"Cumulative number of permanent raw-pointer exposures.",
		nil, nil,
	),
}

// Collector exports manager statistics as prometheus metrics.
type Collector struct {
	mgr *Manager
}

// NewCollector creates a collector over m.
func NewCollector(m *Manager) *Collector {
	return &Collector{mgr: m}
}

// Describe sends all metric descriptors on ch.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect gathers current statistics and counter values.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.mgr.Stats()
	m := c.mgr.Metrics()
	ch <- prometheus.MustNewConstMetric(descriptors[deviceBytesDesc],
		prometheus.GaugeValue, float64(s.DeviceBytes))
	ch <- prometheus.MustNewConstMetric(descriptors[spilledBytesDesc],
		prometheus.GaugeValue, float64(s.SpilledBytes))
	ch <- prometheus.MustNewConstMetric(descriptors[unspillableBytesDesc],
		prometheus.GaugeValue, float64(s.UnspillableBytes))
	ch <- prometheus.MustNewConstMetric(descriptors[registeredDesc],
		prometheus.GaugeValue, float64(s.Registered))
	ch <- prometheus.MustNewConstMetric(descriptors[spillTotalDesc],
		prometheus.CounterValue, float64(m.SpillCount))
	ch <- prometheus.MustNewConstMetric(descriptors[spilledBytesTotalDesc],
		prometheus.CounterValue, float64(m.SpilledBytesTotal))
	ch <- prometheus.MustNewConstMetric(descriptors[exposeTotalDesc],
		prometheus.CounterValue, float64(m.ExposeCount))
}

var _ prometheus.Collector = (*Collector)(nil)
