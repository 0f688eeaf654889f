// Package metrics defines the prometheus collectors exposed over the admin
// HTTP surface, grounded on dreamsxin-wal's metrics.go (promauto-registered
// counters/gauges on a caller-supplied registerer).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request, compaction and engine-state collectors.
// internal/server updates the request counters through ObserveRequest; no
// caller in this module updates the compaction counters or the two gauges.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestErrors   *prometheus.CounterVec
	CompactionsTotal prometheus.Counter
	BytesReclaimed  prometheus.Counter
	ActiveSegmentID prometheus.Gauge
	KeysIndexed     prometheus.Gauge
}

// New registers and returns the full collector set against reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ignitekv_requests_total",
			Help: "Total requests handled, by operation.",
		}, []string{"op"}),
		RequestErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ignitekv_request_errors_total",
			Help: "Total requests that returned an error response, by operation.",
		}, []string{"op"}),
		CompactionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ignitekv_compactions_total",
			Help: "Total compaction passes run.",
		}),
		BytesReclaimed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ignitekv_bytes_reclaimed_total",
			Help: "Total bytes reclaimed by compaction.",
		}),
		ActiveSegmentID: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ignitekv_active_segment_id",
			Help: "Identifier of the segment currently accepting writes.",
		}),
		KeysIndexed: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ignitekv_keys_indexed",
			Help: "Number of live keys in the in-memory index.",
		}),
	}
}

// ObserveRequest records one completed request, tagging it as an error if
// the operation returned one.
func (m *Metrics) ObserveRequest(op string, err error) {
	m.RequestsTotal.WithLabelValues(op).Inc()
	if err != nil {
		m.RequestErrors.WithLabelValues(op).Inc()
	}
}

// ObserveCompaction records a finished compaction pass.
func (m *Metrics) ObserveCompaction(bytesReclaimed int64) {
	m.CompactionsTotal.Inc()
	m.BytesReclaimed.Add(float64(bytesReclaimed))
}
