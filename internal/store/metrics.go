package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "perstore"

// Subsystem for store metrics
const storeSubsystem = "store"

// Metrics holds the Prometheus metrics of a Store.
//
// Labels: op (get, put, delete, query), status (ok, error, not_found,
// conflict, partial).
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	QuadsAdded        prometheus.Counter
	QuadsRemoved      prometheus.Counter
}

// NewMetrics registers store metrics with reg. Pass
// prometheus.DefaultRegisterer to expose them globally, or a fresh registry
// in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "operations_total",
			Help:      "Store operations by operation and outcome",
		}, []string{"op", "status"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),
		QuadsAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "quads_added_total",
			Help:      "Quads sent to the backend for writing",
		}),
		QuadsRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: storeSubsystem,
			Name:      "quads_removed_total",
			Help:      "Quads sent to the backend for deletion",
		}),
	}
}

func (m *Metrics) observe(op, status string, seconds float64) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) added(n int) {
	if m != nil {
		m.QuadsAdded.Add(float64(n))
	}
}

func (m *Metrics) removed(n int) {
	if m != nil {
		m.QuadsRemoved.Add(float64(n))
	}
}
