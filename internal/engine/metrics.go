package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	changeLogEntries prometheus.Counter
	mergeBranches    *prometheus.CounterVec
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphledger_requests_total",
			Help: "Requests executed, by operation and status (ok or error code).",
		}, []string{"operation", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "graphledger_request_duration_seconds",
			Help:    "Wall time of a request including every store round trip.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"operation"}),
		changeLogEntries: factory.NewCounter(prometheus.CounterOpts{
			Name: "graphledger_changelog_entries_total",
			Help: "Change log numbers sent to the store in successful statements.",
		}),
		mergeBranches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphledger_merge_branches_total",
			Help: "Merge steps taken after the probe, by entity kind and step.",
		}, []string{"kind", "branch"}),
	}
}

func (m *Metrics) observeRequest(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) addChangeLogEntries(n int) {
	if m == nil || n == 0 {
		return
	}
	m.changeLogEntries.Add(float64(n))
}

func (m *Metrics) mergeBranch(kind string, step MergeStep) {
	if m == nil {
		return
	}
	m.mergeBranches.WithLabelValues(kind, step.String()).Inc()
}
