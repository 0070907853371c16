// Package observability provides Prometheus metrics for the processing
// pipeline. Metrics are exposed via the /metrics endpoint; all operations
// are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "invoiceproc"

// EngineMetrics holds the counters and histograms for OCR document
// processing. Initialize once at startup via NewEngineMetrics().
type EngineMetrics struct {
	// DocumentsTotal counts processed documents by outcome.
	// Labels: outcome (accepted, rejected, duplicate, precondition_failed)
	DocumentsTotal *prometheus.CounterVec

	// DiagnosticsTotal counts diagnostics emitted by severity.
	// Labels: severity (error, warning)
	DiagnosticsTotal *prometheus.CounterVec

	// ProcessDurationSeconds measures end-to-end map+validate latency.
	ProcessDurationSeconds prometheus.Histogram
}

// Outcome label values for DocumentsTotal.
const (
	OutcomeAccepted           = "accepted"
	OutcomeRejected           = "rejected"
	OutcomeDuplicate          = "duplicate"
	OutcomePreconditionFailed = "precondition_failed"
)

// NewEngineMetrics registers the pipeline metrics with reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry to
// avoid duplicate registration.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	factory := promauto.With(reg)
	return &EngineMetrics{
		DocumentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "documents_total",
			Help:      "Processed OCR documents by outcome.",
		}, []string{"outcome"}),
		DiagnosticsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics emitted by severity.",
		}, []string{"severity"}),
		ProcessDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "process_duration_seconds",
			Help:      "Latency of the map+validate pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}
