package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the reconciliation engine.
type Metrics struct {
	RecordsApplied prometheus.Counter
	RecordsSkipped prometheus.Counter
	RecordsErrored prometheus.Counter

	Suspensions   *prometheus.CounterVec
	Lookups       *prometheus.CounterVec
	BatchDuration prometheus.Histogram
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// registry so suites never collide on metric names.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "recon_records_applied_total",
			Help: "Batch detail records fully applied to a notice",
		}),
		RecordsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "recon_records_skipped_total",
			Help: "Batch records skipped (parse or unresolved identity)",
		}),
		RecordsErrored: factory.NewCounter(prometheus.CounterOpts{
			Name: "recon_records_errored_total",
			Help: "Batch records rolled back after a mutation failure",
		}),
		Suspensions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recon_suspensions_total",
			Help: "Suspensions recorded, by type and reason",
		}, []string{"type", "reason"}),
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recon_lookups_total",
			Help: "Secondary identity lookups, by outcome",
		}, []string{"status"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recon_batch_duration_seconds",
			Help:    "Wall time to process one inbound batch file",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}
