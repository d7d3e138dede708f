package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the lifecycle Prometheus collectors.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	MigrationDuration prometheus.Histogram
	Reconciled        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgmgr_lifecycle_operations_total",
				Help: "Lifecycle operations by operation and outcome code",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgmgr_lifecycle_operation_duration_seconds",
				Help:    "Duration of lifecycle operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		MigrationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "orgmgr_collection_migration_duration_seconds",
				Help:    "Duration of copy-and-retarget of a tenant collection",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		Reconciled: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgmgr_reconciled_operations_total",
				Help: "Interrupted operations resumed by reconciliation, by kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) observe(op string, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, Code(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) migration(took time.Duration) {
	if m == nil {
		return
	}
	m.MigrationDuration.Observe(took.Seconds())
}

func (m *Metrics) reconciled(kind string) {
	if m == nil {
		return
	}
	m.Reconciled.WithLabelValues(kind).Inc()
}
