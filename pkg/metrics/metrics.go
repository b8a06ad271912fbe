package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Call gate metrics
	GateSessionsActive  prometheus.Gauge
	GateVerifications   *prometheus.CounterVec
	GateRechecks        prometheus.Counter
	GateRevocations     *prometheus.CounterVec
	GateRecheckLatency  prometheus.Histogram

	// Access decision metrics
	AccessDecisions *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		GateSessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gate_sessions_active",
			Help:      "Current number of call sessions holding a live access grant",
		}),
		GateVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_verifications_total",
			Help:      "Total number of call verification attempts",
		}, []string{"result"}),
		GateRechecks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rechecks_total",
			Help:      "Total number of periodic access re-checks",
		}),
		GateRevocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_revocations_total",
			Help:      "Total number of mid-call revocations by reason",
		}, []string{"reason"}),
		GateRecheckLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gate_recheck_duration_seconds",
			Help:      "Time spent re-verifying a live call session",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		AccessDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Total number of patient-data access decisions",
		}, []string{"role", "allowed"}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}
