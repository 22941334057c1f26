package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records metadata for reconciliation sweeps.
type SettlementMetrics struct {
	sweepDuration *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
	lookupErrors  prometheus.Counter
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	sweepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_sweep_duration_seconds",
		Help:    "Duration of settlement poll sweeps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_reconcile_outcomes_total",
		Help: "Reconcile outcomes by class.",
	}, []string{"outcome"})
	lookupErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_gateway_lookup_errors_total",
		Help: "Gateway lookup failures during poll sweeps.",
	})
	reg.MustRegister(sweepDuration, outcomes, lookupErrors)
	return &SettlementMetrics{
		sweepDuration: sweepDuration,
		outcomes:      outcomes,
		lookupErrors:  lookupErrors,
	}
}

// ObserveSweep records the duration of one full sweep.
func (m *SettlementMetrics) ObserveSweep(result string, duration time.Duration) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.sweepDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// IncOutcome counts one reconcile outcome.
func (m *SettlementMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// IncLookupError counts one failed gateway lookup.
func (m *SettlementMetrics) IncLookupError() {
	if m == nil || m.lookupErrors == nil {
		return
	}
	m.lookupErrors.Inc()
}
