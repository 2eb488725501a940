package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// providerAttempts counts provider calls by model and outcome
	// (success, retry, exhausted).
	providerAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideas_provider_attempts_total",
			Help: "Generation provider attempts by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	// providerLatency records the duration of single provider calls.
	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ideas_provider_call_duration_seconds",
			Help:    "Duration of generation provider calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"model"},
	)

	// batchSlots counts processed slots by final status
	// (generated, fallback, unscheduled, skipped).
	batchSlots = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideas_batch_slots_total",
			Help: "Batch slots by final status.",
		},
		[]string{"status"},
	)

	// batchRuns counts batch runs by tier and result
	// (ok, partial, rejected).
	batchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideas_batch_runs_total",
			Help: "Batch runs by owner tier and result.",
		},
		[]string{"tier", "result"},
	)
)

func init() {
	prometheus.MustRegister(providerAttempts, providerLatency, batchSlots, batchRuns)
}

// ObserveProviderAttempt records one provider call.
func ObserveProviderAttempt(model, outcome string, elapsed time.Duration) {
	providerAttempts.WithLabelValues(model, outcome).Inc()
	providerLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveSlot records the final status of one batch slot.
func ObserveSlot(status string) {
	batchSlots.WithLabelValues(status).Inc()
}

// ObserveBatch records a finished or rejected batch.
func ObserveBatch(tier, result string) {
	batchRuns.WithLabelValues(tier, result).Inc()
}
