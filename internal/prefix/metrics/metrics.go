package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for registry mutations.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics provides observability for the prefix registry.
// Tracks mutation outcomes and store round-trip durations.
type Metrics struct {
	Mutations         *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	BootstrapsApplied prometheus.Counter
}

// New creates the registry metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postcheck_prefix_mutations_total",
			Help: "Total number of prefix registry mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postcheck_prefix_store_duration_seconds",
			Help:    "Duration of prefix store operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
		BootstrapsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "postcheck_prefix_bootstraps_applied_total",
			Help: "Number of times the registry was seeded",
		}),
	}
}

// IncrementMutation records the outcome of an add or remove.
func (m *Metrics) IncrementMutation(op, outcome string) {
	m.Mutations.WithLabelValues(op, outcome).Inc()
}

// ObserveOperation records the duration of a store call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
