package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP and classification metrics for the application.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	Classifications *prometheus.CounterVec
}

// New creates and registers all application metrics on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postcheck_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route, method and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "method", "status"}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postcheck_classifications_total",
			Help: "Total number of postal code classifications by outcome",
		}, []string{"status", "message"}),
	}
}

// ObserveRequest records the duration of a completed HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(route, method, status).Observe(time.Since(start).Seconds())
}

// IncrementClassification records one classification outcome.
func (m *Metrics) IncrementClassification(status, message string) {
	m.Classifications.WithLabelValues(status, message).Inc()
}

// Handler exposes the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
