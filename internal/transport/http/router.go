package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"postcheck/internal/platform/metrics"
	"postcheck/internal/platform/middleware"
	"postcheck/pkg/platform/httputil"
)

// Registrar mounts a module's routes. Module handlers stay thin and delegate
// to their services so transport concerns remain isolated.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps collects what the router needs. Metrics, Gatherer and Health are
// optional.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Health         HealthChecker
	RequestTimeout time.Duration
	Handlers       []Registrar
}

// NewRouter wires the shared middleware stack, the operational endpoints and
// every module's routes.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}

	r.Get("/health", healthHandler(d.Health))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	for _, h := range d.Handlers {
		h.Register(r)
	}
	return r
}

func healthHandler(hc HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hc != nil {
			if err := hc.Health(r.Context()); err != nil {
				httputil.WriteError(w, err)
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
