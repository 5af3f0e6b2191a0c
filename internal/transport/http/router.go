// Package httptransport exposes the operational HTTP surface: health and
// Prometheus metrics. Form input never arrives over HTTP.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dErrors "formcheck/pkg/domain-errors"
	"formcheck/pkg/platform/httputil"
	"formcheck/pkg/platform/middleware/requestscope"
	"formcheck/pkg/requestcontext"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handler serves health and metrics.
type Handler struct {
	checks   map[string]HealthCheck
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

func NewHandler(gatherer prometheus.Gatherer, checks map[string]HealthCheck, logger *slog.Logger) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{checks: checks, gatherer: gatherer, logger: logger}
}

// NewRouter wires the operational endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestscope.Middleware)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed",
				"request_id", requestcontext.RequestID(ctx),
				"dependency", name,
				"error", err,
			)
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "dependency unavailable"))
		return
	}
	status["status"] = "ok"
	httputil.WriteJSON(w, http.StatusOK, status)
}
