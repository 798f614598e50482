package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"contactsync/internal/platform/health"
	"contactsync/pkg/platform/middleware/request"
)

// Routes bundles the handlers mounted by NewRouter. Health and Metrics are
// optional.
type Routes struct {
	Sync    *Handler
	Health  *health.Handler
	Metrics http.Handler

	// Latency records per-route latency when set.
	Latency *request.Metrics
}

// NewRouter wires the sync trigger and operational endpoints.
//
// No request timeout is applied: a cycle runs to completion regardless of
// how long the upstream APIs take.
func NewRouter(routes Routes, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	if routes.Latency != nil {
		r.Use(request.LatencyMiddleware(routes.Latency, routePattern))
	}

	r.Get("/sync", routes.Sync.HandleSync)
	r.Post("/sync", routes.Sync.HandleSync)

	if routes.Health != nil {
		routes.Health.Register(r)
	}
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics)
	}
	return r
}

// routePattern keeps the latency label set bounded to registered routes.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
