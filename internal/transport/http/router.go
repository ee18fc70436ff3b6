// Package httptransport assembles the public HTTP router.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sbname/internal/catalog/handler"
	"sbname/internal/platform/health"
	"sbname/pkg/platform/middleware/request"
)

// Deps are the handlers and settings the router mounts.
type Deps struct {
	Logger         *slog.Logger
	Catalog        *handler.Handler
	Health         *health.Handler
	Metrics        http.Handler
	HTTPMetrics    *request.Metrics
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	r.Use(request.Latency(d.HTTPMetrics))

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(request.Timeout(d.RequestTimeout))
		}
		if d.MaxBodyBytes > 0 {
			r.Use(request.BodyLimit(d.MaxBodyBytes))
		}
		r.Use(request.ContentTypeJSON)
		d.Catalog.Register(r)
	})

	return r
}
