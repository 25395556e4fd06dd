// Package api provides the REST API server for the ingestion registry.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/omnifield-ingest/internal/api/common"
	v1 "github.com/stacklok/omnifield-ingest/internal/api/v1"
	"github.com/stacklok/omnifield-ingest/internal/registry"
	"github.com/stacklok/omnifield-ingest/internal/versions"
)

// Registry is what the server needs from the table registry
type Registry interface {
	v1.Registry
	Current() *registry.Snapshot
}

// ServerOption configures the registry API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	routeOptions   []v1.Option
	metricsPath    string
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithStatusLister adds tracked status to the sources listing
func WithStatusLister(s v1.StatusLister) ServerOption {
	return func(cfg *serverConfig) {
		cfg.routeOptions = append(cfg.routeOptions, v1.WithStatusLister(s))
	}
}

// WithDashboard mounts the dashboard module routes
func WithDashboard(d v1.Dashboard) ServerOption {
	return func(cfg *serverConfig) {
		cfg.routeOptions = append(cfg.routeOptions, v1.WithDashboard(d))
	}
}

// WithMetricsHandler serves a Prometheus scrape handler at path. A nil
// handler is ignored.
func WithMetricsHandler(h http.Handler, path string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
		cfg.metricsPath = path
	}
}

// NewServer creates and configures the HTTP router
func NewServer(reg Registry, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(reg))
	r.Get("/version", versionHandler)

	if cfg.metricsHandler != nil && cfg.metricsPath != "" {
		r.Method(http.MethodGet, cfg.metricsPath, cfg.metricsHandler)
	}

	r.Mount("/v1", v1.Router(reg, cfg.routeOptions...))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler reports ready once the first snapshot has been built
func readinessHandler(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := reg.Current()
		if snap == nil {
			common.WriteErrorResponse(w, "registry not ready: no snapshot loaded", http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, ReadinessResponse{
			Status:     "ready",
			SnapshotID: snap.ID,
			Degraded:   snap.Degraded(),
		}, http.StatusOK)
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
