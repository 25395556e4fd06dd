package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/omnifield-ingest/internal/api"
	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/dashboard"
	"github.com/stacklok/omnifield-ingest/internal/registry"
	"github.com/stacklok/omnifield-ingest/internal/sources"
	"github.com/stacklok/omnifield-ingest/internal/status"
	pkgsync "github.com/stacklok/omnifield-ingest/internal/sync"
	"github.com/stacklok/omnifield-ingest/internal/sync/coordinator"
	"github.com/stacklok/omnifield-ingest/internal/sync/watcher"
	"github.com/stacklok/omnifield-ingest/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	registryTracerName  = "github.com/stacklok/omnifield-ingest/registry"
	dashboardTracerName = "github.com/stacklok/omnifield-ingest/dashboard"
)

// RegistryAppOptions is a function that configures the registry app builder
type RegistryAppOptions func(*registryAppConfig) error

// registryAppConfig collects the builder inputs. Component overrides are
// primarily for testing.
type registryAppConfig struct {
	config *config.Config

	handlerFactory    sources.SourceHandlerFactory
	statusPersistence status.StatusPersistence
	schemaStore       sources.SchemaStore
	syncManager       pkgsync.Manager
	telemetry         *telemetry.Telemetry

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...RegistryAppOptions) (*registryAppConfig, error) {
	cfg := &registryAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewRegistryApp builds every component from the configuration. Nothing is
// loaded and no goroutine is started until Start.
func NewRegistryApp(ctx context.Context, opts ...RegistryAppOptions) (*RegistryApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(ctx,
			telemetry.WithTelemetryConfig(cfg.config.Telemetry),
			telemetry.WithInstance(cfg.config.GetRegistryName()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	components, err := buildRegistryComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry components: %w", err)
	}
	components.Telemetry = cfg.telemetry

	if err := buildSyncComponents(cfg, components); err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &RegistryApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithSourceHandlerFactory allows injecting a custom source handler factory (for testing)
func WithSourceHandlerFactory(f sources.SourceHandlerFactory) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.handlerFactory = f
		return nil
	}
}

// WithStatusPersistence allows injecting a custom status store (for testing)
func WithStatusPersistence(p status.StatusPersistence) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.statusPersistence = p
		return nil
	}
}

// WithSchemaStore allows injecting a custom schema store (for testing)
func WithSchemaStore(s sources.SchemaStore) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.schemaStore = s
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing)
func WithSyncManager(sm pkgsync.Manager) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithTelemetry uses an existing telemetry instance instead of building one
func WithTelemetry(t *telemetry.Telemetry) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildRegistryComponents builds the registry, status tracker and dashboard
func buildRegistryComponents(ctx context.Context, b *registryAppConfig) (*AppComponents, error) {
	slog.Info("Initializing registry components", "sources", len(b.config.Sources))

	if b.handlerFactory == nil {
		b.handlerFactory = sources.NewSourceHandlerFactory()
	}
	if b.statusPersistence == nil {
		b.statusPersistence = status.NewFileStatusPersistence(b.config.GetStatusDir())
	}
	if b.schemaStore == nil {
		b.schemaStore = sources.NewFileSchemaStore(b.config.GetSchemaDir())
	}

	tracker := status.NewTracker(b.statusPersistence)
	if err := tracker.Initialize(ctx, b.config.SourceNames()); err != nil {
		// Stale status is informational only
		slog.Warn("Failed to restore source status", "error", err)
	}

	ingestMetrics, err := telemetry.NewIngestMetrics(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest metrics: %w", err)
	}

	cache := b.config.Cache
	reg := registry.New(b.config.Sources, b.handlerFactory,
		registry.WithTTL(cache.GetTTL()),
		registry.WithParallelism(cache.GetParallelism()),
		registry.WithDefaultTimeout(cache.GetDefaultTimeout()),
		registry.WithSchemaStore(b.schemaStore),
		registry.WithObserver(tracker),
		registry.WithMetrics(ingestMetrics),
		registry.WithTracer(b.telemetry.Tracer(registryTracerName)),
		registry.WithWarningSink(registry.NewSlogSink(slog.Default())),
	)

	bindings, err := dashboard.BindingsFromConfig(b.config.Dashboard)
	if err != nil {
		return nil, err
	}
	var forecast *config.ForecastConfig
	if b.config.Dashboard != nil {
		forecast = b.config.Dashboard.Forecast
	}
	dash := dashboard.New(reg,
		dashboard.WithBindings(bindings),
		dashboard.WithDecline(dashboard.DeclineParamsFromConfig(forecast)),
		dashboard.WithTracer(b.telemetry.Tracer(dashboardTracerName)),
	)

	slog.Info("Registry components initialized",
		"ttl", cache.GetTTL(),
		"parallelism", cache.GetParallelism(),
		"default_timeout", cache.GetDefaultTimeout())

	return &AppComponents{
		Registry:  reg,
		Tracker:   tracker,
		Dashboard: dash,
	}, nil
}

// buildSyncComponents builds the refresh coordinator and the file watcher
// when the configuration asks for them
func buildSyncComponents(b *registryAppConfig, c *AppComponents) error {
	if interval := b.config.Cache.GetRefreshInterval(); interval > 0 {
		if b.syncManager == nil {
			b.syncManager = pkgsync.NewManager(c.Registry, pkgsync.NewDataChangeDetector(b.handlerFactory))
		}

		refreshMetrics, err := telemetry.NewRefreshMetrics(b.telemetry.MeterProvider())
		if err != nil {
			return fmt.Errorf("failed to create refresh metrics: %w", err)
		}

		c.SyncCoordinator = coordinator.New(b.syncManager,
			coordinator.WithInterval(interval),
			coordinator.WithRefreshMetrics(refreshMetrics),
		)
		slog.Info("Background refresh enabled", "interval", interval)
	}

	if b.config.Cache.Watch {
		w, err := watcher.New(c.Registry, b.config.Sources)
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		c.Watcher = w
		slog.Info("File watching enabled", "paths", w.Paths())
	}

	return nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(_ context.Context, b *registryAppConfig, c *AppComponents) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	var front []func(http.Handler) http.Handler
	if tel := c.Telemetry; tel != nil {
		instrument, err := tel.HTTPMiddleware()
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP instrumentation: %w", err)
		}
		front = append(front, instrument)
	}
	middlewares := append(front, b.middlewares...)

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(middlewares...),
		api.WithStatusLister(c.Tracker),
		api.WithDashboard(c.Dashboard),
	}
	if tel := c.Telemetry; tel != nil {
		if handler, path := tel.MetricsHandler(); handler != nil {
			serverOpts = append(serverOpts, api.WithMetricsHandler(handler, path))
			slog.Info("Prometheus scrape endpoint enabled", "path", path)
		}
	}

	server := &http.Server{
		Addr:         b.address,
		Handler:      api.NewServer(c.Registry, serverOpts...),
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
