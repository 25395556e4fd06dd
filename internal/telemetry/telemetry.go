package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Telemetry owns the tracer and meter providers of one server process
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	scrape     http.Handler
	scrapePath string

	// flushers run in order on Shutdown; SDK providers register theirs
	flushers []func(context.Context) error
}

// Option configures New
type Option func(*options)

type options struct {
	config   *Config
	instance string
}

// WithTelemetryConfig sets the telemetry configuration. A nil or disabled
// configuration yields no-op providers.
func WithTelemetryConfig(cfg *Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithInstance names this registry instance; it is exported as the
// service.instance.id resource attribute.
func WithInstance(name string) Option {
	return func(o *options) {
		o.instance = name
	}
}

// New builds the providers described by the configuration. Callers own the
// result and must call Shutdown.
func New(ctx context.Context, opts ...Option) (*Telemetry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.config
	if cfg == nil || !cfg.Enabled {
		slog.Debug("Telemetry disabled")
		return noopTelemetry(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	c := newCollector(cfg, o.instance)
	res, err := c.resource(ctx)
	if err != nil {
		return nil, err
	}

	t := &Telemetry{scrapePath: cfg.Prometheus.GetPath()}

	t.tracerProvider, err = c.tracerProvider(ctx, res, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	if f, ok := t.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		t.flushers = append(t.flushers, f.Shutdown)
	}

	var reg *prometheus.Registry
	if cfg.PrometheusEnabled() {
		reg = prometheus.NewRegistry()
		t.scrape = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	t.meterProvider, err = c.meterProvider(ctx, res, cfg.Metrics, reg)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}
	if f, ok := t.meterProvider.(interface{ Shutdown(context.Context) error }); ok {
		t.flushers = append(t.flushers, f.Shutdown)
	}

	slog.Info("Telemetry initialized",
		"service_name", c.service,
		"service_version", c.version,
		"instance", c.instance)
	return t, nil
}

func noopTelemetry() *Telemetry {
	return &Telemetry{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
}

// MetricsHandler returns the Prometheus scrape handler and its mount path.
// The handler is nil when scraping is disabled.
func (t *Telemetry) MetricsHandler() (http.Handler, string) {
	return t.scrape, t.scrapePath
}

// TracerProvider returns the tracer provider
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// Tracer returns a named tracer
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter returns a named meter
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return t.meterProvider.Meter(name, opts...)
}

// Shutdown flushes pending spans and metrics. Calling it again is harmless.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	flushers := t.flushers
	t.flushers = nil
	if len(flushers) == 0 {
		return nil
	}

	var errs []error
	for _, flush := range flushers {
		if err := flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to shutdown telemetry: %w", err)
	}
	slog.Info("Telemetry shutdown complete")
	return nil
}
