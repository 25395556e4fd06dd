package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// collector identifies this process and where its signals go. Both
// providers are built from the same value so traces and metrics carry an
// identical resource.
type collector struct {
	service  string
	version  string
	instance string
	endpoint string
	insecure bool
}

func newCollector(cfg *Config, instance string) collector {
	return collector{
		service:  cfg.GetServiceName(),
		version:  cfg.GetServiceVersion(),
		instance: instance,
		endpoint: cfg.GetEndpoint(),
		insecure: cfg.GetInsecure(),
	}
}

func (c collector) resource(ctx context.Context) (*resource.Resource, error) {
	attrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceName(c.service),
			semconv.ServiceVersion(c.version),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	}
	if c.instance != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceInstanceID(c.instance)))
	}

	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// tracerProvider returns a no-op provider unless tracing is enabled. An SDK
// provider is installed globally along with the W3C propagator.
func (c collector) tracerProvider(
	ctx context.Context,
	res *resource.Resource,
	tc *TracingConfig,
) (trace.TracerProvider, error) {
	if tc == nil || !tc.Enabled {
		slog.Debug("Tracing disabled")
		return tracenoop.NewTracerProvider(), nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.endpoint)}
	if c.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tc.GetSampling()))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("Tracing initialized",
		"endpoint", c.endpoint,
		"sampling_ratio", tc.GetSampling(),
		"insecure", c.insecure)
	return tp, nil
}

// meterProvider attaches an OTLP push reader when metrics are enabled and a
// Prometheus pull reader when reg is set. With neither it is a no-op.
func (c collector) meterProvider(
	ctx context.Context,
	res *resource.Resource,
	mc *MetricsConfig,
	reg *prometheus.Registry,
) (metric.MeterProvider, error) {
	push := mc != nil && mc.Enabled
	if !push && reg == nil {
		slog.Debug("Metrics disabled")
		return metricnoop.NewMeterProvider(), nil
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if push {
		exportOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(c.endpoint)}
		if c.insecure {
			exportOpts = append(exportOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exportOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(mc.GetInterval())),
		))
	}

	if reg != nil {
		reader, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized",
		"otlp", push,
		"interval", mc.GetInterval(),
		"endpoint", c.endpoint,
		"prometheus", reg != nil)
	return mp, nil
}
