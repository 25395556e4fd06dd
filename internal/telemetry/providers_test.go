package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNewCollector_Defaults(t *testing.T) {
	t.Parallel()

	c := newCollector(&Config{}, "")
	assert.Equal(t, DefaultServiceName, c.service)
	assert.Equal(t, "unknown", c.version)
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.False(t, c.insecure)

	c = newCollector(&Config{
		ServiceName:    "ingest",
		ServiceVersion: "v0.3.0",
		Endpoint:       "otel.field.local:4318",
		Insecure:       true,
	}, "field-ops")
	assert.Equal(t, collector{
		service:  "ingest",
		version:  "v0.3.0",
		instance: "field-ops",
		endpoint: "otel.field.local:4318",
		insecure: true,
	}, c)
}

func TestCollector_Resource(t *testing.T) {
	t.Parallel()

	values := func(c collector) map[attribute.Key]string {
		res, err := c.resource(context.Background())
		require.NoError(t, err)
		out := make(map[attribute.Key]string)
		for _, kv := range res.Attributes() {
			out[kv.Key] = kv.Value.Emit()
		}
		return out
	}

	attrs := values(collector{service: "ingest", version: "v1", instance: "field-ops"})
	assert.Equal(t, "ingest", attrs[semconv.ServiceNameKey])
	assert.Equal(t, "v1", attrs[semconv.ServiceVersionKey])
	assert.Equal(t, "field-ops", attrs[semconv.ServiceInstanceIDKey])

	attrs = values(collector{service: "ingest", version: "v1"})
	_, ok := attrs[semconv.ServiceInstanceIDKey]
	assert.False(t, ok)
}

func TestCollector_TracerProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := collector{service: "ingest", version: "v1", endpoint: DefaultEndpoint, insecure: true}
	res, err := c.resource(ctx)
	require.NoError(t, err)

	for _, tc := range []*TracingConfig{nil, {Enabled: false, Sampling: 1}} {
		tp, err := c.tracerProvider(ctx, res, tc)
		require.NoError(t, err)
		assert.IsType(t, tracenoop.TracerProvider{}, tp)
	}

	tp, err := c.tracerProvider(ctx, res, &TracingConfig{Enabled: true, Sampling: 0.5})
	require.NoError(t, err)
	sdkTP, ok := tp.(*sdktrace.TracerProvider)
	require.True(t, ok)
	// no collector is listening; nothing was sampled into the batcher
	require.NoError(t, sdkTP.Shutdown(ctx))
}

func TestCollector_MeterProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := collector{service: "ingest", version: "v1", endpoint: DefaultEndpoint, insecure: true}
	res, err := c.resource(ctx)
	require.NoError(t, err)

	mp, err := c.meterProvider(ctx, res, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, metricnoop.MeterProvider{}, mp)

	mp, err = c.meterProvider(ctx, res, &MetricsConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.IsType(t, metricnoop.MeterProvider{}, mp)

	mp, err = c.meterProvider(ctx, res, &MetricsConfig{Enabled: true}, nil)
	require.NoError(t, err)
	sdkMP, ok := mp.(*sdkmetric.MeterProvider)
	require.True(t, ok)
	// the final OTLP flush fails without a collector
	_ = sdkMP.Shutdown(ctx)
}

func TestCollector_MeterProvider_PrometheusOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := collector{service: "ingest", version: "v1", instance: "field-ops"}
	res, err := c.resource(ctx)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	mp, err := c.meterProvider(ctx, res, nil, reg)
	require.NoError(t, err)
	sdkMP, ok := mp.(*sdkmetric.MeterProvider)
	require.True(t, ok)
	t.Cleanup(func() { _ = sdkMP.Shutdown(ctx) })

	refresh, err := NewRefreshMetrics(mp)
	require.NoError(t, err)
	require.NotNil(t, refresh)

	ingest, err := NewIngestMetrics(mp)
	require.NoError(t, err)
	ingest.RecordSnapshot(ctx, 2, 1)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "omnifield_snapshot_loads_total")
}
