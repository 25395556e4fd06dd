package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// collectorStub accepts OTLP exports so that flushing on Shutdown succeeds
func collectorStub(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		config      func(endpoint string) *Config
		sdkTracer   bool
		sdkMeter    bool
		scrape      bool
		errContains string
	}{
		{
			name:   "nil config",
			config: func(string) *Config { return nil },
		},
		{
			name: "disabled",
			config: func(string) *Config {
				return &Config{Enabled: false, Tracing: &TracingConfig{Enabled: true}}
			},
		},
		{
			name: "enabled without signals",
			config: func(string) *Config {
				return &Config{
					Enabled: true,
					Tracing: &TracingConfig{Enabled: false},
					Metrics: &MetricsConfig{Enabled: false},
				}
			},
		},
		{
			name: "tracing only",
			config: func(endpoint string) *Config {
				return &Config{
					Enabled:  true,
					Endpoint: endpoint,
					Insecure: true,
					Tracing:  &TracingConfig{Enabled: true, Sampling: 1},
				}
			},
			sdkTracer: true,
		},
		{
			name: "otlp metrics only",
			config: func(endpoint string) *Config {
				return &Config{
					Enabled:  true,
					Endpoint: endpoint,
					Insecure: true,
					Metrics:  &MetricsConfig{Enabled: true},
				}
			},
			sdkMeter: true,
		},
		{
			name: "prometheus scrape without otlp",
			config: func(string) *Config {
				return &Config{Enabled: true, Prometheus: &PrometheusConfig{Enabled: true}}
			},
			sdkMeter: true,
			scrape:   true,
		},
		{
			name: "everything",
			config: func(endpoint string) *Config {
				return &Config{
					Enabled:    true,
					Endpoint:   endpoint,
					Insecure:   true,
					Tracing:    &TracingConfig{Enabled: true, Sampling: 0.1},
					Metrics:    &MetricsConfig{Enabled: true},
					Prometheus: &PrometheusConfig{Enabled: true, Path: "/internal/metrics"},
				}
			},
			sdkTracer: true,
			sdkMeter:  true,
			scrape:    true,
		},
		{
			name: "sampling out of range",
			config: func(string) *Config {
				return &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}}
			},
			errContains: "invalid telemetry configuration",
		},
		{
			name: "relative scrape path",
			config: func(string) *Config {
				return &Config{Enabled: true, Prometheus: &PrometheusConfig{Enabled: true, Path: "metrics"}}
			},
			errContains: "must start with '/'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			cfg := tt.config(collectorStub(t))
			tel, err := New(ctx, WithTelemetryConfig(cfg), WithInstance("field-ops"))
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)

			if tt.sdkTracer {
				assert.IsType(t, &sdktrace.TracerProvider{}, tel.TracerProvider())
			} else {
				assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
			}
			if tt.sdkMeter {
				assert.IsType(t, &sdkmetric.MeterProvider{}, tel.MeterProvider())
			} else {
				assert.IsType(t, metricnoop.MeterProvider{}, tel.MeterProvider())
			}

			handler, path := tel.MetricsHandler()
			if tt.scrape {
				require.NotNil(t, handler)
				assert.Equal(t, cfg.Prometheus.GetPath(), path)
			} else {
				assert.Nil(t, handler)
			}

			assert.NotNil(t, tel.Tracer("loader"))
			assert.NotNil(t, tel.Meter("loader"))

			require.NoError(t, tel.Shutdown(ctx))
			// second call has nothing left to flush
			require.NoError(t, tel.Shutdown(ctx))
		})
	}
}

func TestTelemetry_Options(t *testing.T) {
	t.Parallel()

	cfg := &Config{Enabled: true, ServiceName: "ingest"}
	o := &options{}
	WithTelemetryConfig(cfg)(o)
	WithInstance("field-ops")(o)

	assert.Same(t, cfg, o.config)
	assert.Equal(t, "field-ops", o.instance)
}

func TestTelemetry_ScrapeServesIngestMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tel, err := New(ctx, WithTelemetryConfig(&Config{
		Enabled:    true,
		Prometheus: &PrometheusConfig{Enabled: true},
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(ctx) })

	handler, path := tel.MetricsHandler()
	require.NotNil(t, handler)
	assert.Equal(t, DefaultPrometheusPath, path)

	ingest, err := NewIngestMetrics(tel.MeterProvider())
	require.NoError(t, err)
	ingest.RecordSourceLoad(ctx, "petro", "ok", 20*time.Millisecond, 3)
	ingest.RecordSnapshot(ctx, 3, 1)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "omnifield_source_rows")
	assert.Contains(t, body, `source="petro"`)
	assert.Contains(t, body, "omnifield_snapshot_loads_total")
}

func TestTelemetry_ShutdownWithoutProviders(t *testing.T) {
	t.Parallel()

	tel := noopTelemetry()
	require.NoError(t, tel.Shutdown(context.Background()))
	assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
	assert.IsType(t, metricnoop.MeterProvider{}, tel.MeterProvider())
}
