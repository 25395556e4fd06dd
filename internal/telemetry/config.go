// Package telemetry wires OpenTelemetry tracing and metrics for the ingestion
// server. Traces and metrics go to an OTLP collector; metrics can also be
// scraped through a Prometheus endpoint.
package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults applied by the getters below
const (
	DefaultServiceName     = "omnifield-ingest"
	DefaultServiceVersion  = "unknown"
	DefaultEndpoint        = "localhost:4318"
	DefaultSampling        = 0.05
	DefaultPrometheusPath  = "/metrics"
	DefaultMetricsInterval = 60 * time.Second
)

// Config is the telemetry section of the server configuration. Nothing is
// exported unless Enabled is set, whatever the nested sections say.
type Config struct {
	Enabled        bool   `yaml:"enabled"`
	ServiceName    string `yaml:"serviceName,omitempty"`
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP/HTTP collector as host:port; the exporters add
	// /v1/traces and /v1/metrics
	Endpoint string `yaml:"endpoint,omitempty"`
	// Insecure sends OTLP over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing    *TracingConfig    `yaml:"tracing,omitempty"`
	Metrics    *MetricsConfig    `yaml:"metrics,omitempty"`
	Prometheus *PrometheusConfig `yaml:"prometheus,omitempty"`
}

// TracingConfig controls span export
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of root traces kept, 0 < s <= 1. Zero selects
	// DefaultSampling because YAML cannot tell it apart from unset.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig controls OTLP metric push
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interval between pushes as a Go duration, default 60s
	Interval string `yaml:"interval,omitempty"`
}

// PrometheusConfig controls the scrape endpoint. It works with or without
// OTLP metric push.
type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// GetServiceName returns the service name or DefaultServiceName
func (c *Config) GetServiceName() string { return orDefault(c.ServiceName, DefaultServiceName) }

// GetServiceVersion returns the service version or DefaultServiceVersion
func (c *Config) GetServiceVersion() string {
	return orDefault(c.ServiceVersion, DefaultServiceVersion)
}

// GetEndpoint returns the collector endpoint or DefaultEndpoint
func (c *Config) GetEndpoint() string { return orDefault(c.Endpoint, DefaultEndpoint) }

// GetInsecure reports whether OTLP uses plain HTTP
func (c *Config) GetInsecure() bool { return c.Insecure }

// PrometheusEnabled reports whether the scrape endpoint should be served
func (c *Config) PrometheusEnabled() bool {
	return c != nil && c.Enabled && c.Prometheus != nil && c.Prometheus.Enabled
}

// GetSampling returns the sampling ratio
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetInterval returns the push interval. Invalid values fall back to the
// default; Validate reports them.
func (c *MetricsConfig) GetInterval() time.Duration {
	if c == nil || c.Interval == "" {
		return DefaultMetricsInterval
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return DefaultMetricsInterval
	}
	return d
}

// GetPath returns the scrape path
func (c *PrometheusConfig) GetPath() string {
	if c == nil {
		return DefaultPrometheusPath
	}
	return orDefault(c.Path, DefaultPrometheusPath)
}

// Validate checks the enabled sections and joins every problem found. A nil
// or disabled configuration is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	sections := []struct {
		name string
		err  error
	}{
		{"tracing", c.Tracing.Validate()},
		{"metrics", c.Metrics.Validate()},
		{"prometheus", c.Prometheus.Validate()},
	}

	var errs []error
	for _, s := range sections {
		if s.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, s.err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks the sampling ratio
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.Sampling < 0 || c.Sampling > 1 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}

// Validate checks the push interval
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled || c.Interval == "" {
		return nil
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", c.Interval, err)
	}
	if d <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	return nil
}

// Validate checks the scrape path
func (c *PrometheusConfig) Validate() error {
	if c == nil || !c.Enabled || c.Path == "" {
		return nil
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with '/', got %q", c.Path)
	}
	return nil
}
