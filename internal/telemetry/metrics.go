package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// IngestMetricsMeterName is the meter used for source and snapshot loads
	IngestMetricsMeterName = "github.com/stacklok/omnifield-ingest/ingest"

	// RefreshMetricsMeterName is the meter used by the refresh coordinator
	RefreshMetricsMeterName = "github.com/stacklok/omnifield-ingest/refresh"
)

// IngestMetrics records per-source load outcomes and snapshot composition.
// A nil *IngestMetrics is a valid no-op recorder.
type IngestMetrics struct {
	loadDuration  metric.Float64Histogram
	sourceRows    metric.Int64Gauge
	snapshotLoads metric.Int64Counter
	sources       metric.Int64Gauge
}

// NewIngestMetrics creates the load instruments. If provider is nil, it
// returns nil (no-op metrics).
func NewIngestMetrics(provider metric.MeterProvider) (*IngestMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(IngestMetricsMeterName)

	loadDuration, err := meter.Float64Histogram(
		"omnifield_source_load_duration_seconds",
		metric.WithDescription("Duration of single source loads in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	sourceRows, err := meter.Int64Gauge(
		"omnifield_source_rows",
		metric.WithDescription("Rows in the table currently bound to each source"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	snapshotLoads, err := meter.Int64Counter(
		"omnifield_snapshot_loads_total",
		metric.WithDescription("Number of snapshots built"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, err
	}

	sources, err := meter.Int64Gauge(
		"omnifield_snapshot_sources",
		metric.WithDescription("Sources in the latest snapshot by state"),
		metric.WithUnit("{source}"),
	)
	if err != nil {
		return nil, err
	}

	return &IngestMetrics{
		loadDuration:  loadDuration,
		sourceRows:    sourceRows,
		snapshotLoads: snapshotLoads,
		sources:       sources,
	}, nil
}

// RecordSourceLoad records the outcome of one source load. result is "ok" or
// the error kind.
func (m *IngestMetrics) RecordSourceLoad(
	ctx context.Context, source, result string, duration time.Duration, rows int,
) {
	if m == nil {
		return
	}

	m.loadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("result", result),
	))
	m.sourceRows.Record(ctx, int64(rows), metric.WithAttributes(attribute.String("source", source)))
}

// RecordSnapshot records a finished snapshot
func (m *IngestMetrics) RecordSnapshot(ctx context.Context, loaded, failed int) {
	if m == nil {
		return
	}

	m.snapshotLoads.Add(ctx, 1)
	m.sources.Record(ctx, int64(loaded), metric.WithAttributes(attribute.String("state", "loaded")))
	m.sources.Record(ctx, int64(failed), metric.WithAttributes(attribute.String("state", "failed")))
}

// RefreshMetrics holds the instruments for background refresh passes
type RefreshMetrics struct {
	refreshDuration metric.Float64Histogram
	checks          metric.Int64Counter
}

// NewRefreshMetrics creates the refresh instruments. If provider is nil, it
// returns nil (no-op metrics).
func NewRefreshMetrics(provider metric.MeterProvider) (*RefreshMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RefreshMetricsMeterName)

	refreshDuration, err := meter.Float64Histogram(
		"omnifield_refresh_duration_seconds",
		metric.WithDescription("Duration of background refreshes in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	checks, err := meter.Int64Counter(
		"omnifield_refresh_checks_total",
		metric.WithDescription("Refresh decisions by reason"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	return &RefreshMetrics{refreshDuration: refreshDuration, checks: checks}, nil
}

// RecordCheck counts one refresh decision
func (m *RefreshMetrics) RecordCheck(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.checks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRefresh records the duration of a refresh and whether it left any
// source degraded
func (m *RefreshMetrics) RecordRefresh(ctx context.Context, reason string, duration time.Duration, degraded bool) {
	if m == nil {
		return
	}
	m.refreshDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("reason", reason),
		attribute.Bool("degraded", degraded),
	))
}
