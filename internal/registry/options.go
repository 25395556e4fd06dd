package registry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/sources"
)

// Observer is notified around every load pass
type Observer interface {
	// LoadStarted is called before any source is read
	LoadStarted(ctx context.Context, sources []string)

	// LoadFinished is called with the complete snapshot
	LoadFinished(ctx context.Context, snap *Snapshot)
}

// Metrics records load outcomes. telemetry.IngestMetrics implements it.
type Metrics interface {
	RecordSourceLoad(ctx context.Context, source, kind string, duration time.Duration, rows int)
	RecordSnapshot(ctx context.Context, loaded, failed int)
}

type options struct {
	ttl            time.Duration
	parallelism    int
	defaultTimeout time.Duration
	sink           WarningSink
	schemas        sources.SchemaStore
	observers      []Observer
	metrics        Metrics
	tracer         trace.Tracer
	clock          func() time.Time
}

func defaultOptions() options {
	return options{
		parallelism:    config.DefaultParallelism,
		defaultTimeout: config.DefaultSourceTimeout,
		sink:           NewSlogSink(slog.Default()),
		clock:          time.Now,
	}
}

// Option configures a Loader or Registry
type Option func(*options)

// WithTTL sets how long a snapshot is served. Zero or negative keeps it for
// the registry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl < 0 {
			ttl = 0
		}
		o.ttl = ttl
	}
}

// WithParallelism caps concurrent source loads
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithDefaultTimeout bounds every source without its own timeout
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.defaultTimeout = d
		}
	}
}

// WithWarningSink replaces the slog warning sink
func WithWarningSink(sink WarningSink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithSchemaStore remembers schemas so failed sources keep their columns
func WithSchemaStore(store sources.SchemaStore) Option {
	return func(o *options) {
		o.schemas = store
	}
}

// WithObserver adds a load observer
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithMetrics records per-source and per-snapshot metrics
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer enables load spans
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithClock overrides the snapshot timestamp source
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}
