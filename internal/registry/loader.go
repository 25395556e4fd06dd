package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/otel"
	"github.com/stacklok/omnifield-ingest/internal/parser"
	"github.com/stacklok/omnifield-ingest/internal/sources"
	"github.com/stacklok/omnifield-ingest/internal/table"
)

// ResultOK is the metrics kind of a successful load
const ResultOK = "ok"

// Loader reads a list of sources into a Snapshot
type Loader struct {
	factory sources.SourceHandlerFactory
	opts    options
}

// NewLoader creates a loader that resolves handlers through factory
func NewLoader(factory sources.SourceHandlerFactory, opts ...Option) *Loader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newLoader(factory, o)
}

func newLoader(factory sources.SourceHandlerFactory, o options) *Loader {
	if factory == nil {
		factory = sources.NewSourceHandlerFactory()
	}
	return &Loader{factory: factory, opts: o}
}

type sourceLoad struct {
	table  *table.Table
	result SourceResult
}

// LoadAll loads every source and returns a snapshot holding exactly one
// table per distinct name. It never fails: sources that cannot be loaded
// are bound to empty tables and described in the snapshot results.
func (l *Loader) LoadAll(ctx context.Context, srcs []config.SourceConfig) *Snapshot {
	order := make([]string, 0, len(srcs))
	seen := make(map[string]bool, len(srcs))
	unique := make([]*config.SourceConfig, 0, len(srcs))
	for i := range srcs {
		if seen[srcs[i].Name] {
			slog.WarnContext(ctx, "Ignoring duplicate source declaration", "source", srcs[i].Name)
			continue
		}
		seen[srcs[i].Name] = true
		order = append(order, srcs[i].Name)
		unique = append(unique, &srcs[i])
	}

	snap := newSnapshot(uuid.NewString(), l.opts.clock(), order)

	ctx, span := otel.StartSpan(ctx, l.opts.tracer, "registry.LoadAll",
		trace.WithAttributes(
			otel.AttrSnapshotID.String(snap.ID),
			otel.AttrSourceCount.Int(len(order)),
		))
	defer span.End()

	for _, obs := range l.opts.observers {
		obs.LoadStarted(ctx, snap.Names())
	}

	loads := make([]sourceLoad, len(unique))
	var g errgroup.Group
	g.SetLimit(l.opts.parallelism)
	for i, src := range unique {
		g.Go(func() error {
			loads[i] = l.loadOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	for _, ld := range loads {
		snap.bind(ld.table, ld.result)
	}
	snap.LoadedAt = l.opts.clock()

	failed := snap.Failed()
	span.SetAttributes(otel.AttrFailedCount.Int(failed))
	if l.opts.metrics != nil {
		l.opts.metrics.RecordSnapshot(ctx, snap.Len()-failed, failed)
	}

	slog.InfoContext(ctx, "Snapshot loaded",
		"snapshot_id", snap.ID,
		"sources", snap.Len(),
		"failed", failed)

	for _, obs := range l.opts.observers {
		obs.LoadFinished(ctx, snap)
	}

	return snap
}

func (l *Loader) loadOne(ctx context.Context, src *config.SourceConfig) sourceLoad {
	start := time.Now()
	result := SourceResult{
		Name:     src.Name,
		Type:     src.GetType(),
		Location: src.Location(),
		Format:   src.GetFormat(),
	}

	ctx, span := otel.StartSpan(ctx, l.opts.tracer, "registry.loadSource",
		trace.WithAttributes(
			otel.AttrSourceName.String(src.Name),
			otel.AttrSourceType.String(result.Type),
			otel.AttrSourceFormat.String(result.Format),
		))
	defer span.End()

	timeout := src.GetTimeout(l.opts.defaultTimeout)
	tbl, hash, err := l.readWithDeadline(ctx, src, timeout)
	result.Duration = time.Since(start)

	kind := ResultOK
	if err != nil {
		loadErr := newLoadError(src.Name, err)
		result.Err = loadErr
		kind = ErrorKind(loadErr)
		otel.RecordFailure(span, loadErr, kind)
		l.warn(ctx, src.Name, loadErr)
		tbl = l.emptyTable(ctx, src.Name)
	} else {
		result.Hash = hash
		l.rememberSchema(ctx, src.Name, tbl)
	}

	result.Rows = tbl.NumRows()
	result.Columns = tbl.NumCols()
	span.SetAttributes(otel.Shape(result.Rows, result.Columns)...)

	if l.opts.metrics != nil {
		l.opts.metrics.RecordSourceLoad(ctx, src.Name, kind, result.Duration, result.Rows)
	}

	return sourceLoad{table: tbl, result: result}
}

type readOutcome struct {
	table *table.Table
	hash  string
	err   error
}

// readWithDeadline runs the read in its own goroutine so a handler that
// ignores its context still cannot hold the load past the timeout.
func (l *Loader) readWithDeadline(
	ctx context.Context, src *config.SourceConfig, timeout time.Duration,
) (*table.Table, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan readOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- readOutcome{err: fmt.Errorf("panic while loading source: %v", r)}
			}
		}()
		tbl, hash, err := l.read(ctx, src)
		done <- readOutcome{table: tbl, hash: hash, err: err}
	}()

	select {
	case out := <-done:
		return out.table, out.hash, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", fmt.Errorf("%w after %s", ErrLoadTimeout, timeout)
		}
		return nil, "", ctx.Err()
	}
}

func (l *Loader) read(ctx context.Context, src *config.SourceConfig) (*table.Table, string, error) {
	handler, err := l.factory.CreateHandler(src.GetType())
	if err != nil {
		return nil, "", fmt.Errorf("failed to create handler: %w", err)
	}

	fetched, err := handler.Fetch(ctx, src)
	if err != nil {
		return nil, "", err
	}

	format := fetched.Format
	if format == "" {
		format = src.GetFormat()
	}

	tbl, err := parser.Parse(ctx, format, src.Name, fetched.Data, src.GetHint())
	if err != nil {
		return nil, "", err
	}
	return tbl, fetched.Hash, nil
}

func (l *Loader) warn(ctx context.Context, source string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Warning sink panicked", "source", source, "panic", r)
		}
	}()
	l.opts.sink.Warn(ctx, source, err)
}

func (l *Loader) emptyTable(ctx context.Context, name string) *table.Table {
	if l.opts.schemas == nil {
		return table.Empty(name, nil)
	}
	schema, err := l.opts.schemas.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, sources.ErrSchemaNotFound) {
			slog.DebugContext(ctx, "Failed to read last known schema", "source", name, "error", err)
		}
		return table.Empty(name, nil)
	}
	return table.Empty(name, schema)
}

func (l *Loader) rememberSchema(ctx context.Context, name string, tbl *table.Table) {
	if l.opts.schemas == nil || tbl.NumCols() == 0 {
		return
	}
	if err := l.opts.schemas.Store(ctx, name, tbl.Schema()); err != nil {
		slog.DebugContext(ctx, "Failed to record schema", "source", name, "error", err)
	}
}
