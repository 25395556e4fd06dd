package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/otel"
	"github.com/stacklok/omnifield-ingest/internal/table"
)

// TableReader resolves a source name to its current table
type TableReader interface {
	Table(ctx context.Context, name string) (*table.Table, error)
}

// Dashboard renders modules from the tables bound to them
type Dashboard struct {
	reader   TableReader
	bindings map[ModuleID]string
	decline  DeclineParams
	tracer   trace.Tracer
}

// Option configures a Dashboard
type Option func(*Dashboard)

// WithBindings replaces the module to source bindings
func WithBindings(bindings map[ModuleID]string) Option {
	return func(d *Dashboard) {
		d.bindings = maps.Clone(bindings)
	}
}

// WithDecline sets the production decline curve
func WithDecline(p DeclineParams) Option {
	return func(d *Dashboard) {
		d.decline = p
	}
}

// WithTracer traces each Render call
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dashboard) {
		d.tracer = tracer
	}
}

// DefaultBindings returns the stock module to source bindings
func DefaultBindings() map[ModuleID]string {
	return map[ModuleID]string{
		ModuleStrategic:  "kpis",
		ModuleSubsurface: "petro",
		ModuleProduction: "history",
		ModuleSafety:     "sensors",
	}
}

// BindingsFromConfig overlays configured bindings on the defaults
func BindingsFromConfig(cfg *config.DashboardConfig) (map[ModuleID]string, error) {
	bindings := DefaultBindings()
	if cfg == nil {
		return bindings, nil
	}
	for name, source := range cfg.Modules {
		id, err := ParseModuleID(name)
		if err != nil {
			return nil, fmt.Errorf("dashboard.modules.%s: %w", name, err)
		}
		bindings[id] = source
	}
	return bindings, nil
}

// New creates a dashboard reading tables through reader
func New(reader TableReader, opts ...Option) *Dashboard {
	d := &Dashboard{
		reader:   reader,
		bindings: DefaultBindings(),
		decline:  DefaultDeclineParams(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Bindings returns a copy of the module to source bindings
func (d *Dashboard) Bindings() map[ModuleID]string {
	return maps.Clone(d.bindings)
}

// Render builds the panel for a module. A table that cannot be read
// renders as data not found.
func (d *Dashboard) Render(ctx context.Context, id ModuleID) (*Panel, error) {
	handler, ok := handlers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModule, int(id))
	}

	in := Input{
		Module:  id,
		Source:  d.bindings[id],
		Decline: d.decline,
	}

	ctx, span := otel.StartSpan(ctx, d.tracer, "dashboard.Render",
		trace.WithAttributes(
			otel.AttrModuleID.String(id.String()),
			otel.AttrSourceName.String(in.Source),
		),
	)
	defer span.End()

	if in.Source != "" {
		tbl, err := d.reader.Table(ctx, in.Source)
		if err != nil {
			slog.DebugContext(ctx, "Module table unavailable",
				"module", id.String(),
				"source", in.Source,
				"error", err)
		} else {
			in.Table = tbl
			span.SetAttributes(otel.Shape(tbl.NumRows(), tbl.NumCols())...)
		}
	}

	panel := handler(ctx, in)
	span.SetAttributes(otel.AttrPanelStatus.String(panel.Status))
	return panel, nil
}
