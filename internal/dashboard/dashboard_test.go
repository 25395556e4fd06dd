package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/table"
)

type mapReader map[string]*table.Table

func (m mapReader) Table(_ context.Context, name string) (*table.Table, error) {
	t, ok := m[name]
	if !ok {
		return nil, errors.New("unknown source")
	}
	return t, nil
}

func mustTable(t *testing.T, name string, cols ...table.Column) *table.Table {
	t.Helper()
	tbl, err := table.New(name, cols...)
	require.NoError(t, err)
	return tbl
}

func TestRender_DataNotFound(t *testing.T) {
	t.Parallel()

	d := New(mapReader{
		"sensors": table.Empty("sensors", nil),
	})

	for _, id := range Modules() {
		t.Run(id.String(), func(t *testing.T) {
			t.Parallel()
			p, err := d.Render(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, StatusDataNotFound, p.Status)
			assert.Equal(t, 0, p.Rows)
			assert.Equal(t, id.Title(), p.Title)
			assert.Empty(t, p.Summaries)
		})
	}
}

func TestRender_UnknownModule(t *testing.T) {
	t.Parallel()

	_, err := New(mapReader{}).Render(context.Background(), ModuleID(99))
	require.ErrorIs(t, err, ErrUnknownModule)
}

func TestRender_Strategic(t *testing.T) {
	t.Parallel()

	t.Run("synthetic without kpi table", func(t *testing.T) {
		t.Parallel()
		p, err := New(mapReader{}).Render(context.Background(), ModuleStrategic)
		require.NoError(t, err)
		assert.True(t, p.Synthetic)
		require.Len(t, p.KPIs, 4)
		assert.Equal(t, KPI{Name: "Avg Reservoir Pressure", Value: "3,120 psi", Delta: "-2.1%"}, p.KPIs[0])
	})

	t.Run("from kpi table", func(t *testing.T) {
		t.Parallel()
		kpis := mustTable(t, "kpis",
			table.NewStringColumn("KPI", []string{"Water Cut", "Uptime"}),
			table.NewNumericColumn("value", []float64{0.31, 99.5}),
			table.NewStringColumn("delta", []string{"+1%", ""}),
		)
		p, err := New(mapReader{"kpis": kpis}).Render(context.Background(), ModuleStrategic)
		require.NoError(t, err)
		assert.False(t, p.Synthetic)
		assert.Equal(t, StatusOK, p.Status)
		assert.Equal(t, []KPI{
			{Name: "Water Cut", Value: "0.31", Delta: "+1%"},
			{Name: "Uptime", Value: "99.5"},
		}, p.KPIs)
	})
}

func TestRender_Subsurface(t *testing.T) {
	t.Parallel()

	petro := mustTable(t, "petro",
		table.NewStringColumn("well", []string{"A", "B", "C"}),
		table.NewNumericColumn("depth", []float64{100, 200, 300}),
		table.NewNumericColumn("porosity", []float64{0.2, 0.1, 0.3}),
		table.NewNumericColumn("pressure", []float64{3000, 3100, 3200}),
	)

	p, err := New(mapReader{"petro": petro}).Render(context.Background(), ModuleSubsurface)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, p.Status)
	assert.Equal(t, "petro", p.Source)
	assert.Equal(t, 3, p.Rows)
	require.Len(t, p.Summaries, 3)
	assert.Equal(t, table.Summary{Column: "depth", Count: 3, Min: 100, Max: 300, Mean: 200, Last: 300}, p.Summaries[0])
	assert.Len(t, p.PressureMap, 20)
	assert.True(t, p.Synthetic)
}

func TestRender_Production(t *testing.T) {
	t.Parallel()

	t.Run("numeric years", func(t *testing.T) {
		t.Parallel()
		history := mustTable(t, "history",
			table.NewNumericColumn("year", []float64{2020, 2021, 2022}),
			table.NewNumericColumn("oil_rate", []float64{5000, 4800, 4600}),
		)
		d := New(mapReader{"history": history}, WithDecline(DeclineParams{
			InitialRate: 1000, DeclineRate: 0.1, StartYear: 2024, Horizon: 3,
		}))

		p, err := d.Render(context.Background(), ModuleProduction)
		require.NoError(t, err)
		assert.Equal(t, StatusOK, p.Status)
		require.Len(t, p.Forecast, 3)
		assert.Equal(t, 2024.0, p.Forecast[0].X)

		require.NotNil(t, p.Trend)
		assert.Equal(t, "year", p.Trend.TimeColumn)
		assert.Equal(t, "oil_rate", p.Trend.RateColumn)
		assert.InDelta(t, -200, p.Trend.Slope, 1e-6)
		require.Len(t, p.Trend.Points, 3)
		assert.Equal(t, 2023.0, p.Trend.Points[0].X)
		assert.InDelta(t, 4400, p.Trend.Points[0].Y, 1e-6)
	})

	t.Run("timestamp column and fallback rate", func(t *testing.T) {
		t.Parallel()
		history := mustTable(t, "history",
			table.NewTimestampColumn("date", []time.Time{
				time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
			}),
			table.NewNumericColumn("volume", []float64{10, 20}),
		)
		p, err := New(mapReader{"history": history}).Render(context.Background(), ModuleProduction)
		require.NoError(t, err)
		require.NotNil(t, p.Trend)
		assert.Equal(t, "volume", p.Trend.RateColumn)
		assert.InDelta(t, 10, p.Trend.Slope, 1e-6)
		assert.Equal(t, 2023.0, p.Trend.Points[0].X)
	})

	t.Run("no time column", func(t *testing.T) {
		t.Parallel()
		history := mustTable(t, "history", table.NewNumericColumn("rate", []float64{1, 2}))
		p, err := New(mapReader{"history": history}).Render(context.Background(), ModuleProduction)
		require.NoError(t, err)
		assert.Nil(t, p.Trend)
		assert.Len(t, p.Forecast, 15)
	})
}

func TestRender_Safety(t *testing.T) {
	t.Parallel()

	sensors := mustTable(t, "sensors",
		table.NewNumericColumn("vibration", []float64{0.1, 0.2}),
	)
	p, err := New(mapReader{"sensors": sensors}).Render(context.Background(), ModuleSafety)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, p.Status)
	require.Len(t, p.Integrity, 4)
	assert.Equal(t, "Pressure Relief Valves", p.Integrity[2].Name)
}

func TestRender_NonFiniteValuesEncode(t *testing.T) {
	t.Parallel()

	inf := math.Inf(1)
	reader := mapReader{
		"petro": mustTable(t, "petro",
			table.NewStringColumn("well", []string{"A", "B"}),
			table.NewNumericColumn("depth", []float64{inf, 12}),
		),
		"history": mustTable(t, "history",
			table.NewNumericColumn("year", []float64{2020, inf, 2022}),
			table.NewNumericColumn("rate", []float64{500, 400, math.Inf(-1)}),
		),
		"sensors": mustTable(t, "sensors",
			table.NewNumericColumn("vibration", []float64{math.Inf(-1), math.NaN()}),
		),
	}
	d := New(reader)

	for _, id := range []ModuleID{ModuleSubsurface, ModuleProduction, ModuleSafety} {
		p, err := d.Render(context.Background(), id)
		require.NoError(t, err)
		_, err = json.Marshal(p)
		require.NoError(t, err, "module %d", id)
	}

	p, err := d.Render(context.Background(), ModuleSubsurface)
	require.NoError(t, err)
	require.Len(t, p.Summaries, 1)
	assert.Equal(t, table.Summary{Column: "depth", Count: 1, Min: 12, Max: 12, Mean: 12, Last: 12}, p.Summaries[0])
}

func TestBindingsFromConfig(t *testing.T) {
	t.Parallel()

	got, err := BindingsFromConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBindings(), got)

	got, err = BindingsFromConfig(&config.DashboardConfig{Modules: map[string]string{"Safety": "scada"}})
	require.NoError(t, err)
	assert.Equal(t, "scada", got[ModuleSafety])
	assert.Equal(t, "petro", got[ModuleSubsurface])

	_, err = BindingsFromConfig(&config.DashboardConfig{Modules: map[string]string{"finance": "x"}})
	require.ErrorIs(t, err, ErrUnknownModule)
}

func TestDashboard_BindingsCopy(t *testing.T) {
	t.Parallel()

	d := New(mapReader{}, WithBindings(map[ModuleID]string{ModuleSafety: "scada"}))
	b := d.Bindings()
	b[ModuleSafety] = "changed"
	assert.Equal(t, "scada", d.Bindings()[ModuleSafety])

	p, err := d.Render(context.Background(), ModuleProduction)
	require.NoError(t, err)
	assert.Empty(t, p.Source)
	assert.Equal(t, StatusDataNotFound, p.Status)
}

func TestRender_Traced(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	petro := mustTable(t, "petro",
		table.NewNumericColumn("depth", []float64{1200, 1350, 1500}),
		table.NewNumericColumn("porosity", []float64{0.21, 0.18, 0.15}),
	)
	d := New(mapReader{"petro": petro}, WithTracer(tp.Tracer("test")))

	_, err := d.Render(context.Background(), ModuleSubsurface)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "dashboard.Render", spans[0].Name)

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "subsurface", attrs["dashboard.module"].AsString())
	assert.Equal(t, "petro", attrs["source.name"].AsString())
	assert.Equal(t, int64(3), attrs["table.rows"].AsInt64())
	assert.Equal(t, StatusOK, attrs["dashboard.status"].AsString())
}
