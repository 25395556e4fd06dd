package dashboard

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stacklok/omnifield-ingest/internal/table"
)

// Input is what a module handler renders from
type Input struct {
	Module  ModuleID
	Source  string
	Table   *table.Table
	Decline DeclineParams
}

// Handler renders one module
type Handler func(ctx context.Context, in Input) *Panel

// handlers is the module dispatch table
var handlers = map[ModuleID]Handler{
	ModuleStrategic:  renderStrategic,
	ModuleSubsurface: renderSubsurface,
	ModuleProduction: renderProduction,
	ModuleSafety:     renderSafety,
}

// Placeholder KPIs shown until a KPI table is loaded
var syntheticKPIs = []KPI{
	{Name: "Avg Reservoir Pressure", Value: "3,120 psi", Delta: "-2.1%"},
	{Name: "Total Field Production", Value: "4,520 bpd", Delta: "+5.4%"},
	{Name: "HSE Compliance", Value: "100%", Delta: "No Alarms"},
	{Name: "AI Prediction Accuracy", Value: "94.8%", Delta: "High"},
}

var syntheticIntegrity = []IntegrityItem{
	{Group: "Asset Health Monitoring", Name: "Vibration Sensor", Status: "Stable"},
	{Group: "Asset Health Monitoring", Name: "Corrosion Rate", Status: "0.02 mm/year"},
	{Group: "Emergency Shutdown (ESD) Systems", Name: "Pressure Relief Valves", Status: "Operational"},
	{Group: "Emergency Shutdown (ESD) Systems", Name: "ESD Readiness", Status: "100%"},
}

var (
	kpiNameColumns   = []string{"kpi", "name", "metric"}
	kpiValueColumns  = []string{"value"}
	kpiDeltaColumns  = []string{"delta", "change"}
	timeColumnNames  = []string{"year", "time", "t", "date"}
	rateColumnNames  = []string{"rate", "production", "oil_rate", "bpd", "q"}
	pressureMapSize  = 20
	pressureMapScale = 100.0
)

func renderStrategic(_ context.Context, in Input) *Panel {
	p := newPanel(in)
	if kpis := kpisFromTable(in.Table); len(kpis) > 0 {
		p.KPIs = kpis
		return p
	}
	p.KPIs = append([]KPI(nil), syntheticKPIs...)
	p.Synthetic = true
	return p
}

func kpisFromTable(t *table.Table) []KPI {
	nameCol := findColumn(t, kpiNameColumns)
	valueCol := findColumn(t, kpiValueColumns)
	if nameCol == nil || valueCol == nil {
		return nil
	}
	deltaCol := findColumn(t, kpiDeltaColumns)

	kpis := make([]KPI, 0, t.NumRows())
	for i := range t.NumRows() {
		kpi := KPI{Name: formatValue(nameCol.Value(i)), Value: formatValue(valueCol.Value(i))}
		if deltaCol != nil {
			kpi.Delta = formatValue(deltaCol.Value(i))
		}
		kpis = append(kpis, kpi)
	}
	return kpis
}

func renderSubsurface(_ context.Context, in Input) *Panel {
	p := newPanel(in)
	p.Summaries = in.Table.NumericSummaries()
	p.PressureMap = pressureMap(pressureMapSize)
	p.Synthetic = true
	return p
}

// pressureMap samples sin(x/10)*cos(y/10) on an n by n grid over [0, 100]
func pressureMap(n int) [][]float64 {
	grid := make([][]float64, n)
	step := pressureMapScale / float64(n-1)
	for i := range n {
		grid[i] = make([]float64, n)
		x := float64(i) * step
		for j := range n {
			y := float64(j) * step
			grid[i][j] = math.Sin(x/10) * math.Cos(y/10)
		}
	}
	return grid
}

func renderProduction(_ context.Context, in Input) *Panel {
	p := newPanel(in)
	p.Summaries = in.Table.NumericSummaries()
	p.Forecast = in.Decline.Forecast()
	p.Trend = productionTrend(in.Table, in.Decline.Horizon)
	return p
}

// productionTrend fits a line to the rate history when the table has a
// time column and a numeric rate column
func productionTrend(t *table.Table, horizon int) *Trend {
	if t.IsEmpty() {
		return nil
	}

	timeCol := findColumn(t, timeColumnNames)
	if timeCol == nil || timeCol.Type == table.ColumnTypeString {
		return nil
	}
	xs := timeValues(timeCol)

	rateCol := findColumn(t, rateColumnNames)
	if rateCol == nil || rateCol.Type != table.ColumnTypeNumeric {
		rateCol = firstNumericExcept(t, timeCol.Name)
	}
	if rateCol == nil {
		return nil
	}

	slope, intercept, err := LinearFit(xs, rateCol.Numbers)
	if err != nil {
		return nil
	}

	last := math.Inf(-1)
	for _, x := range xs {
		if table.IsFinite(x) {
			last = math.Max(last, x)
		}
	}

	return &Trend{
		TimeColumn: timeCol.Name,
		RateColumn: rateCol.Name,
		Slope:      slope,
		Intercept:  intercept,
		Points:     extrapolate(slope, intercept, last, horizon),
	}
}

// timeValues converts a time column to fractional years
func timeValues(c *table.Column) []float64 {
	if c.Type == table.ColumnTypeNumeric {
		return c.Numbers
	}
	out := make([]float64, len(c.Times))
	for i, ts := range c.Times {
		if ts.IsZero() {
			out[i] = math.NaN()
			continue
		}
		out[i] = fractionalYear(ts)
	}
	return out
}

func fractionalYear(ts time.Time) float64 {
	ts = ts.UTC()
	start := time.Date(ts.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return float64(ts.Year()) + float64(ts.Sub(start))/float64(end.Sub(start))
}

func renderSafety(_ context.Context, in Input) *Panel {
	p := newPanel(in)
	p.Summaries = in.Table.NumericSummaries()
	p.Integrity = append([]IntegrityItem(nil), syntheticIntegrity...)
	p.Synthetic = true
	return p
}

// findColumn returns the first column whose name matches a candidate,
// ignoring case
func findColumn(t *table.Table, candidates []string) *table.Column {
	if t == nil {
		return nil
	}
	for _, want := range candidates {
		for i := range t.Columns {
			if strings.EqualFold(t.Columns[i].Name, want) {
				return &t.Columns[i]
			}
		}
	}
	return nil
}

func firstNumericExcept(t *table.Table, skip string) *table.Column {
	for i := range t.Columns {
		if t.Columns[i].Type == table.ColumnTypeNumeric && t.Columns[i].Name != skip {
			return &t.Columns[i]
		}
	}
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if !table.IsFinite(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(time.RFC3339)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
