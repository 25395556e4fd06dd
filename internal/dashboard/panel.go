package dashboard

import "github.com/stacklok/omnifield-ingest/internal/table"

const (
	// StatusOK marks a panel built from a loaded table
	StatusOK = "ok"

	// StatusDataNotFound marks a panel whose table is empty or missing
	StatusDataNotFound = "data not found"
)

// Panel is the rendered content of one module
type Panel struct {
	Module string `json:"module"`
	Title  string `json:"title"`
	Source string `json:"source"`
	Status string `json:"status"`
	Rows   int    `json:"rows"`

	// Synthetic is set when any part of the panel is placeholder content
	// rather than source data
	Synthetic bool `json:"synthetic,omitempty"`

	KPIs        []KPI           `json:"kpis,omitempty"`
	Summaries   []table.Summary `json:"summaries,omitempty"`
	PressureMap [][]float64     `json:"pressureMap,omitempty"`
	Forecast    []Point         `json:"forecast,omitempty"`
	Trend       *Trend          `json:"trend,omitempty"`
	Integrity   []IntegrityItem `json:"integrity,omitempty"`
}

// KPI is a headline metric
type KPI struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Delta string `json:"delta,omitempty"`
}

// Point is one sample of a series
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trend is a least squares line fitted to production history
type Trend struct {
	TimeColumn string  `json:"timeColumn"`
	RateColumn string  `json:"rateColumn"`
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	Points     []Point `json:"points"`
}

// IntegrityItem is the state of one safety system
type IntegrityItem struct {
	Group  string `json:"group"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func newPanel(in Input) *Panel {
	p := &Panel{
		Module: in.Module.String(),
		Title:  in.Module.Title(),
		Source: in.Source,
		Status: StatusDataNotFound,
		Rows:   in.Table.NumRows(),
	}
	if !in.Table.IsEmpty() {
		p.Status = StatusOK
	}
	return p
}
