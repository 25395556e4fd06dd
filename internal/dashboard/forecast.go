package dashboard

import (
	"errors"
	"math"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/table"
)

// ErrInsufficientData is returned when a fit needs more distinct points
var ErrInsufficientData = errors.New("at least two distinct points are required")

// DeclineParams describes an exponential decline curve
// q(t) = InitialRate * exp(-DeclineRate * (t - StartYear))
type DeclineParams struct {
	InitialRate float64
	DeclineRate float64
	StartYear   int
	Horizon     int
}

// DefaultDeclineParams returns the field's reference decline curve
func DefaultDeclineParams() DeclineParams {
	return DeclineParams{
		InitialRate: 5000,
		DeclineRate: 0.06,
		StartYear:   2020,
		Horizon:     15,
	}
}

// DeclineParamsFromConfig overlays the configured values on the defaults
func DeclineParamsFromConfig(cfg *config.ForecastConfig) DeclineParams {
	p := DefaultDeclineParams()
	if cfg == nil {
		return p
	}
	if cfg.InitialRate > 0 {
		p.InitialRate = cfg.InitialRate
	}
	if cfg.DeclineRate > 0 {
		p.DeclineRate = cfg.DeclineRate
	}
	if cfg.StartYear > 0 {
		p.StartYear = cfg.StartYear
	}
	if cfg.Horizon > 0 {
		p.Horizon = cfg.Horizon
	}
	return p
}

// Rate evaluates the curve at year t
func (p DeclineParams) Rate(t float64) float64 {
	return p.InitialRate * math.Exp(-p.DeclineRate*(t-float64(p.StartYear)))
}

// Forecast returns one point per year from StartYear over Horizon years
func (p DeclineParams) Forecast() []Point {
	points := make([]Point, 0, p.Horizon)
	for i := range p.Horizon {
		t := float64(p.StartYear + i)
		points = append(points, Point{X: t, Y: p.Rate(t)})
	}
	return points
}

// LinearFit returns the least squares line through (xs[i], ys[i]).
// Pairs with a NaN or infinity on either side are skipped.
func LinearFit(xs, ys []float64) (slope, intercept float64, err error) {
	var n, sumX, sumY float64
	for i := range min(len(xs), len(ys)) {
		if !table.IsFinite(xs[i]) || !table.IsFinite(ys[i]) {
			continue
		}
		n++
		sumX += xs[i]
		sumY += ys[i]
	}
	if n < 2 {
		return 0, 0, ErrInsufficientData
	}

	meanX, meanY := sumX/n, sumY/n
	var sxx, sxy float64
	for i := range min(len(xs), len(ys)) {
		if !table.IsFinite(xs[i]) || !table.IsFinite(ys[i]) {
			continue
		}
		dx := xs[i] - meanX
		sxx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}
	if sxx == 0 {
		return 0, 0, ErrInsufficientData
	}

	slope = sxy / sxx
	intercept = meanY - slope*meanX
	if !table.IsFinite(slope) || !table.IsFinite(intercept) {
		return 0, 0, ErrInsufficientData
	}
	return slope, intercept, nil
}

// extrapolate evaluates the line at steps whole units after last.
// Rates cannot go below zero.
func extrapolate(slope, intercept, last float64, steps int) []Point {
	start := math.Floor(last) + 1
	points := make([]Point, 0, steps)
	for i := range steps {
		x := start + float64(i)
		points = append(points, Point{X: x, Y: math.Max(0, slope*x+intercept)})
	}
	return points
}
