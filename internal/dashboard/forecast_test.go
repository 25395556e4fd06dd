package dashboard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/omnifield-ingest/internal/config"
)

func TestDeclineParams_Forecast(t *testing.T) {
	t.Parallel()

	p := DefaultDeclineParams()
	points := p.Forecast()
	require.Len(t, points, 15)

	assert.Equal(t, 2020.0, points[0].X)
	assert.InDelta(t, 5000, points[0].Y, 1e-9)
	assert.Equal(t, 2034.0, points[14].X)
	assert.InDelta(t, 5000*math.Exp(-0.06*14), points[14].Y, 1e-9)

	for i := 1; i < len(points); i++ {
		assert.Less(t, points[i].Y, points[i-1].Y)
	}
}

func TestDeclineParamsFromConfig(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultDeclineParams(), DeclineParamsFromConfig(nil))

	got := DeclineParamsFromConfig(&config.ForecastConfig{DeclineRate: 0.1, Horizon: 5})
	assert.Equal(t, DeclineParams{InitialRate: 5000, DeclineRate: 0.1, StartYear: 2020, Horizon: 5}, got)
}

func TestLinearFit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		xs, ys        []float64
		wantSlope     float64
		wantIntercept float64
		wantErr       bool
	}{
		{
			name:          "exact line",
			xs:            []float64{0, 1, 2, 3},
			ys:            []float64{1, 3, 5, 7},
			wantSlope:     2,
			wantIntercept: 1,
		},
		{
			name:          "skips NaN pairs",
			xs:            []float64{0, math.NaN(), 2, 4},
			ys:            []float64{10, 99, math.NaN(), 2},
			wantSlope:     -2,
			wantIntercept: 10,
		},
		{
			name:          "skips infinite pairs",
			xs:            []float64{0, 1, math.Inf(1), 2},
			ys:            []float64{1, math.Inf(-1), 5, 5},
			wantSlope:     2,
			wantIntercept: 1,
		},
		{
			name:    "overflowing fit",
			xs:      []float64{0, 1},
			ys:      []float64{-math.MaxFloat64, math.MaxFloat64},
			wantErr: true,
		},
		{
			name:    "single point",
			xs:      []float64{1},
			ys:      []float64{1},
			wantErr: true,
		},
		{
			name:    "vertical",
			xs:      []float64{3, 3, 3},
			ys:      []float64{1, 2, 3},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			slope, intercept, err := LinearFit(tt.xs, tt.ys)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInsufficientData)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantSlope, slope, 1e-9)
			assert.InDelta(t, tt.wantIntercept, intercept, 1e-9)
		})
	}
}

func TestExtrapolate_ClampsAtZero(t *testing.T) {
	t.Parallel()

	points := extrapolate(-100, 300, 1.5, 4)
	require.Len(t, points, 4)
	assert.Equal(t, []Point{{X: 2, Y: 100}, {X: 3, Y: 0}, {X: 4, Y: 0}, {X: 5, Y: 0}}, points)
}

func TestPressureMap(t *testing.T) {
	t.Parallel()

	grid := pressureMap(20)
	require.Len(t, grid, 20)
	for _, row := range grid {
		require.Len(t, row, 20)
	}
	assert.InDelta(t, 0, grid[0][0], 1e-12)
	assert.InDelta(t, math.Sin(10)*math.Cos(10), grid[19][19], 1e-12)
}
