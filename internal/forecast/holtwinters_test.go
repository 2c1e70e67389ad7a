package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func repeatSeasons(pattern []float64, seasons int) []float64 {
	series := make([]float64, 0, len(pattern)*seasons)
	for s := 0; s < seasons; s++ {
		series = append(series, pattern...)
	}
	return series
}

func TestHoltWintersConstantSeries(t *testing.T) {
	series := make([]float64, 36)
	for i := range series {
		series[i] = 100
	}

	forecast, lower, upper, err := holtWinters(series, 12)
	assert.NoError(t, err)
	assert.Len(t, forecast, 12)
	for i := range forecast {
		assert.InDelta(t, 100, forecast[i], 0.01)
		assert.InDelta(t, 100, lower[i], 0.01)
		assert.InDelta(t, 100, upper[i], 0.01)
	}
}

func TestHoltWintersTracksSeasonality(t *testing.T) {
	// Heating-season shape: winter peaks, summer troughs.
	pattern := []float64{130, 125, 115, 105, 95, 85, 80, 82, 95, 105, 118, 128}
	series := repeatSeasons(pattern, 3)

	forecast, _, _, err := holtWinters(series, 12)
	assert.NoError(t, err)

	for i, expected := range pattern {
		assert.InDelta(t, expected, forecast[i], 5, "month %d", i)
	}
	// Winter months stay above summer months.
	assert.Greater(t, forecast[0], forecast[6])
}

func TestHoltWintersFollowsTrend(t *testing.T) {
	series := make([]float64, 36)
	for i := range series {
		series[i] = 100 + 2*float64(i)
	}

	forecast, _, _, err := holtWinters(series, 12)
	assert.NoError(t, err)
	assert.Greater(t, forecast[11], forecast[0])
	assert.Greater(t, forecast[0], series[35]-10)
}

func TestHoltWintersRejectsShortHistory(t *testing.T) {
	series := make([]float64, holtWintersMinimum-1)
	_, _, _, err := holtWinters(series, 6)
	assert.Error(t, err)
}

func TestLinearForecastExtendsSlope(t *testing.T) {
	series := []float64{10, 20, 30, 40, 50}

	forecast, _, _ := linearForecast(series, 3)
	assert.InDelta(t, 60, forecast[0], 0.001)
	assert.InDelta(t, 70, forecast[1], 0.001)
	assert.InDelta(t, 80, forecast[2], 0.001)
}

func TestLinearForecastClampsAtZero(t *testing.T) {
	series := []float64{50, 40, 30, 20, 10}

	forecast, lower, _ := linearForecast(series, 6)
	assert.Equal(t, 0.0, forecast[5])
	for i := range lower {
		assert.GreaterOrEqual(t, lower[i], 0.0)
	}
}

func TestLinearForecastFlatSeries(t *testing.T) {
	series := []float64{25, 25, 25, 25, 25, 25, 25, 25, 25, 25, 25, 25}

	forecast, _, _ := linearForecast(series, 4)
	for _, v := range forecast {
		assert.InDelta(t, 25, v, 0.001)
	}
}
