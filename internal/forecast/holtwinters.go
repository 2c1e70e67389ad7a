package forecast

import (
	"fmt"
	"math"

	"blipee/sustainability-engine/pkg/stats"
)

// Smoothing parameters for the additive Holt-Winters model. Tuned for
// monthly sustainability data: slow trend, moderate seasonal adaption.
const (
	hwAlpha = 0.35
	hwBeta  = 0.05
	hwGamma = 0.25
)

// zConfidence95 converts a residual sigma into a 95% band.
const zConfidence95 = 1.96

// holtWinters runs additive triple exponential smoothing over a monthly
// series and projects horizon months ahead. It needs two full seasons
// of history. Returned bands widen with the in-sample residual spread.
func holtWinters(series []float64, horizon int) ([]float64, []float64, []float64, error) {
	n := len(series)
	if n < holtWintersMinimum {
		return nil, nil, nil, fmt.Errorf("holt-winters needs %d points, have %d", holtWintersMinimum, n)
	}

	// Initial level is the first season's mean; initial trend averages
	// the month-over-season change between the first two seasons.
	level := stats.Mean(series[:seasonLength])
	trend := 0.0
	for i := 0; i < seasonLength; i++ {
		trend += (series[i+seasonLength] - series[i]) / float64(seasonLength)
	}
	trend /= float64(seasonLength)

	seasonal := make([]float64, seasonLength)
	for i := 0; i < seasonLength; i++ {
		seasonal[i] = series[i] - level
	}

	residuals := []float64{}
	for t := 0; t < n; t++ {
		idx := t % seasonLength
		predicted := level + trend + seasonal[idx]
		if t >= seasonLength {
			residuals = append(residuals, series[t]-predicted)
		}

		prevLevel := level
		level = hwAlpha*(series[t]-seasonal[idx]) + (1-hwAlpha)*(level+trend)
		trend = hwBeta*(level-prevLevel) + (1-hwBeta)*trend
		seasonal[idx] = hwGamma*(series[t]-level) + (1-hwGamma)*seasonal[idx]
	}

	sigma := 0.0
	if len(residuals) > 1 {
		sigma = stats.StdDev(residuals)
	}

	forecast := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		idx := (n + h) % seasonLength
		value := level + float64(h+1)*trend + seasonal[idx]
		band := zConfidence95 * sigma
		forecast[h] = clampNonNegative(value)
		lower[h] = clampNonNegative(value - band)
		upper[h] = clampNonNegative(value + band)
	}
	return forecast, lower, upper, nil
}

// linearForecast fits ordinary least squares over the series index and
// extrapolates horizon months. It serves series too short for the
// seasonal model.
func linearForecast(series []float64, horizon int) ([]float64, []float64, []float64) {
	n := float64(len(series))

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	slope := 0.0
	if denom := n*sumXX - sumX*sumX; denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
	}
	intercept := (sumY - slope*sumX) / n

	residuals := make([]float64, len(series))
	for i, y := range series {
		residuals[i] = y - (intercept + slope*float64(i))
	}
	sigma := 0.0
	if len(residuals) > 1 {
		sigma = stats.StdDev(residuals)
	}

	forecast := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		x := n + float64(h)
		value := intercept + slope*x
		band := zConfidence95 * sigma
		forecast[h] = clampNonNegative(value)
		lower[h] = clampNonNegative(value - band)
		upper[h] = clampNonNegative(value + band)
	}
	return forecast, lower, upper
}

func clampNonNegative(v float64) float64 {
	return math.Max(0, v)
}
