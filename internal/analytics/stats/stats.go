// Package stats holds the numeric primitives shared by the analytics engines.
//
// Every function is pure. Degenerate input (empty slices, zero spread) yields
// zero values instead of NaN so callers can degrade silently.
package stats

import (
	"math"
	"sort"

	"github.com/fleetops/backend/internal/domain"
)

// Holt smoothing constants
const (
	SmoothingAlpha = 0.3
	SmoothingBeta  = 0.1

	// TrendThreshold is the slope magnitude above which a series is
	// labelled increasing or decreasing
	TrendThreshold = 0.1
)

// Summary is a mean/standard deviation pair
type Summary struct {
	Mean float64
	Std  float64
}

// Stats returns the sample mean and sample standard deviation. The variance
// denominator is n-1 floored at 1, so a single value has zero spread.
func Stats(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	variance := sq / math.Max(1, float64(len(values)-1))
	return Summary{Mean: mean, Std: math.Sqrt(variance)}
}

// PopulationStats returns the mean and population standard deviation (divide by n)
func PopulationStats(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return Summary{Mean: mean, Std: math.Sqrt(sq / float64(len(values)))}
}

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Max returns the largest value, 0 for an empty slice
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// QuartileSummary holds nearest-rank quartiles
type QuartileSummary struct {
	Q1  float64
	Q3  float64
	IQR float64
}

// Quartiles takes sorted values and returns q1 = v[floor(n*0.25)] and
// q3 = v[floor(n*0.75)]. This is nearest-rank, not interpolated.
func Quartiles(sorted []float64) QuartileSummary {
	n := len(sorted)
	if n == 0 {
		return QuartileSummary{}
	}
	q1 := sorted[int(math.Floor(float64(n)*0.25))]
	q3 := sorted[int(math.Floor(float64(n)*0.75))]
	return QuartileSummary{Q1: q1, Q3: q3, IQR: q3 - q1}
}

// SortedCopy returns an ascending copy of values
func SortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// SmoothingResult is the outcome of Holt's linear trend method
type SmoothingResult struct {
	Forecast   float64
	Level      float64
	Slope      float64
	Trend      string
	Confidence float64 // 0-1
}

// ExponentialSmoothingWithTrend runs Holt's method with alpha=0.3 and
// beta=0.1 and projects horizon periods ahead. The forecast is floored at 0.
func ExponentialSmoothingWithTrend(series []float64, horizon int) SmoothingResult {
	if len(series) < 2 {
		var first float64
		if len(series) == 1 {
			first = series[0]
		}
		return SmoothingResult{Forecast: first, Level: first, Trend: domain.TrendStable, Confidence: 0.6}
	}

	level := series[0]
	slope := 0.0
	for _, v := range series[1:] {
		prevLevel := level
		level = SmoothingAlpha*v + (1-SmoothingAlpha)*(level+slope)
		slope = SmoothingBeta*(level-prevLevel) + (1-SmoothingBeta)*slope
	}

	trend := domain.TrendStable
	switch {
	case slope > TrendThreshold:
		trend = domain.TrendIncreasing
	case slope < -TrendThreshold:
		trend = domain.TrendDecreasing
	}

	return SmoothingResult{
		Forecast:   math.Max(0, level+slope*float64(horizon)),
		Level:      level,
		Slope:      slope,
		Trend:      trend,
		Confidence: math.Max(0.6, 1-math.Abs(slope)/math.Max(1, level)*0.4),
	}
}
