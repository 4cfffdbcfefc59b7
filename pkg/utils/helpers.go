package utils

import (
	"math"
	"time"
)

// Haversine calculates distance between two points in kilometers
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371 // Earth radius in km

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// Clamp limits a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Scale maps value into [0,1] against the [min,max] range, clamping first.
// The denominator is floored at 1 so degenerate ranges never divide by zero.
func Scale(value, min, max float64) float64 {
	return (Clamp(value, min, max) - min) / math.Max(1, max-min)
}

// RoundTo rounds a float to specified decimal places
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// RoundInt rounds half away from zero and converts to int
func RoundInt(value float64) int {
	return int(math.Round(value))
}

// DaysBetween returns the signed number of days from a to b
func DaysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}
