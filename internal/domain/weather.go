package domain

import "time"

// WeatherCondition is a coarse weather classification
type WeatherCondition string

const (
	ConditionClear       WeatherCondition = "clear"
	ConditionCloudy      WeatherCondition = "cloudy"
	ConditionRain        WeatherCondition = "rain"
	ConditionSnow        WeatherCondition = "snow"
	ConditionStorm       WeatherCondition = "storm"
	ConditionFog         WeatherCondition = "fog"
	ConditionExtremeHeat WeatherCondition = "extreme_heat"
	ConditionExtremeCold WeatherCondition = "extreme_cold"
)

// WeatherData represents one forecast day for a site
type WeatherData struct {
	Date          time.Time        `json:"date"`
	Temperature   float64          `json:"temperature"`   // Celsius
	Humidity      int              `json:"humidity"`      // percent
	Precipitation float64          `json:"precipitation"` // mm
	WindSpeed     float64          `json:"wind_speed"`    // km/h
	Visibility    float64          `json:"visibility"`    // km
	Conditions    WeatherCondition `json:"conditions"`
	IsMock        bool             `json:"is_mock"`
}

// WeatherResponse wraps weather data with metadata
type WeatherResponse struct {
	Data    []WeatherData `json:"data"`
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
}
