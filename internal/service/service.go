package service

import (
	"context"

	"github.com/fleetops/backend/internal/domain"
)

// FleetRepository is re-exported from domain for convenience
type FleetRepository = domain.FleetRepository

// WeatherProvider supplies the daily site forecast
type WeatherProvider interface {
	GetForecast(ctx context.Context) ([]domain.WeatherData, error)
}
