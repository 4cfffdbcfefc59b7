package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetops/backend/internal/analytics/optimize"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	analyticsSvc *service.AnalyticsService
	repo         service.FleetRepository
}

// NewHandler creates a new handler
func NewHandler(analyticsSvc *service.AnalyticsService, repo service.FleetRepository) *Handler {
	return &Handler{
		analyticsSvc: analyticsSvc,
		repo:         repo,
	}
}

// serviceError maps service errors to HTTP errors
func serviceError(err error, message string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, message)
	}
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	database := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		database = "unavailable"
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  "fleet-analytics",
		"version":  "1.0.0",
		"database": database,
	})
}

// GetDashboard returns the aggregated fleet overview
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.Dashboard(c.Context())
	if err != nil {
		return serviceError(err, "Failed to build dashboard")
	}
	return ok(c, data)
}

// GetAnomalies runs anomaly detection over the latest usage
func (h *Handler) GetAnomalies(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.Anomalies(c.Context())
	if err != nil {
		return serviceError(err, "Failed to detect anomalies")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// GetForecast returns equipment demand forecasts, ?method=decay|trend|seasonal
func (h *Handler) GetForecast(c *fiber.Ctx) error {
	method := c.Query("method", service.ForecastDecay)
	data, err := h.analyticsSvc.Forecast(c.Context(), method)
	if err != nil {
		return serviceError(err, "Failed to forecast demand")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"method":  method,
		"data":    data,
	})
}

// GetMaintenanceRisk returns per-machine maintenance risk, riskiest first
func (h *Handler) GetMaintenanceRisk(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.MaintenanceRisk(c.Context())
	if err != nil {
		return serviceError(err, "Failed to score maintenance risk")
	}
	return ok(c, data)
}

// GetFailurePredictions returns per-machine failure predictions
func (h *Handler) GetFailurePredictions(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.FailurePredictions(c.Context())
	if err != nil {
		return serviceError(err, "Failed to predict failures")
	}
	return ok(c, data)
}

// GetEquipmentHealth returns the component health of one machine
func (h *Handler) GetEquipmentHealth(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.EquipmentHealth(c.Context(), c.Params("id"))
	if err != nil {
		return serviceError(err, "Failed to assess equipment health")
	}
	return ok(c, data)
}

// GetRecommendations ranks equipment for a project, ?max=N
func (h *Handler) GetRecommendations(c *fiber.Ctx) error {
	maxResults := c.QueryInt("max", 0)
	if maxResults < 0 || maxResults > 50 {
		return fiber.NewError(fiber.StatusBadRequest, "max must be between 1 and 50")
	}

	data, err := h.analyticsSvc.Recommendations(c.Context(), c.Params("id"), maxResults)
	if err != nil {
		return serviceError(err, "Failed to recommend equipment")
	}
	return ok(c, data)
}

// GetOptimization returns the cost plan, ?budget=&timeline_days=&available_only=
func (h *Handler) GetOptimization(c *fiber.Ctx) error {
	defaults := optimize.DefaultConstraints()
	constraints := optimize.Constraints{
		Budget:                c.QueryFloat("budget", defaults.Budget),
		TimelineDays:          c.QueryFloat("timeline_days", defaults.TimelineDays),
		EquipmentAvailability: c.QueryBool("available_only", defaults.EquipmentAvailability),
		TransportationLimits:  c.QueryBool("haul_limit", defaults.TransportationLimits),
	}

	data, err := h.analyticsSvc.Optimize(c.Context(), constraints)
	if err != nil {
		return serviceError(err, "Failed to optimize allocation")
	}
	return ok(c, data)
}

// GetWeatherForecast returns the daily site forecast
func (h *Handler) GetWeatherForecast(c *fiber.Ctx) error {
	days, err := h.analyticsSvc.Weather(c.Context())
	if err != nil {
		return serviceError(err, "Failed to fetch weather data")
	}
	return c.JSON(domain.WeatherResponse{
		Data:    days,
		Success: true,
	})
}

// GetWeatherImpact returns the weather impact assessment
func (h *Handler) GetWeatherImpact(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.WeatherImpact(c.Context())
	if err != nil {
		return serviceError(err, "Failed to assess weather impact")
	}
	return ok(c, data)
}

// GetWeatherSchedule returns weather-driven schedule and maintenance proposals
func (h *Handler) GetWeatherSchedule(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.WeatherSchedule(c.Context())
	if err != nil {
		return serviceError(err, "Failed to optimize schedule")
	}
	return ok(c, data)
}

// GetUtilization returns utilization and availability
func (h *Handler) GetUtilization(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.Utilization(c.Context())
	if err != nil {
		return serviceError(err, "Failed to compute utilization")
	}
	return ok(c, data)
}

// GetCarbon returns CO2 estimates per machine
func (h *Handler) GetCarbon(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.Carbon(c.Context())
	if err != nil {
		return serviceError(err, "Failed to estimate carbon output")
	}
	return ok(c, data)
}

// GetAlerts returns the current operator alerts
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	data, err := h.analyticsSvc.Alerts(c.Context())
	if err != nil {
		return serviceError(err, "Failed to build alerts")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}
