package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetops/backend/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, analyticsSvc *service.AnalyticsService, repo service.FleetRepository) {
	handler := NewHandler(analyticsSvc, repo)

	// Health check and metrics
	app.Get("/health", handler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/dashboard", handler.GetDashboard)
		api.Get("/anomalies", handler.GetAnomalies)
		api.Get("/forecast", handler.GetForecast)
		api.Get("/alerts", handler.GetAlerts)

		api.Get("/maintenance/risk", handler.GetMaintenanceRisk)
		api.Get("/maintenance/failures", handler.GetFailurePredictions)
		api.Get("/equipment/:id/health", handler.GetEquipmentHealth)
		api.Get("/projects/:id/recommendations", handler.GetRecommendations)
		api.Get("/optimize", handler.GetOptimization)

		api.Get("/weather/forecast", handler.GetWeatherForecast)
		api.Get("/weather/impact", handler.GetWeatherImpact)
		api.Get("/weather/schedule", handler.GetWeatherSchedule)

		api.Get("/insights/utilization", handler.GetUtilization)
		api.Get("/insights/carbon", handler.GetCarbon)
	}
}

// ErrorHandler renders errors as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
