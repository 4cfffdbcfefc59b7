package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fleetops/backend/internal/config"
	"github.com/fleetops/backend/internal/delivery/http"
	"github.com/fleetops/backend/internal/logging"
	"github.com/fleetops/backend/internal/repository/postgres"
	"github.com/fleetops/backend/internal/service"
)

func main() {
	// Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		Production: cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer zlog.Sync()

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := connect(ctx, cfg, zlog)
	if pool != nil {
		defer pool.Close()
	}

	// Dependency Injection: Repositories
	var fleetRepo service.FleetRepository
	if pool != nil {
		fleetRepo = postgres.NewPostgresRepository(pool)
	} else {
		fleetRepo = postgres.NewMockRepository()
	}

	// Dependency Injection: Services
	weatherSvc := service.NewWeatherService(cfg.OpenWeatherAPIKey, cfg.SiteLat, cfg.SiteLon, zlog.Named("weather"))
	analyticsSvc := service.NewAnalyticsService(fleetRepo, weatherSvc, service.Options{
		DecayHalfLifeDays:   cfg.Analytics.DecayHalfLifeDays,
		TrendPeriods:        cfg.Analytics.TrendPeriods,
		MaxRecommendations:  cfg.Analytics.MaxRecommendations,
		IsolationTrees:      cfg.Analytics.IsolationTrees,
		IsolationSampleSize: cfg.Analytics.IsolationSampleSize,
		Logger:              zlog.Named("analytics"),
	})

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Fleet Analytics API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, analyticsSvc, fleetRepo)

	// Graceful shutdown
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		zlog.Warn("server forced to shutdown", zap.Error(err))
	}
	analyticsSvc.WaitBackground()
	zlog.Info("server exited gracefully")
}

// connect opens the pool and applies migrations. It returns nil, and the
// server runs on the demo fleet, when the database is not reachable.
func connect(ctx context.Context, cfg *config.Config, zlog *zap.Logger) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		zlog.Warn("DATABASE_URL not set, running with mock data only")
		return nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err == nil {
		err = pool.Ping(ctx)
	}
	if err != nil {
		zlog.Warn("could not connect to database, running with mock data only", zap.Error(err))
		if pool != nil {
			pool.Close()
		}
		return nil
	}
	zlog.Info("connected to PostgreSQL")

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool); err != nil {
			zlog.Error("migrations failed, running with mock data only", zap.Error(err))
			pool.Close()
			return nil
		}
	}
	return pool
}
