// Package metrics registers the Prometheus collectors for the fleet service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalyticsRunsTotal counts analytics runs by module and outcome
	AnalyticsRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_analytics_runs_total",
			Help: "Total number of analytics runs",
		},
		[]string{"module", "status"},
	)

	AnalyticsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_analytics_duration_seconds",
			Help:    "Analytics run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"module"},
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_anomalies_detected_total",
			Help: "Anomalies reported by detection runs",
		},
		[]string{"algorithm", "severity"},
	)

	RepositoryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_repository_errors_total",
			Help: "Failed repository calls",
		},
		[]string{"operation"},
	)

	WeatherFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_weather_fallbacks_total",
			Help: "Times the mock weather forecast replaced the live feed",
		},
	)
)

// ObserveRun records one analytics run
func ObserveRun(module string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AnalyticsRunsTotal.WithLabelValues(module, status).Inc()
	AnalyticsDuration.WithLabelValues(module).Observe(time.Since(started).Seconds())
}
