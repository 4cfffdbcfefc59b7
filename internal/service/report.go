package service

import (
	"context"
	"time"

	"github.com/fleetops/backend/internal/analytics/optimize"
	"github.com/fleetops/backend/internal/analytics/weather"
	"github.com/fleetops/backend/internal/domain"
)

// FleetReport is the full offline analytics run
type FleetReport struct {
	GeneratedAt        time.Time                                   `json:"generated_at"`
	Anomalies          []domain.AnomalyResult                      `json:"anomalies"`
	Forecasts          map[string][]domain.ForecastItem            `json:"forecasts"`
	MaintenanceRisk    []domain.RiskScore                          `json:"maintenance_risk"`
	FailurePredictions []domain.FailurePrediction                  `json:"failure_predictions"`
	Recommendations    map[string][]domain.EquipmentRecommendation `json:"recommendations"`
	Weather            weather.Assessment                          `json:"weather"`
	Utilization        UtilizationReport                           `json:"utilization"`
	Carbon             []domain.CarbonEstimate                     `json:"carbon"`
	Alerts             []domain.Alert                              `json:"alerts"`
	Optimization       OptimizationReport                          `json:"optimization"`
}

// ReportSteps is the number of progress callbacks Report makes
const ReportSteps = 9

// Report runs every analytics module against one read of the fleet. step,
// when non-nil, is called after each module with a short description.
func (s *AnalyticsService) Report(ctx context.Context, step func(desc string)) (FleetReport, error) {
	if step == nil {
		step = func(string) {}
	}

	f, days, err := s.loadWithWeather(ctx)
	if err != nil {
		return FleetReport{}, err
	}
	now := s.now()
	report := FleetReport{GeneratedAt: now}

	report.Anomalies = s.detect(f)
	step("anomalies")

	report.Forecasts = map[string][]domain.ForecastItem{}
	for _, method := range []string{ForecastDecay, ForecastTrend, ForecastSeasonal} {
		report.Forecasts[method] = s.forecast(f, method)
	}
	step("forecasts")

	report.MaintenanceRisk = s.riskRanking(f)
	step("maintenance risk")

	report.FailurePredictions = s.maintenance.PredictFailures(f.equipment, f.maintenance, now)
	step("failure predictions")

	report.Recommendations = make(map[string][]domain.EquipmentRecommendation, len(f.projects))
	for _, p := range f.projects {
		report.Recommendations[p.ID] = s.recommender.Recommend(p, f.equipment, f.rentals, f.sites, s.maxRecs, now)
	}
	step("recommendations")

	report.Weather = weather.AnalyzeImpact(f.equipment, f.projects, f.sites, days)
	step("weather impact")

	report.Utilization = utilizationReport(f)
	report.Carbon = carbonEstimates(f)
	step("utilization")

	report.Alerts = s.buildAlerts(f, report.Anomalies)
	step("alerts")

	report.Optimization = s.optimization(f, optimize.DefaultConstraints())
	step("optimization")

	return report, nil
}
