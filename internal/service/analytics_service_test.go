package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/backend/internal/analytics/optimize"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/internal/repository/postgres"
)

var clock = time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)

type stubWeather struct {
	days []domain.WeatherData
	err  error
}

func (s stubWeather) GetForecast(ctx context.Context) ([]domain.WeatherData, error) {
	return s.days, s.err
}

func calmForecast() []domain.WeatherData {
	return []domain.WeatherData{
		{Date: clock, Temperature: 18, WindSpeed: 5, Visibility: 10, Conditions: domain.ConditionClear},
	}
}

func newTestService(repo FleetRepository, w WeatherProvider) *AnalyticsService {
	return NewAnalyticsService(repo, w, Options{
		Clock:  func() time.Time { return clock },
		Random: rand.New(rand.NewSource(7)),
	})
}

func seededService() (*AnalyticsService, *postgres.MockRepository) {
	repo := postgres.NewDatasetRepository(postgres.SeedDataset(clock))
	return newTestService(repo, stubWeather{days: calmForecast()}), repo
}

func TestDashboard(t *testing.T) {
	svc, repo := seededService()

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	svc.WaitBackground()

	assert.Equal(t, 12, d.EquipmentCount)
	assert.Equal(t, 5, d.ActiveRentals)
	assert.Equal(t, []string{"EXC-002", "CRN-002", "BLD-002", "LDR-001", "GRD-001", "FRK-001"}, d.Available)
	assert.Equal(t, []string{"TRK-001"}, d.UnderUtilized)
	assert.Equal(t, clock, d.Timestamp)
	assert.Equal(t, calmForecast(), d.Weather)
	assert.NotEmpty(t, d.Forecast)

	flagged := map[string]bool{}
	for _, a := range d.Anomalies {
		flagged[a.EquipmentID] = true
	}
	assert.True(t, flagged["TRK-001"])
	assert.Len(t, repo.SavedAnomalies(), len(d.Anomalies))

	kinds := map[domain.AlertType]bool{}
	for _, a := range d.Alerts {
		if a.EquipmentID == "TRK-001" {
			kinds[a.Type] = true
		}
		if a.Type == domain.AlertAnomaly {
			assert.Equal(t, "TRK-001", a.EquipmentID, a.Message)
		}
	}
	assert.True(t, kinds[domain.AlertOverdue])
	assert.True(t, kinds[domain.AlertGhostAsset])

	for _, r := range d.HighRisk {
		assert.GreaterOrEqual(t, r.RiskScore, highRiskScore)
	}
}

func TestAlertsOnlyFlagAnomalousMachines(t *testing.T) {
	svc, _ := seededService()

	alerts, err := svc.Alerts(context.Background())
	require.NoError(t, err)

	var anomalyAlerts int
	for _, a := range alerts {
		if a.Type != domain.AlertAnomaly {
			continue
		}
		anomalyAlerts++
		assert.Equal(t, "TRK-001", a.EquipmentID, a.Message)
		assert.NotContains(t, a.Message, "Machine learning")
	}
	assert.Positive(t, anomalyAlerts)
}

func TestOptimize(t *testing.T) {
	svc, _ := seededService()
	ctx := context.Background()

	report, err := svc.Optimize(ctx, optimize.DefaultConstraints())
	require.NoError(t, err)

	require.Len(t, report.Allocation, 3)
	assert.Equal(t, "PRJ-003", report.Allocation[0].ProjectID)
	used := map[string]bool{}
	for _, a := range report.Allocation {
		assert.False(t, used[a.EquipmentID], a.EquipmentID)
		used[a.EquipmentID] = true
		assert.Positive(t, a.Cost)
	}
	assert.Len(t, report.Costs.Scenarios, 4)
	assert.NotEmpty(t, report.Costs.Scenario)
	assert.Positive(t, report.Costs.CurrentCost)
	assert.Len(t, report.Routes, 3)
	for _, slot := range report.Maintenance {
		assert.False(t, slot.RecommendedDate.Before(clock.Truncate(24*time.Hour)), slot.EquipmentID)
	}

	_, err = svc.Optimize(ctx, optimize.Constraints{Budget: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDashboardSurvivesWeatherOutage(t *testing.T) {
	repo := postgres.NewDatasetRepository(postgres.SeedDataset(clock))
	svc := newTestService(repo, stubWeather{err: errors.New("feed down")})

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	svc.WaitBackground()
	assert.Empty(t, d.Weather)
	assert.Equal(t, 12, d.EquipmentCount)

	_, err = svc.WeatherImpact(context.Background())
	assert.ErrorContains(t, err, "feed down")
}

func TestForecastMethods(t *testing.T) {
	svc, _ := seededService()
	ctx := context.Background()

	for _, method := range []string{"", ForecastDecay, ForecastTrend, ForecastSeasonal} {
		items, err := svc.Forecast(ctx, method)
		require.NoError(t, err, method)
		assert.NotEmpty(t, items, method)
		for _, item := range items {
			assert.GreaterOrEqual(t, item.PredictedDemand, 0)
			assert.LessOrEqual(t, item.PredictedDemand, 100)
		}
	}

	_, err := svc.Forecast(ctx, "astrology")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMaintenanceRiskIsSortedDescending(t *testing.T) {
	svc, _ := seededService()

	risks, err := svc.MaintenanceRisk(context.Background())
	require.NoError(t, err)
	require.Len(t, risks, 12)
	for i := 1; i < len(risks); i++ {
		assert.GreaterOrEqual(t, risks[i-1].RiskScore, risks[i].RiskScore)
	}
}

func TestFailurePredictions(t *testing.T) {
	svc, _ := seededService()

	out, err := svc.FailurePredictions(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 12)
}

func TestEquipmentHealth(t *testing.T) {
	svc, _ := seededService()
	ctx := context.Background()

	report, err := svc.EquipmentHealth(ctx, "EXC-003")
	require.NoError(t, err)
	assert.Equal(t, "EXC-003", report.EquipmentID)
	assert.NotEmpty(t, report.ComponentHealth)

	_, err = svc.EquipmentHealth(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecommendations(t *testing.T) {
	svc, _ := seededService()
	ctx := context.Background()

	out, err := svc.Recommendations(ctx, "PRJ-002", 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "Crane", out[0].EquipmentType)
	assert.Equal(t, "Crane", out[1].EquipmentType)

	out, err = svc.Recommendations(ctx, "PRJ-002", 0)
	require.NoError(t, err)
	assert.Len(t, out, 5)

	_, err = svc.Recommendations(ctx, "PRJ-404", 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWeatherSchedule(t *testing.T) {
	svc, _ := seededService()

	report, err := svc.WeatherSchedule(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Projects)
	assert.NotEmpty(t, report.Maintenance)
}

func TestUtilizationDerivesUsageFromRentals(t *testing.T) {
	end := 180.0
	ds := domain.Dataset{
		Equipment: []domain.Equipment{{ID: "EXC-1", Status: domain.EquipmentAvailable}},
		Rentals: []domain.Rental{{
			EquipmentID: "EXC-1", Status: domain.RentalCompleted, CheckOutDate: clock.AddDate(0, 0, -10),
			EngineHoursStart: 100, EngineHoursEnd: &end,
		}},
	}
	svc := newTestService(postgres.NewDatasetRepository(ds), stubWeather{})

	report, err := svc.Utilization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"EXC-1": 85}, report.Utilization)
	assert.Empty(t, report.UnderUtilized)
	assert.Equal(t, []string{"EXC-1"}, report.Available)

	carbon, err := svc.Carbon(context.Background())
	require.NoError(t, err)
	require.Len(t, carbon, 1)
	assert.Equal(t, 80.0, carbon[0].PeriodHours)
}

type brokenRepo struct {
	*postgres.MockRepository
}

func (brokenRepo) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	return nil, errors.New("connection reset")
}

func TestRepositoryErrorsPropagate(t *testing.T) {
	svc := newTestService(brokenRepo{postgres.NewDatasetRepository(domain.Dataset{})}, stubWeather{})

	_, err := svc.Alerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list_rentals")
	assert.Contains(t, err.Error(), "connection reset")

	_, err = svc.Anomalies(context.Background())
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	svc, _ := seededService()

	var steps []string
	report, err := svc.Report(context.Background(), func(desc string) { steps = append(steps, desc) })
	require.NoError(t, err)
	svc.WaitBackground()

	assert.Len(t, steps, ReportSteps)
	assert.Equal(t, clock, report.GeneratedAt)
	assert.Len(t, report.Forecasts, 3)
	assert.Len(t, report.Recommendations, 3)
	assert.Len(t, report.Carbon, 12)
	assert.NotEmpty(t, report.Alerts)
}
