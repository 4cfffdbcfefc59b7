package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/backend/internal/domain"
)

var (
	now   = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	sites = []domain.Site{{ID: "S1", Name: "Harbour"}}
)

func forecastDay(offset int, c domain.WeatherCondition, temp, wind, precip, vis float64) domain.WeatherData {
	return domain.WeatherData{
		Date:       time.Date(2026, 2, 10+offset, 0, 0, 0, 0, time.UTC),
		Conditions: c, Temperature: temp, WindSpeed: wind, Precipitation: precip, Visibility: vis,
	}
}

func clearDay(offset int) domain.WeatherData {
	return forecastDay(offset, domain.ConditionClear, 18, 5, 0, 10)
}

func TestPredictPerformance(t *testing.T) {
	crane := domain.Equipment{Type: "Tower Crane"}
	p := PredictPerformance(crane, forecastDay(0, domain.ConditionCloudy, 20, 35, 0, 10))
	assert.Equal(t, 40.0, p.ExpectedPerformance)
	assert.Equal(t, []string{"High winds affecting stability", "High winds affecting crane stability"}, p.RiskFactors)
	assert.Equal(t, []string{"Avoid high-lift operations", "Consider stopping crane operations"}, p.OperationalGuidelines)
	assert.Equal(t, []string{"Check wind sensors and safety systems"}, p.MaintenanceRecommendations)

	calm := PredictPerformance(domain.Equipment{Type: "Excavator"}, clearDay(0))
	assert.Equal(t, 100.0, calm.ExpectedPerformance)
	assert.Empty(t, calm.RiskFactors)

	fog := PredictPerformance(domain.Equipment{Type: "Wheel Loader"}, forecastDay(0, domain.ConditionFog, 10, 0, 0, 0.5))
	assert.Equal(t, 40.0, fog.ExpectedPerformance)

	frozen := PredictPerformance(domain.Equipment{Type: "Bulldozer"}, forecastDay(0, domain.ConditionExtremeCold, -30, 50, 30, 0.1))
	assert.Equal(t, 0.0, frozen.ExpectedPerformance)
}

func TestDailyRisk(t *testing.T) {
	worst := forecastDay(0, domain.ConditionStorm, 20, 45, 25, 10)
	assert.Equal(t, 100.0, DailyRisk(worst, domain.Project{Type: "Outdoor aerial work"}))
	assert.Equal(t, 0.0, DailyRisk(clearDay(0), domain.Project{}))
	assert.Equal(t, 35.0, DailyRisk(forecastDay(0, domain.ConditionRain, 15, 0, 12, 10), domain.Project{}))
	assert.Equal(t, 65.0, DailyRisk(forecastDay(0, domain.ConditionFog, -10, 0, 0, 0.4), domain.Project{}))
}

func TestProjectWeatherRisk(t *testing.T) {
	forecast := []domain.WeatherData{
		forecastDay(0, domain.ConditionStorm, 20, 45, 0, 10),
		forecastDay(1, domain.ConditionStorm, 20, 45, 25, 10),
		clearDay(2),
	}
	r := ProjectWeatherRisk(domain.Project{ID: "P1", Budget: 10000, Duration: 10}, forecast)

	assert.Equal(t, "P1", r.ProjectID)
	assert.Equal(t, "Unknown Project", r.ProjectName)
	assert.Equal(t, 55, r.RiskScore)
	assert.Equal(t, []time.Time{forecast[1].Date}, r.HighRiskDates)
	assert.Equal(t, 950.0, r.EstimatedCostImpact)
	assert.Equal(t, []string{
		"Monitor weather conditions closely",
		"Have backup plans for high-risk days",
		"High-risk weather expected on: 2026-02-11",
		"Ensure site has proper drainage and weather protection",
		"Coordinate with weather services for real-time updates",
	}, r.RecommendedActions)
}

func TestProjectWeatherRiskEmptyForecast(t *testing.T) {
	r := ProjectWeatherRisk(domain.Project{ID: "P1", Name: "Bridge"}, nil)
	assert.Equal(t, 0, r.RiskScore)
	assert.Empty(t, r.HighRiskDates)
	assert.Len(t, r.RecommendedActions, 2)
}

func TestAnalyzeImpact(t *testing.T) {
	equipment := []domain.Equipment{
		{ID: "CRN-1", Type: "Crane", SiteID: "S1"},
		{ID: "CRN-2", Type: "Crane", SiteID: "S9"},
	}
	projects := []domain.Project{{ID: "P1", Name: "Pier", Type: "road", SiteID: "S1"}, {ID: "P2", SiteID: "S9"}}
	forecast := []domain.WeatherData{forecastDay(0, domain.ConditionStorm, 20, 35, 0, 10), clearDay(1)}

	a := AnalyzeImpact(equipment, projects, sites, forecast)

	require.Len(t, a.EquipmentImpacts, 1)
	impact := a.EquipmentImpacts[0]
	assert.Equal(t, "CRN-1", impact.EquipmentID)
	assert.Equal(t, 60, impact.ImpactScore)
	assert.Equal(t, domain.SeverityHigh, impact.RiskLevel)
	assert.Equal(t, 15.0, impact.EstimatedDelayHours)

	require.Len(t, a.ProjectRisks, 1)
	assert.Equal(t, 28, a.ProjectRisks[0].RiskScore)
	assert.Equal(t, "Medium - Moderate weather impact expected", a.OverallRisk)
	assert.Equal(t, "Consider postponing non-critical operations during extreme weather", a.Recommendations[0])
	assert.Len(t, a.Recommendations, 4)
}

func TestAnalyzeImpactCalmWeather(t *testing.T) {
	a := AnalyzeImpact([]domain.Equipment{{ID: "E", SiteID: "S1"}}, nil, sites, []domain.WeatherData{clearDay(0)})
	assert.Empty(t, a.EquipmentImpacts)
	assert.Empty(t, a.ProjectRisks)
	assert.Equal(t, "Minimal - Weather conditions favorable", a.OverallRisk)
	assert.Len(t, a.Recommendations, 3)
}

func TestEstimatedDelay(t *testing.T) {
	assert.Equal(t, 24.0, estimatedDelay(100, domain.ConditionStorm))
	assert.Equal(t, 10.0, estimatedDelay(60, domain.ConditionExtremeHeat))
	assert.Equal(t, 8.0, estimatedDelay(100, domain.ConditionFog))
	assert.Equal(t, 3.0, estimatedDelay(30, domain.ConditionRain))
}

func stormyWeek() []domain.WeatherData {
	return []domain.WeatherData{
		forecastDay(0, domain.ConditionStorm, 20, 45, 25, 10),
		forecastDay(1, domain.ConditionStorm, 20, 45, 25, 10),
		clearDay(2),
		forecastDay(3, domain.ConditionStorm, 20, 45, 25, 10),
	}
}

func TestOptimizeScheduleShiftsToCalmDay(t *testing.T) {
	start := time.Date(2026, 2, 10, 7, 0, 0, 0, time.UTC)
	projects := []domain.Project{
		{ID: "P1", SiteID: "S1", StartDate: start, Budget: 8000, Duration: 10},
		{ID: "P2", SiteID: "S1", StartDate: start},
		{ID: "P3", SiteID: "S9", StartDate: start},
	}
	c := DefaultScheduleConstraints()
	c.PriorityProjects = []string{"P2"}

	out := OptimizeSchedule(projects, sites, stormyWeek(), c)
	require.Len(t, out, 2)

	assert.Equal(t, "P2", out[0].ProjectID)
	p1 := out[1]
	assert.Equal(t, "P1", p1.ProjectID)
	assert.Equal(t, time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC), p1.RecommendedStartDate)
	assert.Equal(t, 48.0, p1.DelayHours)
	assert.Equal(t, 4800.0, p1.CostImpact)
	assert.Equal(t, "High weather risk (71/100)", p1.Reason)
	assert.Equal(t, start, p1.OriginalStartDate)
}

func TestOptimizeScheduleWithoutCalmDayKeepsStart(t *testing.T) {
	forecast := stormyWeek()
	forecast[2] = forecastDay(2, domain.ConditionStorm, 20, 45, 25, 10)
	start := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	out := OptimizeSchedule([]domain.Project{{ID: "P1", SiteID: "S1", StartDate: start}}, sites, forecast, DefaultScheduleConstraints())
	require.Len(t, out, 1)
	assert.Equal(t, start, out[0].RecommendedStartDate)
	assert.Equal(t, 0.0, out[0].DelayHours)
}

func TestOptimizeMaintenance(t *testing.T) {
	equipment := []domain.Equipment{
		{ID: "A", Status: domain.EquipmentAvailable},
		{ID: "B", Status: domain.EquipmentMaintenance},
		{ID: "C", Status: domain.EquipmentAvailable},
	}
	history := []domain.MaintenanceRecord{
		{EquipmentID: "A", MaintenanceDate: now.AddDate(0, 0, -100)},
		{EquipmentID: "C", MaintenanceDate: now.AddDate(0, 0, -10)},
	}
	forecast := []domain.WeatherData{forecastDay(4, domain.ConditionClear, 20, 5, 0, 10)}

	out := OptimizeMaintenance(equipment, history, forecast, now)
	require.Len(t, out, 2)

	assert.Equal(t, "B", out[0].EquipmentID)
	assert.Equal(t, domain.SeverityHigh, out[0].Priority)
	assert.Equal(t, "Equipment currently under maintenance", out[0].Reason)

	a := out[1]
	assert.Equal(t, "A", a.EquipmentID)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), a.RecommendedDate)
	assert.Equal(t, 100, a.WeatherScore)
	assert.Equal(t, domain.SeverityMedium, a.Priority)
	assert.Equal(t, "Regular maintenance due", a.Reason)
}

func TestOptimizeMaintenanceFallsBackToNextWeek(t *testing.T) {
	out := OptimizeMaintenance([]domain.Equipment{{ID: "A", Status: domain.EquipmentMaintenance}}, nil, nil, now)
	require.Len(t, out, 1)
	assert.Equal(t, time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC), out[0].RecommendedDate)
	assert.Equal(t, 50, out[0].WeatherScore)
}
