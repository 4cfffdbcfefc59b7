package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/backend/internal/domain"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func TestIdleRatioGuardsZeroHours(t *testing.T) {
	assert.Equal(t, 0.0, IdleRatio(domain.UsageSnapshot{}))
	assert.Equal(t, 5.0, IdleRatio(domain.UsageSnapshot{IdleHours: 5, TotalHours: 0.5}))
	assert.Equal(t, 0.1, IdleRatio(domain.UsageSnapshot{IdleHours: 10, TotalHours: 100}))
}

func TestUsageVector(t *testing.T) {
	v := UsageVector(domain.UsageSnapshot{TotalHours: 100, IdleHours: 20, FuelEfficiency: 3, UtilizationRate: 80, MaintenanceScore: 90})
	assert.Equal(t, []float64{0.2, 3, 80, 0.9}, v)
}

func TestEngineHoursDelta(t *testing.T) {
	open := domain.Rental{EngineHoursStart: 100}
	assert.Equal(t, 0.0, EngineHoursDelta(open))

	closed := domain.Rental{EngineHoursStart: 100, EngineHoursEnd: ptrFloat(130)}
	assert.Equal(t, 30.0, EngineHoursDelta(closed))

	inconsistent := domain.Rental{EngineHoursStart: 100, EngineHoursEnd: ptrFloat(90)}
	assert.Equal(t, -10.0, EngineHoursDelta(inconsistent))
}

func TestDaysSince(t *testing.T) {
	assert.Equal(t, float64(NoHistoryDays), DaysSince(nil, now))
	assert.Equal(t, 10.0, DaysSince(ptrTime(now.Add(-10*24*time.Hour-time.Hour)), now))
}

func TestHistoryForSortsOldestFirst(t *testing.T) {
	history := []domain.MaintenanceRecord{
		{ID: "m3", EquipmentID: "EXC-1", MaintenanceDate: now.AddDate(0, 0, -5)},
		{ID: "x", EquipmentID: "CRN-1", MaintenanceDate: now.AddDate(0, 0, -50)},
		{ID: "m1", EquipmentID: "EXC-1", MaintenanceDate: now.AddDate(0, 0, -100)},
		{ID: "m2", EquipmentID: "EXC-1", MaintenanceDate: now.AddDate(0, 0, -40)},
	}
	got := HistoryFor("EXC-1", history)
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m3", got[2].ID)
	assert.Equal(t, "m3", history[0].ID, "input must not be reordered")

	last := LastMaintenanceDate(got)
	require.NotNil(t, last)
	assert.True(t, last.Equal(now.AddDate(0, 0, -5)))
	assert.Nil(t, LastMaintenanceDate(nil))
}

func TestCostFeatures(t *testing.T) {
	history := []domain.MaintenanceRecord{{Cost: 500}, {Cost: 1500}, {}, {Cost: 2000}}
	assert.Equal(t, 1000.0, AverageRepairCost(history))
	assert.Equal(t, 0.5, ExpensiveRepairRatio(history))
	assert.Equal(t, 0.0, AverageRepairCost(nil))
	assert.Equal(t, 0.0, ExpensiveRepairRatio(nil))
}

func TestMaintenanceIntervals(t *testing.T) {
	history := []domain.MaintenanceRecord{
		{MaintenanceDate: now.AddDate(0, 0, -90)},
		{MaintenanceDate: now.AddDate(0, 0, -60)},
		{MaintenanceDate: now.AddDate(0, 0, -10)},
	}
	assert.Equal(t, []float64{30, 50}, MaintenanceIntervals(history, now))
	assert.Empty(t, MaintenanceIntervals(history[:1], now))
}

func TestMaintenanceFeaturesAreScaled(t *testing.T) {
	eq := domain.Equipment{Specifications: domain.Specifications{EngineHours: 5000}}
	history := []domain.MaintenanceRecord{{MaintenanceDate: now.AddDate(0, 0, -73), Cost: 2000}}
	f := MaintenanceFeatures(eq, history, now)
	require.Len(t, f, 5)
	assert.InDelta(t, 0.5, f[0], 1e-9)
	assert.InDelta(t, 0.2, f[1], 1e-9)
	assert.InDelta(t, 0.05, f[2], 1e-9)
	assert.InDelta(t, 0.2, f[3], 1e-9)
	assert.InDelta(t, 0.15, f[4], 1e-9) // round(2.5) = 3 years
	for _, v := range f {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestFailureRiskFactorsWithoutHistory(t *testing.T) {
	eq := domain.Equipment{Specifications: domain.Specifications{EngineHours: 2000}}
	f := FailureRiskFactors(eq, nil, now)
	assert.InDelta(t, 0.2, f[0], 1e-9)
	assert.InDelta(t, 999.0/365, f[1], 1e-9)
	assert.Equal(t, 0.0, f[2])
	assert.InDelta(t, 0.05, f[3], 1e-9)
}

func TestEngineHoursSinceMaintenance(t *testing.T) {
	service := now.AddDate(0, 0, -20)
	rentals := []domain.Rental{
		{EquipmentID: "EXC-1", CheckOutDate: now.AddDate(0, 0, -30), EngineHoursStart: 0, EngineHoursEnd: ptrFloat(100)},
		{EquipmentID: "EXC-1", CheckOutDate: now.AddDate(0, 0, -10), EngineHoursStart: 100, EngineHoursEnd: ptrFloat(140)},
		{EquipmentID: "EXC-1", CheckOutDate: now.AddDate(0, 0, -5), EngineHoursStart: 140, EngineHoursEnd: ptrFloat(120)},
		{EquipmentID: "CRN-1", CheckOutDate: now.AddDate(0, 0, -5), EngineHoursStart: 0, EngineHoursEnd: ptrFloat(500)},
	}
	assert.Equal(t, 40.0, EngineHoursSinceMaintenance("EXC-1", rentals, &service))
	assert.Equal(t, 140.0, EngineHoursSinceMaintenance("EXC-1", rentals, nil))
}

func TestRentalPerformance(t *testing.T) {
	planned := now.AddDate(0, 0, -3)
	perfect := domain.Rental{
		Status:            domain.RentalCompleted,
		PlannedReturnDate: planned,
		CheckInDate:       ptrTime(planned.Add(12 * time.Hour)),
		TotalCost:         500,
		Duration:          10,
	}
	assert.InDelta(t, 1.0, RentalPerformance(perfect), 1e-9)

	late := domain.Rental{
		Status:            domain.RentalCancelled,
		PlannedReturnDate: planned,
		CheckInDate:       ptrTime(planned.AddDate(0, 0, 10)),
		TotalCost:         1000,
	}
	assert.InDelta(t, 0.1, RentalPerformance(late), 1e-9)
}

func TestBuildUsageSnapshots(t *testing.T) {
	equipment := []domain.Equipment{
		{ID: "EXC-1", Specifications: domain.Specifications{EngineHours: 4000}},
		{ID: "CRN-1", Specifications: domain.Specifications{EngineHours: 9000}},
	}
	rentals := []domain.Rental{
		{EquipmentID: "EXC-1", EngineHoursStart: 100, EngineHoursEnd: ptrFloat(160), FuelUsage: 20},
		{EquipmentID: "EXC-1", EngineHoursStart: 160, EngineHoursEnd: ptrFloat(200), FuelUsage: 30},
		{EquipmentID: "GHOST", EngineHoursStart: 0, EngineHoursEnd: ptrFloat(1000)},
	}
	got := BuildUsageSnapshots(equipment, rentals, now)
	require.Len(t, got, 2)

	exc := got[0]
	assert.Equal(t, "EXC-1", exc.EquipmentID)
	assert.Equal(t, 100.0, exc.TotalHours)
	assert.Equal(t, 15.0, exc.IdleHours)
	assert.Equal(t, 85.0, exc.UtilizationRate)
	assert.Equal(t, 2.0, exc.FuelEfficiency)
	assert.Equal(t, 50.0, exc.MaintenanceScore)
	require.NotNil(t, exc.Timestamp)

	crn := got[1]
	assert.Equal(t, 0.0, crn.TotalHours)
	assert.Equal(t, 0.0, crn.UtilizationRate)
	assert.Equal(t, DefaultFuelEfficiency, crn.FuelEfficiency)
	assert.Equal(t, 0.0, crn.MaintenanceScore)
}
