// Package features derives per-machine features from raw usage, rental and
// maintenance records. Inputs are never mutated.
package features

import (
	"math"
	"sort"
	"time"

	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

const (
	// NoHistoryDays stands in for "days since" when there is no date at all
	NoHistoryDays = 999

	// TypicalAnnualHours converts engine hours into an age estimate
	TypicalAnnualHours = 2000

	// ExpensiveRepairCost marks a repair as expensive
	ExpensiveRepairCost = 1000

	// DefaultIdleShare is the idle fraction assumed when deriving usage from rentals
	DefaultIdleShare = 0.15

	// DefaultFuelEfficiency is used when a machine has no fuel records
	DefaultFuelEfficiency = 3.0

	// HoursPerMaintenancePoint lowers the maintenance score by one point
	HoursPerMaintenancePoint = 80
)

// IdleRatio is idle hours over total hours, total floored at 1
func IdleRatio(u domain.UsageSnapshot) float64 {
	return u.IdleHours / math.Max(1, u.TotalHours)
}

// UsageVector is the 4-dimensional feature vector used by the isolation forest
func UsageVector(u domain.UsageSnapshot) []float64 {
	return []float64{IdleRatio(u), u.FuelEfficiency, u.UtilizationRate, u.MaintenanceScore / 100}
}

// EngineHoursDelta returns end minus start hours. An open rental counts as
// zero. The result is not clamped; callers decide how to treat negatives.
func EngineHoursDelta(r domain.Rental) float64 {
	end := r.EngineHoursStart
	if r.EngineHoursEnd != nil {
		end = *r.EngineHoursEnd
	}
	return end - r.EngineHoursStart
}

// DaysSince returns whole days elapsed from t to now, NoHistoryDays for nil
func DaysSince(t *time.Time, now time.Time) float64 {
	if t == nil {
		return NoHistoryDays
	}
	return math.Floor(now.Sub(*t).Hours() / 24)
}

// EstimateAgeYears guesses machine age from engine hours
func EstimateAgeYears(eq domain.Equipment) float64 {
	return math.Round(eq.Specifications.EngineHours / TypicalAnnualHours)
}

// HistoryFor returns the records of one machine sorted oldest first
func HistoryFor(equipmentID string, history []domain.MaintenanceRecord) []domain.MaintenanceRecord {
	var out []domain.MaintenanceRecord
	for _, m := range history {
		if m.EquipmentID == equipmentID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MaintenanceDate.Before(out[j].MaintenanceDate)
	})
	return out
}

// LastMaintenanceDate is the date of the final record, nil when empty
func LastMaintenanceDate(history []domain.MaintenanceRecord) *time.Time {
	if len(history) == 0 {
		return nil
	}
	d := history[len(history)-1].MaintenanceDate
	return &d
}

// AverageRepairCost is the mean cost across the history, missing costs as 0
func AverageRepairCost(history []domain.MaintenanceRecord) float64 {
	if len(history) == 0 {
		return 0
	}
	var total float64
	for _, h := range history {
		total += h.Cost
	}
	return total / float64(len(history))
}

// ExpensiveRepairRatio is the share of records costing more than ExpensiveRepairCost
func ExpensiveRepairRatio(history []domain.MaintenanceRecord) float64 {
	var n int
	for _, h := range history {
		if h.Cost > ExpensiveRepairCost {
			n++
		}
	}
	return float64(n) / math.Max(1, float64(len(history)))
}

// MaintenanceIntervals returns the absolute day gaps between consecutive records
func MaintenanceIntervals(history []domain.MaintenanceRecord, now time.Time) []float64 {
	var out []float64
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1].MaintenanceDate, history[i].MaintenanceDate
		out = append(out, math.Abs(DaysSince(&prev, now)-DaysSince(&cur, now)))
	}
	return out
}

// MaintenanceFeatures scales the five risk inputs to [0,1]:
// engine hours (0-10000), days since last service (0-365), record count
// (0-20), average repair cost (0-10000) and estimated age (0-20 years).
func MaintenanceFeatures(eq domain.Equipment, history []domain.MaintenanceRecord, now time.Time) []float64 {
	return []float64{
		utils.Scale(eq.Specifications.EngineHours, 0, 10000),
		utils.Scale(DaysSince(LastMaintenanceDate(history), now), 0, 365),
		utils.Scale(float64(len(history)), 0, 20),
		utils.Scale(AverageRepairCost(history), 0, 10000),
		utils.Scale(EstimateAgeYears(eq), 0, 20),
	}
}

// FailureRiskFactors are the unclamped ratios behind the failure probability:
// engine hours / 10000, days since service / 365, expensive repair share and
// age / 20.
func FailureRiskFactors(eq domain.Equipment, history []domain.MaintenanceRecord, now time.Time) []float64 {
	return []float64{
		eq.Specifications.EngineHours / 10000,
		DaysSince(LastMaintenanceDate(history), now) / 365,
		ExpensiveRepairRatio(history),
		EstimateAgeYears(eq) / 20,
	}
}

// EngineHoursSinceMaintenance sums the positive engine-hour deltas of a
// machine's rentals checked out after its last service. With no service date
// every rental counts.
func EngineHoursSinceMaintenance(equipmentID string, rentals []domain.Rental, lastService *time.Time) float64 {
	var total float64
	for _, r := range rentals {
		if r.EquipmentID != equipmentID {
			continue
		}
		if lastService != nil && r.CheckOutDate.Before(*lastService) {
			continue
		}
		total += math.Max(0, EngineHoursDelta(r))
	}
	return total
}

// RentalPerformance scores one finished or running rental in [0,1]:
// completion (0.4 completed, 0.1 cancelled, 0.2 otherwise), on-time return
// (0.3 within a day, 0.2 within 3, 0.1 within 7) and cost per day (0.3 up to
// 100, 0.2 up to 200, 0.1 up to 300).
func RentalPerformance(r domain.Rental) float64 {
	var score float64
	switch r.Status {
	case domain.RentalCompleted:
		score += 0.4
	case domain.RentalCancelled:
		score += 0.1
	default:
		score += 0.2
	}

	if r.CheckInDate != nil && !r.PlannedReturnDate.IsZero() {
		diff := math.Abs(utils.DaysBetween(r.PlannedReturnDate, *r.CheckInDate))
		switch {
		case diff <= 1:
			score += 0.3
		case diff <= 3:
			score += 0.2
		case diff <= 7:
			score += 0.1
		}
	}

	duration := r.Duration
	if duration == 0 {
		duration = 1
	}
	costPerDay := r.TotalCost / math.Max(1, duration)
	switch {
	case costPerDay <= 100:
		score += 0.3
	case costPerDay <= 200:
		score += 0.2
	case costPerDay <= 300:
		score += 0.1
	}
	return score
}

// BuildUsageSnapshots aggregates rental engine-hour deltas into one usage
// snapshot per machine. Idle time is assumed to be DefaultIdleShare of the
// total and fuel efficiency is hours per unit of fuel.
func BuildUsageSnapshots(equipment []domain.Equipment, rentals []domain.Rental, now time.Time) []domain.UsageSnapshot {
	type agg struct{ hours, fuel float64 }
	known := make(map[string]bool, len(equipment))
	for _, e := range equipment {
		known[e.ID] = true
	}
	byEquipment := make(map[string]*agg)
	for _, r := range rentals {
		if !known[r.EquipmentID] {
			continue
		}
		a, ok := byEquipment[r.EquipmentID]
		if !ok {
			a = &agg{}
			byEquipment[r.EquipmentID] = a
		}
		a.hours += math.Max(0, EngineHoursDelta(r))
		a.fuel += math.Max(0, r.FuelUsage)
	}

	out := make([]domain.UsageSnapshot, 0, len(equipment))
	for _, e := range equipment {
		a := byEquipment[e.ID]
		if a == nil {
			a = &agg{}
		}
		total := math.Round(a.hours)
		idle := math.Round(total * DefaultIdleShare)
		var utilization float64
		if total > 0 {
			utilization = math.Round((total - idle) / math.Max(1, total) * 100)
		}
		efficiency := DefaultFuelEfficiency
		if a.fuel > 0 && total > 0 {
			efficiency = utils.RoundTo(total/a.fuel, 1)
		}
		score := utils.Clamp(100-math.Round(e.Specifications.EngineHours/HoursPerMaintenancePoint), 0, 100)
		ts := now
		out = append(out, domain.UsageSnapshot{
			EquipmentID:      e.ID,
			TotalHours:       total,
			IdleHours:        idle,
			FuelEfficiency:   efficiency,
			UtilizationRate:  utilization,
			MaintenanceScore: score,
			Timestamp:        &ts,
		})
	}
	return out
}
