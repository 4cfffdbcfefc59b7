// Package insights turns usage and rental records into operator-facing
// fleet summaries: utilization, availability, carbon output and alerts.
package insights

import (
	"math"
	"sort"

	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

const (
	// UnderUtilizedThreshold is the utilization percentage below which a machine is flagged
	UnderUtilizedThreshold = 50

	// DieselCO2PerLitre is kg of CO2 released per litre of diesel
	DieselCO2PerLitre = 2.68
)

// Utilization maps each machine to its active share of total hours as a
// rounded percentage. A machine with no hours is 0.
func Utilization(usage []domain.UsageSnapshot) map[string]int {
	out := make(map[string]int, len(usage))
	for _, u := range usage {
		var pct float64
		if u.TotalHours > 0 {
			pct = (1 - u.IdleHours/u.TotalHours) * 100
		}
		out[u.EquipmentID] = utils.RoundInt(pct)
	}
	return out
}

// UnderUtilized lists machines below thresholdPct, sorted by ID
func UnderUtilized(utilization map[string]int, thresholdPct int) []string {
	out := []string{}
	for id, pct := range utilization {
		if pct < thresholdPct {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Available lists machines marked available that have no active rental,
// in fleet order
func Available(equipment []domain.Equipment, rentals []domain.Rental) []string {
	active := make(map[string]bool)
	for _, r := range rentals {
		if r.Status == domain.RentalActive {
			active[r.EquipmentID] = true
		}
	}
	out := []string{}
	for _, e := range equipment {
		if e.Status == domain.EquipmentAvailable && !active[e.ID] {
			out = append(out, e.ID)
		}
	}
	return out
}

// EstimateCarbon approximates CO2 per machine from hours worked and fuel
// efficiency (hours per litre, floored at 0.1), rounded to 0.1 kg
func EstimateCarbon(usage []domain.UsageSnapshot, kgPerLitre float64) []domain.CarbonEstimate {
	if kgPerLitre <= 0 {
		kgPerLitre = DieselCO2PerLitre
	}
	out := make([]domain.CarbonEstimate, 0, len(usage))
	for _, u := range usage {
		litres := u.TotalHours * math.Max(0.1, 1/math.Max(0.1, u.FuelEfficiency)) * 10
		out = append(out, domain.CarbonEstimate{
			EquipmentID:    u.EquipmentID,
			PeriodHours:    u.TotalHours,
			EstimatedCO2kg: utils.RoundTo(litres*kgPerLitre, 1),
		})
	}
	return out
}
