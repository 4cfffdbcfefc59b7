package maintenance

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fleetops/backend/internal/analytics/features"
	"github.com/fleetops/backend/internal/analytics/stats"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

// Health trend labels
const (
	HealthImproving = "improving"
	HealthStable    = "stable"
	HealthDeclining = "declining"
)

// component describes how one subsystem wears: a per-repair penalty for
// records whose description mentions keyword, plus optional engine-hour and
// age penalties
type component struct {
	name          string
	keyword       string
	weight        float64
	repairPenalty float64
	hoursPenalty  float64 // per 10000 engine hours
	agePenalty    float64 // per 20 years
}

// components is iterated in this order everywhere so reports are stable
var components = []component{
	{name: "engine", keyword: "engine", weight: 0.3, repairPenalty: 0.1, hoursPenalty: 0.3},
	{name: "transmission", keyword: "transmission", weight: 0.25, repairPenalty: 0.15, agePenalty: 0.2},
	{name: "hydraulics", keyword: "hydraulic", weight: 0.2, repairPenalty: 0.2},
	{name: "electrical", keyword: "electrical", weight: 0.15, repairPenalty: 0.25, agePenalty: 0.15},
	{name: "structural", keyword: "structural", weight: 0.1, repairPenalty: 0.3, agePenalty: 0.1},
}

func (c component) health(eq domain.Equipment, history []domain.MaintenanceRecord) float64 {
	var repairs int
	for _, h := range history {
		if mentions(h.Description, c.keyword) {
			repairs++
		}
	}
	health := 1.0
	health -= eq.Specifications.EngineHours / 10000 * c.hoursPenalty
	health -= features.EstimateAgeYears(eq) / 20 * c.agePenalty
	health -= float64(repairs) * c.repairPenalty
	return utils.Clamp(health, 0, 1)
}

func mentions(description, keyword string) bool {
	return strings.Contains(strings.ToLower(description), keyword)
}

// EquipmentHealth breaks a machine's condition down per component and
// derives the overall health, a cost-based trend and recommendations
func EquipmentHealth(eq domain.Equipment, history []domain.MaintenanceRecord) domain.HealthReport {
	h := features.HistoryFor(eq.ID, history)

	scores := make(map[string]int, len(components))
	var overall float64
	var recommendations []string
	var weak []string
	for _, c := range components {
		v := c.health(eq, h)
		overall += v * c.weight
		scores[c.name] = utils.RoundInt(v * 100)
		if v < 0.5 {
			weak = append(weak, fmt.Sprintf("Inspect %s system - health at %d%%", c.name, utils.RoundInt(v*100)))
		}
	}

	if overall < 0.6 {
		recommendations = append(recommendations, "Schedule comprehensive maintenance inspection")
	}
	recommendations = append(recommendations, weak...)
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Continue regular maintenance schedule")
	}

	return domain.HealthReport{
		EquipmentID:     eq.ID,
		OverallHealth:   utils.RoundInt(overall * 100),
		ComponentHealth: scores,
		HealthTrend:     healthTrend(h),
		Recommendations: recommendations,
	}
}

// healthTrend compares the average cost of the last three services with the
// three before them. Cheaper by 20% is improving, dearer by 20% declining.
func healthTrend(history []domain.MaintenanceRecord) string {
	if len(history) < 4 {
		return HealthStable
	}
	recent := costs(history[len(history)-3:])
	older := costs(history[max(0, len(history)-6) : len(history)-3])

	r, o := stats.Mean(recent), stats.Mean(older)
	switch {
	case r < o*0.8:
		return HealthImproving
	case r > o*1.2:
		return HealthDeclining
	default:
		return HealthStable
	}
}

func costs(history []domain.MaintenanceRecord) []float64 {
	out := make([]float64, len(history))
	for i, h := range history {
		out[i] = h.Cost
	}
	return out
}

// PredictEquipmentFailure estimates failure probability, time to failure and
// the most likely failure type for each machine
func PredictEquipmentFailure(equipment []domain.Equipment, history []domain.MaintenanceRecord, now time.Time) []domain.FailurePrediction {
	return defaultEngine.PredictFailures(equipment, history, now)
}

// PredictFailures is PredictEquipmentFailure with this engine's weights
func (e *Engine) PredictFailures(equipment []domain.Equipment, history []domain.MaintenanceRecord, now time.Time) []domain.FailurePrediction {
	out := make([]domain.FailurePrediction, 0, len(equipment))
	for _, eq := range equipment {
		h := features.HistoryFor(eq.ID, history)
		confidence := math.Min(0.9, 0.5+math.Min(0.4, float64(len(h))*0.1))
		out = append(out, domain.FailurePrediction{
			EquipmentID:        eq.ID,
			FailureProbability: utils.RoundInt(e.failureProbability(eq, h, now) * 100),
			TimeToFailureDays:  utils.RoundInt(timeToFailure(eq, h)),
			FailureType:        failureType(h),
			Confidence:         utils.RoundInt(confidence * 100),
		})
	}
	return out
}

func isFailure(m domain.MaintenanceRecord) bool {
	return mentions(m.Description, "failure") || mentions(m.Description, "breakdown")
}

// timeToFailure starts from a year, halves it for machines in the shop and
// scales by the share of failure records, clamped to [30, 730] days
func timeToFailure(eq domain.Equipment, history []domain.MaintenanceRecord) float64 {
	if len(history) < 2 {
		return 365
	}
	var failures int
	for _, h := range history {
		if isFailure(h) {
			failures++
		}
	}
	condition := 1.0
	if eq.Status == domain.EquipmentMaintenance {
		condition = 0.5
	}
	historyFactor := 1.2
	if float64(failures)/float64(len(history)) > 0.5 {
		historyFactor = 0.7
	}
	return utils.Clamp(365*condition*historyFactor, 30, 730)
}

// failureType is the most common failure class among failure records, the
// earliest seen winning ties
func failureType(history []domain.MaintenanceRecord) string {
	var order []string
	counts := make(map[string]int)
	for _, h := range history {
		if !isFailure(h) {
			continue
		}
		kind := classifyFailure(h.Description)
		if counts[kind] == 0 {
			order = append(order, kind)
		}
		counts[kind]++
	}
	best := "Unknown"
	var bestCount int
	for _, kind := range order {
		if counts[kind] > bestCount {
			best, bestCount = kind, counts[kind]
		}
	}
	return best
}

func classifyFailure(description string) string {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "engine"):
		return "Engine Failure"
	case strings.Contains(d, "transmission"):
		return "Transmission Failure"
	case strings.Contains(d, "hydraulic"):
		return "Hydraulic Failure"
	case strings.Contains(d, "electrical"):
		return "Electrical Failure"
	case strings.Contains(d, "structural"):
		return "Structural Failure"
	default:
		return "General Failure"
	}
}
