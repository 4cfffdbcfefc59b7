// Package maintenance scores maintenance risk, component health and failure
// likelihood per machine from its engine hours, status and service history.
package maintenance

import (
	"math"
	"strings"
	"time"

	"github.com/fleetops/backend/internal/analytics/features"
	"github.com/fleetops/backend/internal/analytics/stats"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

// Config holds the risk weights, ranges and action thresholds
type Config struct {
	// quick risk score
	HoursCeiling      float64
	DaysCeiling       float64
	HoursWeight       float64
	TimeWeight        float64
	StatusWeight      float64
	StatusMaintenance float64
	StatusOverdue     float64
	StatusOther       float64

	// model risk and failure probability
	FeatureWeights     [5]float64
	FailureWeights     [4]float64
	DefaultRisk        float64
	DefaultFailure     float64
	FailureMinHistory  int
	FailureFloor       float64
	FailureCeiling     float64
	DefaultIntervalDay int

	// action thresholds on the model risk
	ImmediateRisk float64
	SoonRisk      float64
	RoutineRisk   float64
}

// DefaultConfig returns the stock maintenance model
func DefaultConfig() Config {
	return Config{
		HoursCeiling:      6000,
		DaysCeiling:       180,
		HoursWeight:       0.5,
		TimeWeight:        0.4,
		StatusWeight:      0.1,
		StatusMaintenance: 1,
		StatusOverdue:     0.7,
		StatusOther:       0.3,

		FeatureWeights:     [5]float64{0.3, 0.25, 0.2, 0.15, 0.1},
		FailureWeights:     [4]float64{0.4, 0.3, 0.2, 0.1},
		DefaultRisk:        0.5,
		DefaultFailure:     0.1,
		FailureMinHistory:  3,
		FailureFloor:       0.05,
		FailureCeiling:     0.95,
		DefaultIntervalDay: 90,

		ImmediateRisk: 0.7,
		SoonRisk:      0.5,
		RoutineRisk:   0.3,
	}
}

// Engine evaluates maintenance outlooks
type Engine struct {
	cfg Config
}

// NewEngine creates a maintenance engine
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

var defaultEngine = NewEngine(DefaultConfig())

// MaintenanceRiskScore is the quick 0-100 risk of one machine with default weights
func MaintenanceRiskScore(eq domain.Equipment, last *domain.MaintenanceRecord, now time.Time) int {
	return defaultEngine.RiskScore(eq, last, now)
}

// PredictMaintenanceNeeds runs the full per-machine outlook with default weights
func PredictMaintenanceNeeds(equipment []domain.Equipment, history []domain.MaintenanceRecord, now time.Time) []domain.RiskScore {
	return defaultEngine.PredictNeeds(equipment, history, now)
}

// RiskScore combines engine-hour exposure, time since the last service and
// status into a 0-100 score. A missing last record counts as never serviced.
func (e *Engine) RiskScore(eq domain.Equipment, last *domain.MaintenanceRecord, now time.Time) int {
	var lastDate *time.Time
	if last != nil {
		lastDate = &last.MaintenanceDate
	}
	hoursRisk := utils.Scale(eq.Specifications.EngineHours, 0, e.cfg.HoursCeiling)
	timeRisk := utils.Scale(features.DaysSince(lastDate, now), 0, e.cfg.DaysCeiling)
	score := e.cfg.HoursWeight*hoursRisk + e.cfg.TimeWeight*timeRisk + e.cfg.StatusWeight*e.statusRisk(eq.Status)
	return int(math.Min(100, math.Round(score*100)))
}

func (e *Engine) statusRisk(s domain.EquipmentStatus) float64 {
	switch s {
	case domain.EquipmentMaintenance:
		return e.cfg.StatusMaintenance
	case domain.EquipmentOverdue:
		return e.cfg.StatusOverdue
	default:
		return e.cfg.StatusOther
	}
}

// PredictNeeds returns one RiskScore per machine, in input order
func (e *Engine) PredictNeeds(equipment []domain.Equipment, history []domain.MaintenanceRecord, now time.Time) []domain.RiskScore {
	out := make([]domain.RiskScore, 0, len(equipment))
	for _, eq := range equipment {
		h := features.HistoryFor(eq.ID, history)
		risk := e.modelRisk(eq, h, now)
		out = append(out, domain.RiskScore{
			EquipmentID:         eq.ID,
			RiskScore:           utils.RoundInt(risk * 100),
			NextMaintenanceDate: e.nextMaintenanceDate(h, now),
			FailureProbability:  utils.RoundInt(e.failureProbability(eq, h, now) * 100),
			RecommendedActions:  e.actions(eq, risk),
			Confidence:          utils.RoundInt(predictionConfidence(len(h), eq.Specifications.EngineHours) * 100),
		})
	}
	return out
}

// modelRisk is the weighted sum of the scaled maintenance features, or
// DefaultRisk for a machine that was never serviced
func (e *Engine) modelRisk(eq domain.Equipment, history []domain.MaintenanceRecord, now time.Time) float64 {
	if len(history) == 0 {
		return e.cfg.DefaultRisk
	}
	var risk float64
	for i, f := range features.MaintenanceFeatures(eq, history, now) {
		risk += f * e.cfg.FeatureWeights[i]
	}
	return utils.Clamp(risk, 0, 1)
}

func (e *Engine) failureProbability(eq domain.Equipment, history []domain.MaintenanceRecord, now time.Time) float64 {
	if len(history) < e.cfg.FailureMinHistory {
		return e.cfg.DefaultFailure
	}
	var total float64
	for i, f := range features.FailureRiskFactors(eq, history, now) {
		total += f * e.cfg.FailureWeights[i]
	}
	return utils.Clamp(total, e.cfg.FailureFloor, e.cfg.FailureCeiling)
}

// nextMaintenanceDate adds the average historical interval to the last
// service. Without at least two records it falls back to DefaultIntervalDay
// from the last service, or from now.
func (e *Engine) nextMaintenanceDate(history []domain.MaintenanceRecord, now time.Time) time.Time {
	last := features.LastMaintenanceDate(history)
	if last == nil {
		return truncateDay(now).AddDate(0, 0, e.cfg.DefaultIntervalDay)
	}
	intervals := features.MaintenanceIntervals(history, now)
	if len(intervals) == 0 {
		return truncateDay(*last).AddDate(0, 0, e.cfg.DefaultIntervalDay)
	}
	return truncateDay(*last).AddDate(0, 0, int(stats.Mean(intervals)))
}

func (e *Engine) actions(eq domain.Equipment, risk float64) []string {
	var actions []string
	switch {
	case risk > e.cfg.ImmediateRisk:
		actions = append(actions, "Schedule immediate maintenance inspection", "Reduce operational load")
	case risk > e.cfg.SoonRisk:
		actions = append(actions, "Schedule maintenance within 2 weeks", "Monitor performance closely")
	case risk > e.cfg.RoutineRisk:
		actions = append(actions, "Schedule routine maintenance")
	default:
		actions = append(actions, "Continue normal operations")
	}
	if strings.Contains(strings.ToLower(eq.Type), "excavator") {
		actions = append(actions, "Check hydraulic system pressure")
	}
	return actions
}

// predictionConfidence grows with history length and engine hours, capped at 0.95
func predictionConfidence(historyLen int, engineHours float64) float64 {
	c := 0.5
	c += math.Min(0.3, float64(historyLen)*0.05)
	c += math.Min(0.2, engineHours/10000*0.2)
	return math.Min(0.95, c)
}

// NextMaintenanceDue schedules the next service 90 days after the last one,
// pulled forward by up to 30 days for heavy engine hours and never sooner
// than 30 days. Without a record the clock starts now.
func NextMaintenanceDue(eq domain.Equipment, last *domain.MaintenanceRecord, now time.Time) time.Time {
	days := 90 - utils.RoundInt(eq.Specifications.EngineHours/6000*30)
	if days < 30 {
		days = 30
	}
	start := now
	if last != nil && !last.MaintenanceDate.IsZero() {
		start = last.MaintenanceDate
	}
	return truncateDay(start).AddDate(0, 0, days)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
