// Package recommend ranks fleet equipment for a project by weighted
// compatibility factors and finds similar machines and projects.
package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fleetops/backend/internal/analytics/features"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

// Config holds factor weights and suitability bands
type Config struct {
	TypeWeight        float64
	CapacityWeight    float64
	LocationWeight    float64
	HistoryWeight     float64
	CostWeight        float64
	ExcellentScore    float64
	GoodScore         float64
	FairScore         float64
	MaxResults        int
	RecentWindowDays  float64
	DefaultHourlyRate float64
}

// DefaultConfig returns the stock recommendation weights
func DefaultConfig() Config {
	return Config{
		TypeWeight:        0.3,
		CapacityWeight:    0.25,
		LocationWeight:    0.2,
		HistoryWeight:     0.15,
		CostWeight:        0.1,
		ExcellentScore:    0.8,
		GoodScore:         0.6,
		FairScore:         0.4,
		MaxResults:        5,
		RecentWindowDays:  90,
		DefaultHourlyRate: 50,
	}
}

// neutral is returned by factors that lack the data to judge
const neutral = 0.5

// band maps an upper bound to a factor score
type band struct {
	limit float64
	score float64
}

var (
	distanceBands = []band{{10, 1}, {25, 0.9}, {50, 0.8}, {100, 0.6}, {200, 0.4}}
	costBands     = []band{{0.8, 1}, {1, 0.9}, {1.2, 0.7}, {1.5, 0.5}, {2, 0.3}}
)

func banded(v float64, bands []band, fallback float64) float64 {
	for _, b := range bands {
		if v <= b.limit {
			return b.score
		}
	}
	return fallback
}

// typeCategories lists which equipment types serve a project category
var typeCategories = []struct {
	category string
	types    []string
}{
	{"excavation", []string{"excavator", "bulldozer", "loader"}},
	{"lifting", []string{"crane", "loader", "forklift"}},
	{"grading", []string{"grader", "bulldozer", "excavator"}},
	{"transport", []string{"truck", "trailer", "loader"}},
}

// Engine scores equipment against projects
type Engine struct {
	cfg Config
}

// NewEngine creates a recommendation engine
func NewEngine(cfg Config) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	return &Engine{cfg: cfg}
}

// RecommendEquipment ranks equipment for a project with default weights
func RecommendEquipment(project domain.Project, equipment []domain.Equipment, rentals []domain.Rental, sites []domain.Site, maxRecommendations int, now time.Time) []domain.EquipmentRecommendation {
	return NewEngine(DefaultConfig()).Recommend(project, equipment, rentals, sites, maxRecommendations, now)
}

// Recommend scores every candidate, sorts by score descending and keeps the
// top maxRecommendations (the configured default when not positive)
func (e *Engine) Recommend(project domain.Project, equipment []domain.Equipment, rentals []domain.Rental, sites []domain.Site, maxRecommendations int, now time.Time) []domain.EquipmentRecommendation {
	if maxRecommendations <= 0 {
		maxRecommendations = e.cfg.MaxResults
	}
	out := make([]domain.EquipmentRecommendation, 0, len(equipment))
	for _, eq := range equipment {
		history := rentalsFor(eq.ID, rentals)
		score := e.Score(eq, project, history, sites)
		kind := eq.Type
		if kind == "" {
			kind = "Unknown"
		}
		out = append(out, domain.EquipmentRecommendation{
			EquipmentID:   eq.ID,
			EquipmentType: kind,
			SiteID:        eq.SiteID,
			Score:         utils.RoundInt(score * 100),
			Confidence:    utils.RoundInt(e.confidence(history, now) * 100),
			Reasons:       e.reasons(eq, project, history),
			EstimatedCost: e.EstimateCost(eq, project),
			Availability:  Availability(eq.Status),
			Suitability:   e.Suitability(score),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

// Score is the weighted factor sum clamped to [0,1]. history must already be
// limited to this machine's rentals.
func (e *Engine) Score(eq domain.Equipment, project domain.Project, history []domain.Rental, sites []domain.Site) float64 {
	score := TypeCompatibility(eq, project)*e.cfg.TypeWeight +
		CapacityCompatibility(eq, project)*e.cfg.CapacityWeight +
		LocationCompatibility(eq, project, sites)*e.cfg.LocationWeight +
		HistoricalPerformance(history)*e.cfg.HistoryWeight +
		e.costEfficiency(eq, project)*e.cfg.CostWeight
	return utils.Clamp(score, 0, 1)
}

// Suitability labels a 0-1 score
func (e *Engine) Suitability(score float64) domain.Suitability {
	switch {
	case score >= e.cfg.ExcellentScore:
		return domain.SuitabilityExcellent
	case score >= e.cfg.GoodScore:
		return domain.SuitabilityGood
	case score >= e.cfg.FairScore:
		return domain.SuitabilityFair
	default:
		return domain.SuitabilityPoor
	}
}

// TypeCompatibility is 1 for an exact (case-insensitive) type match, 0.8 when
// the equipment serves the project's category, 0.6 for a substring match and
// 0.2 otherwise
func TypeCompatibility(eq domain.Equipment, project domain.Project) float64 {
	projectType := strings.ToLower(project.Type)
	equipmentType := strings.ToLower(eq.Type)
	if projectType == equipmentType {
		return 1
	}
	for _, c := range typeCategories {
		if !strings.Contains(projectType, c.category) {
			continue
		}
		for _, t := range c.types {
			if strings.Contains(equipmentType, t) {
				return 0.8
			}
		}
	}
	if strings.Contains(projectType, equipmentType) || strings.Contains(equipmentType, projectType) {
		return 0.6
	}
	return 0.2
}

// CapacityCompatibility bands the equipment/project capacity ratio. Unknown
// capacity on either side is neutral.
func CapacityCompatibility(eq domain.Equipment, project domain.Project) float64 {
	need, have := project.RequiredCapacity, eq.Specifications.Capacity
	if need <= 0 || have <= 0 {
		return neutral
	}
	ratio := have / need
	switch {
	case ratio >= 0.8 && ratio <= 1.2:
		return 1
	case ratio >= 0.6 && ratio <= 1.5:
		return 0.8
	case ratio >= 0.4 && ratio <= 2:
		return 0.6
	case ratio >= 0.2 && ratio <= 3:
		return 0.4
	default:
		return 0.2
	}
}

// LocationCompatibility bands the haversine distance between the project's
// site and the machine's site. Unknown sites are neutral.
func LocationCompatibility(eq domain.Equipment, project domain.Project, sites []domain.Site) float64 {
	projectSite, ok1 := findSite(sites, project.SiteID)
	equipmentSite, ok2 := findSite(sites, eq.SiteID)
	if !ok1 || !ok2 {
		return neutral
	}
	d := utils.Haversine(projectSite.Coordinates.Lat, projectSite.Coordinates.Lng, equipmentSite.Coordinates.Lat, equipmentSite.Coordinates.Lng)
	return banded(d, distanceBands, 0.2)
}

func findSite(sites []domain.Site, id string) (domain.Site, bool) {
	if id == "" {
		return domain.Site{}, false
	}
	for _, s := range sites {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Site{}, false
}

// HistoricalPerformance averages the per-rental performance score, neutral
// for a machine with no rentals
func HistoricalPerformance(history []domain.Rental) float64 {
	if len(history) == 0 {
		return neutral
	}
	var total float64
	for _, r := range history {
		total += features.RentalPerformance(r)
	}
	return math.Min(1, total/float64(len(history)))
}

func (e *Engine) costEfficiency(eq domain.Equipment, project domain.Project) float64 {
	if project.Budget <= 0 {
		return neutral
	}
	return banded(e.EstimateCost(eq, project)/project.Budget, costBands, 0.1)
}

// EstimateCost is hourly rate × project days × 8 hours, plus a 10%
// maintenance buffer and 100 for transport, rounded
func (e *Engine) EstimateCost(eq domain.Equipment, project domain.Project) float64 {
	rate := eq.HourlyRate
	if rate <= 0 {
		rate = e.cfg.DefaultHourlyRate
	}
	days := project.Duration
	if days <= 0 {
		days = 1
	}
	base := rate * days * 8
	return math.Round(base + 100 + base*0.1)
}

// Availability describes an equipment status for people
func Availability(s domain.EquipmentStatus) string {
	switch s {
	case domain.EquipmentAvailable:
		return "Available now"
	case domain.EquipmentMaintenance:
		return "Under maintenance"
	case domain.EquipmentRented:
		return "Currently rented"
	case domain.EquipmentOverdue:
		return "Overdue for return"
	default:
		return "Status unknown"
	}
}

// confidence grows with rental count and recent activity, capped at 0.95
func (e *Engine) confidence(history []domain.Rental, now time.Time) float64 {
	if len(history) == 0 {
		return neutral
	}
	var recent int
	for _, r := range history {
		if utils.DaysBetween(r.CheckOutDate, now) <= e.cfg.RecentWindowDays {
			recent++
		}
	}
	c := 0.5 + math.Min(0.3, float64(len(history))*0.05) + math.Min(0.2, float64(recent)*0.1)
	return math.Min(0.95, c)
}

func (e *Engine) reasons(eq domain.Equipment, project domain.Project, history []domain.Rental) []string {
	reasons := []string{}
	switch {
	case eq.Type == project.Type:
		reasons = append(reasons, "Perfect type match for project requirements")
	case eq.Type != "" && project.Type != "":
		reasons = append(reasons, fmt.Sprintf("Equipment type (%s) suitable for %s projects", eq.Type, project.Type))
	}

	need, have := project.RequiredCapacity, eq.Specifications.Capacity
	if need > 0 && have > 0 && math.Abs(have-need)/need <= 0.2 {
		reasons = append(reasons, "Capacity closely matches project requirements")
	}

	if len(history) > 0 {
		var completed int
		for _, r := range history {
			if r.Status == domain.RentalCompleted {
				completed++
			}
		}
		rate := float64(completed) / float64(len(history))
		switch {
		case rate >= 0.9:
			reasons = append(reasons, "Excellent completion rate in previous rentals")
		case rate >= 0.8:
			reasons = append(reasons, "Good completion rate in previous rentals")
		}
	}

	if project.Budget > 0 && e.EstimateCost(eq, project) <= project.Budget {
		reasons = append(reasons, "Estimated cost within project budget")
	}
	return reasons
}

func rentalsFor(equipmentID string, rentals []domain.Rental) []domain.Rental {
	var out []domain.Rental
	for _, r := range rentals {
		if r.EquipmentID == equipmentID {
			out = append(out, r)
		}
	}
	return out
}
