// Package optimize plans equipment allocation across upcoming projects and
// compares the planned spend with what past rentals cost.
package optimize

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fleetops/backend/internal/analytics/maintenance"
	"github.com/fleetops/backend/internal/analytics/recommend"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

// Config holds the planning constants
type Config struct {
	HoursPerDay      float64
	PlanningDays     float64
	MaxHaulKm        float64
	HaulCostPerKm    float64
	EfficiencyWeight float64
	CostWeight       float64
	GreedyUtil       float64

	// maintenance schedule
	ServiceAfterDays float64
	UrgencyDays      float64
	HeavyUseHours    float64
	HeavyServiceCost float64
	ServiceCost      float64
	ServiceLeadDays  int
}

// DefaultConfig returns the stock planning constants
func DefaultConfig() Config {
	return Config{
		HoursPerDay:      8,
		PlanningDays:     30,
		MaxHaulKm:        100,
		HaulCostPerKm:    0.5,
		EfficiencyWeight: 0.6,
		CostWeight:       0.4,
		GreedyUtil:       0.8,

		ServiceAfterDays: 90,
		UrgencyDays:      180,
		HeavyUseHours:    5000,
		HeavyServiceCost: 2000,
		ServiceCost:      1000,
		ServiceLeadDays:  7,
	}
}

// Constraints bound a plan. TimelineDays is the planning horizon: projects
// starting later are left out. With EquipmentAvailability only available
// machines are allocated; with TransportationLimits the location scenario
// ignores machines further than the haul limit.
type Constraints struct {
	Budget                float64 `json:"budget"`
	TimelineDays          float64 `json:"timeline_days"`
	EquipmentAvailability bool    `json:"equipment_availability"`
	TransportationLimits  bool    `json:"transportation_limits"`
}

// DefaultConstraints returns a 100k budget over 30 days
func DefaultConstraints() Constraints {
	return Constraints{
		Budget:                100000,
		TimelineDays:          30,
		EquipmentAvailability: true,
		TransportationLimits:  true,
	}
}

// Allocation books one machine for one project
type Allocation struct {
	EquipmentID string    `json:"equipment_id"`
	ProjectID   string    `json:"project_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Utilization float64   `json:"utilization"`
	Cost        float64   `json:"cost"`
	Efficiency  float64   `json:"efficiency"`
}

// Scenario is one allocation strategy and its totals
type Scenario struct {
	Name          string       `json:"name"`
	Allocations   []Allocation `json:"allocations"`
	EstimatedCost float64      `json:"estimated_cost"`
	Efficiency    float64      `json:"efficiency"`
}

// Scenario names
const (
	ScenarioTypeMatch   = "Optimal Type Matching"
	ScenarioLocation    = "Location-Based Optimization"
	ScenarioCost        = "Cost-Based Optimization"
	ScenarioUtilization = "Utilization-Based Optimization"
)

// Recommendation types
const (
	RecEquipmentSwap     = "equipment_swap"
	RecScheduleChange    = "schedule_change"
	RecRouteOptimization = "route_optimization"
	RecMaintenanceTiming = "maintenance_timing"
)

// Recommendation is one cost-saving action
type Recommendation struct {
	Type             string          `json:"type"`
	Description      string          `json:"description"`
	EstimatedSavings float64         `json:"estimated_savings"`
	Difficulty       string          `json:"difficulty"`
	Priority         domain.Severity `json:"priority"`
}

// Plan is the chosen scenario with savings against past rental spend
type Plan struct {
	Scenario          string           `json:"scenario"`
	TotalCost         float64          `json:"total_cost"`
	CurrentCost       float64          `json:"current_cost"`
	CostSavings       float64          `json:"cost_savings"`
	SavingsPercentage float64          `json:"savings_percentage"`
	Allocations       []Allocation     `json:"allocations"`
	Scenarios         []Scenario       `json:"scenarios"`
	Recommendations   []Recommendation `json:"recommendations"`
	Constraints       Constraints      `json:"constraints"`
}

// Engine builds allocation plans. Candidate scoring and cost estimates come
// from the recommendation engine, service risk from the maintenance engine.
type Engine struct {
	cfg   Config
	rec   *recommend.Engine
	maint *maintenance.Engine
}

// NewEngine creates an optimizer. Nil engines use their default configs.
func NewEngine(cfg Config, rec *recommend.Engine, maint *maintenance.Engine) *Engine {
	if rec == nil {
		rec = recommend.NewEngine(recommend.DefaultConfig())
	}
	if maint == nil {
		maint = maintenance.NewEngine(maintenance.DefaultConfig())
	}
	return &Engine{cfg: cfg, rec: rec, maint: maint}
}

// OptimizeCosts runs every scenario with default settings
func OptimizeCosts(projects []domain.Project, equipment []domain.Equipment, rentals []domain.Rental, sites []domain.Site, c Constraints, now time.Time) Plan {
	return NewEngine(DefaultConfig(), nil, nil).CostPlan(projects, equipment, rentals, sites, c, now)
}

// CostPlan runs the four scenarios, keeps the one with the best blend of
// efficiency and budget headroom and compares its cost with the total billed
// by past rentals.
func (e *Engine) CostPlan(projects []domain.Project, equipment []domain.Equipment, rentals []domain.Rental, sites []domain.Site, c Constraints, now time.Time) Plan {
	if c.Budget <= 0 {
		c.Budget = DefaultConstraints().Budget
	}
	queue := e.queue(projects, c, now)
	pool := e.candidates(equipment, c)
	scenarios := e.scenarios(queue, pool, rentals, sites, c, now)

	best := scenarios[0]
	bestScore := e.scenarioScore(best, c)
	for _, s := range scenarios[1:] {
		if score := e.scenarioScore(s, c); score > bestScore {
			best, bestScore = s, score
		}
	}

	var current float64
	for _, r := range rentals {
		current += r.TotalCost
	}
	savings := current - best.EstimatedCost
	var pct float64
	if current > 0 {
		pct = utils.RoundTo(savings/current*100, 2)
	}

	return Plan{
		Scenario:          best.Name,
		TotalCost:         best.EstimatedCost,
		CurrentCost:       current,
		CostSavings:       savings,
		SavingsPercentage: pct,
		Allocations:       best.Allocations,
		Scenarios:         scenarios,
		Recommendations:   e.recommendations(current, savings, scenarios),
		Constraints:       c,
	}
}

func (e *Engine) scenarioScore(s Scenario, c Constraints) float64 {
	return s.Efficiency*e.cfg.EfficiencyWeight + (1-s.EstimatedCost/c.Budget)*e.cfg.CostWeight
}

// AllocateResources books the best-scoring free machine for each project,
// highest priority first. A machine serves at most one project.
func (e *Engine) AllocateResources(projects []domain.Project, equipment []domain.Equipment, rentals []domain.Rental, sites []domain.Site, c Constraints, now time.Time) []Allocation {
	pool := e.candidates(equipment, c)
	out := []Allocation{}
	for _, p := range e.queue(projects, c, now) {
		if len(pool) == 0 {
			break
		}
		best, bestScore := 0, -1.0
		for i, eq := range pool {
			if s := e.rec.Score(eq, p, rentalsFor(eq.ID, rentals), sites); s > bestScore {
				best, bestScore = i, s
			}
		}
		out = append(out, e.allocation(p, pool[best], e.cfg.GreedyUtil, utils.RoundTo(bestScore, 2), now))
		pool = append(pool[:best], pool[best+1:]...)
	}
	return out
}

// queue keeps projects inside the planning horizon, highest priority first
func (e *Engine) queue(projects []domain.Project, c Constraints, now time.Time) []domain.Project {
	horizon := now.Add(time.Duration(c.TimelineDays * 24 * float64(time.Hour)))
	out := make([]domain.Project, 0, len(projects))
	for _, p := range projects {
		if c.TimelineDays > 0 && p.StartDate.After(horizon) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// candidates returns a private copy of the machines a plan may use
func (e *Engine) candidates(equipment []domain.Equipment, c Constraints) []domain.Equipment {
	out := make([]domain.Equipment, 0, len(equipment))
	for _, eq := range equipment {
		if c.EquipmentAvailability && eq.Status != domain.EquipmentAvailable {
			continue
		}
		out = append(out, eq)
	}
	return out
}

func (e *Engine) allocation(p domain.Project, eq domain.Equipment, utilization, efficiency float64, now time.Time) Allocation {
	start := truncateDay(now)
	if p.StartDate.After(start) {
		start = truncateDay(p.StartDate)
	}
	days := p.Duration
	if days <= 0 {
		days = 1
	}
	return Allocation{
		EquipmentID: eq.ID,
		ProjectID:   p.ID,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, int(math.Ceil(days))),
		Utilization: utilization,
		Cost:        e.rec.EstimateCost(eq, p),
		Efficiency:  efficiency,
	}
}

// picker chooses a machine from pool for p, -1 when none fits
type picker func(p domain.Project, pool []domain.Equipment) int

func (e *Engine) scenarios(queue []domain.Project, pool []domain.Equipment, rentals []domain.Rental, sites []domain.Site, c Constraints, now time.Time) []Scenario {
	usage := e.recentUtilization(rentals)

	typeMatch := func(p domain.Project, pool []domain.Equipment) int {
		return cheapest(pool, func(eq domain.Equipment) bool { return strings.EqualFold(eq.Type, p.Type) })
	}
	nearest := func(p domain.Project, pool []domain.Equipment) int {
		site, ok := findSite(sites, p.SiteID)
		if !ok {
			return -1
		}
		best, bestKm := -1, math.Inf(1)
		for i, eq := range pool {
			s, ok := findSite(sites, eq.SiteID)
			if !ok {
				continue
			}
			km := utils.Haversine(site.Coordinates.Lat, site.Coordinates.Lng, s.Coordinates.Lat, s.Coordinates.Lng)
			if km < bestKm {
				best, bestKm = i, km
			}
		}
		if c.TransportationLimits && bestKm >= e.cfg.MaxHaulKm {
			return -1
		}
		return best
	}
	lowestRate := func(p domain.Project, pool []domain.Equipment) int {
		return cheapest(pool, func(domain.Equipment) bool { return true })
	}
	leastUsed := func(p domain.Project, pool []domain.Equipment) int {
		best := -1
		for i, eq := range pool {
			if best < 0 || usage[eq.ID] < usage[pool[best].ID] {
				best = i
			}
		}
		return best
	}

	return []Scenario{
		e.scenario(ScenarioTypeMatch, 0.8, 0.85, typeMatch, queue, pool, now),
		e.scenario(ScenarioLocation, 0.75, 0.8, nearest, queue, pool, now),
		e.scenario(ScenarioCost, 0.7, 0.75, lowestRate, queue, pool, now),
		e.scenario(ScenarioUtilization, 0.9, 0.9, leastUsed, queue, pool, now),
	}
}

// scenario allocates queue in order with pick; machines are not reused
func (e *Engine) scenario(name string, utilization, efficiency float64, pick picker, queue []domain.Project, pool []domain.Equipment, now time.Time) Scenario {
	free := append([]domain.Equipment(nil), pool...)
	s := Scenario{Name: name, Allocations: []Allocation{}}
	for _, p := range queue {
		i := pick(p, free)
		if i < 0 {
			continue
		}
		a := e.allocation(p, free[i], utilization, efficiency, now)
		s.Allocations = append(s.Allocations, a)
		s.EstimatedCost += a.Cost
		free = append(free[:i], free[i+1:]...)
	}
	if len(s.Allocations) > 0 {
		s.Efficiency = efficiency
	}
	return s
}

// recentUtilization is booked rental hours over the planning window per machine
func (e *Engine) recentUtilization(rentals []domain.Rental) map[string]float64 {
	available := e.cfg.PlanningDays * e.cfg.HoursPerDay
	out := make(map[string]float64)
	for _, r := range rentals {
		out[r.EquipmentID] += r.Duration * e.cfg.HoursPerDay / available
	}
	return out
}

func cheapest(pool []domain.Equipment, keep func(domain.Equipment) bool) int {
	best := -1
	for i, eq := range pool {
		if !keep(eq) {
			continue
		}
		if best < 0 || eq.HourlyRate < pool[best].HourlyRate {
			best = i
		}
	}
	return best
}

func (e *Engine) recommendations(current, savings float64, scenarios []Scenario) []Recommendation {
	gain := math.Max(0, savings)
	out := []Recommendation{}
	if current > 0 && savings > current*0.1 {
		out = append(out, Recommendation{
			Type:             RecEquipmentSwap,
			Description:      "Consider swapping to more cost-effective equipment types",
			EstimatedSavings: utils.RoundTo(gain*0.3, 2),
			Difficulty:       "medium",
			Priority:         domain.SeverityHigh,
		})
	}

	var topEfficiency float64
	var routed bool
	for _, s := range scenarios {
		topEfficiency = math.Max(topEfficiency, s.Efficiency)
		if s.Name == ScenarioLocation && len(s.Allocations) > 0 {
			routed = true
		}
	}
	if topEfficiency > 0.8 {
		out = append(out, Recommendation{
			Type:             RecScheduleChange,
			Description:      "Optimize project scheduling for better equipment utilization",
			EstimatedSavings: utils.RoundTo(gain*0.2, 2),
			Difficulty:       "medium",
			Priority:         domain.SeverityMedium,
		})
	}
	if routed {
		out = append(out, Recommendation{
			Type:             RecRouteOptimization,
			Description:      "Optimize transportation routes to reduce costs",
			EstimatedSavings: utils.RoundTo(gain*0.15, 2),
			Difficulty:       "hard",
			Priority:         domain.SeverityMedium,
		})
	}
	return append(out, Recommendation{
		Type:             RecMaintenanceTiming,
		Description:      "Schedule maintenance during low-demand periods",
		EstimatedSavings: utils.RoundTo(gain*0.1, 2),
		Difficulty:       "easy",
		Priority:         domain.SeverityLow,
	})
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

func findSite(sites []domain.Site, id string) (domain.Site, bool) {
	for _, s := range sites {
		if id != "" && s.ID == id {
			return s, true
		}
	}
	return domain.Site{}, false
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
