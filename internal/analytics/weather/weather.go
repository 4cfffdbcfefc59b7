// Package weather rates how a site forecast affects equipment performance
// and project schedules, and proposes weather-driven schedule shifts.
package weather

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

// Reporting thresholds
const (
	// SignificantImpact is the impact score above which an equipment impact is reported
	SignificantImpact = 20

	// HighRiskDay is the daily project risk above which a date is flagged
	HighRiskDay = 70
)

// Performance is the expected output of one machine under one day's weather
type Performance struct {
	ExpectedPerformance        float64  `json:"expected_performance"` // percent of normal
	RiskFactors                []string `json:"risk_factors"`
	MaintenanceRecommendations []string `json:"maintenance_recommendations"`
	OperationalGuidelines      []string `json:"operational_guidelines"`
}

// EquipmentImpact is a significant weather effect on one machine on one day
type EquipmentImpact struct {
	EquipmentID          string          `json:"equipment_id"`
	Date                 time.Time       `json:"date"`
	ImpactScore          int             `json:"impact_score"`
	PerformanceReduction int             `json:"performance_reduction"`
	RiskLevel            domain.Severity `json:"risk_level"`
	Recommendations      []string        `json:"recommendations"`
	EstimatedDelayHours  float64         `json:"estimated_delay_hours"`
}

// ProjectRisk aggregates the daily weather risk of a project over the forecast
type ProjectRisk struct {
	ProjectID           string      `json:"project_id"`
	ProjectName         string      `json:"project_name"`
	RiskScore           int         `json:"risk_score"`
	HighRiskDates       []time.Time `json:"high_risk_dates"`
	RecommendedActions  []string    `json:"recommended_actions"`
	EstimatedCostImpact float64     `json:"estimated_cost_impact"`
}

// Assessment is the full weather impact analysis
type Assessment struct {
	EquipmentImpacts []EquipmentImpact `json:"equipment_impacts"`
	ProjectRisks     []ProjectRisk     `json:"project_risks"`
	OverallRisk      string            `json:"overall_risk_assessment"`
	Recommendations  []string          `json:"recommendations"`
}

// AnalyzeImpact rates every machine and project that sits on a known site
// against each forecast day
func AnalyzeImpact(equipment []domain.Equipment, projects []domain.Project, sites []domain.Site, forecast []domain.WeatherData) Assessment {
	impacts := []EquipmentImpact{}
	for _, eq := range equipment {
		if _, ok := findSite(sites, eq.SiteID); !ok {
			continue
		}
		for _, w := range forecast {
			if impact := equipmentImpact(eq, w); impact.ImpactScore > SignificantImpact {
				impacts = append(impacts, impact)
			}
		}
	}

	risks := []ProjectRisk{}
	for _, p := range projects {
		if _, ok := findSite(sites, p.SiteID); !ok {
			continue
		}
		risks = append(risks, ProjectWeatherRisk(p, forecast))
	}

	return Assessment{
		EquipmentImpacts: impacts,
		ProjectRisks:     risks,
		OverallRisk:      overallRisk(impacts, risks),
		Recommendations:  fleetRecommendations(impacts, risks, forecast),
	}
}

func findSite(sites []domain.Site, id string) (domain.Site, bool) {
	for _, s := range sites {
		if s.ID == id && id != "" {
			return s, true
		}
	}
	return domain.Site{}, false
}

// PredictPerformance applies temperature, precipitation, wind and visibility
// penalties plus type-specific ones to a machine's nominal 100% output
func PredictPerformance(eq domain.Equipment, w domain.WeatherData) Performance {
	var reduction float64
	p := Performance{RiskFactors: []string{}, MaintenanceRecommendations: []string{}, OperationalGuidelines: []string{}}
	kind := strings.ToLower(eq.Type)

	switch {
	case w.Temperature < -10:
		reduction += 25
		p.RiskFactors = append(p.RiskFactors, "Extreme cold affecting hydraulic systems")
		p.MaintenanceRecommendations = append(p.MaintenanceRecommendations, "Check hydraulic fluid viscosity")
		p.OperationalGuidelines = append(p.OperationalGuidelines, "Warm up equipment for 15 minutes before operation")
	case w.Temperature > 35:
		reduction += 20
		p.RiskFactors = append(p.RiskFactors, "High temperature affecting engine performance")
		p.MaintenanceRecommendations = append(p.MaintenanceRecommendations, "Monitor engine temperature closely")
		p.OperationalGuidelines = append(p.OperationalGuidelines, "Reduce load during peak heat hours")
	}

	if w.Precipitation > 10 {
		reduction += 15
		p.RiskFactors = append(p.RiskFactors, "Wet conditions affecting traction and visibility")
		p.OperationalGuidelines = append(p.OperationalGuidelines, "Reduce speed and increase following distance")
	}

	if w.WindSpeed > 30 {
		reduction += 20
		p.RiskFactors = append(p.RiskFactors, "High winds affecting stability")
		p.OperationalGuidelines = append(p.OperationalGuidelines, "Avoid high-lift operations")
		if strings.Contains(kind, "crane") {
			reduction += 15
			p.OperationalGuidelines = append(p.OperationalGuidelines, "Consider stopping crane operations")
		}
	}

	if w.Visibility < 1 {
		reduction += 30
		p.RiskFactors = append(p.RiskFactors, "Poor visibility affecting safety")
		p.OperationalGuidelines = append(p.OperationalGuidelines, "Stop operations until visibility improves")
	}

	// type-specific wear
	if strings.Contains(kind, "crane") && w.WindSpeed > 20 {
		reduction += 25
		p.RiskFactors = append(p.RiskFactors, "High winds affecting crane stability")
		p.MaintenanceRecommendations = append(p.MaintenanceRecommendations, "Check wind sensors and safety systems")
	}
	if (strings.Contains(kind, "excavator") || strings.Contains(kind, "bulldozer")) && w.Precipitation > 15 {
		reduction += 20
		p.RiskFactors = append(p.RiskFactors, "Wet ground affecting traction")
		p.MaintenanceRecommendations = append(p.MaintenanceRecommendations, "Check tire/undercarriage condition")
	}
	if strings.Contains(kind, "loader") && w.Visibility < 2 {
		reduction += 30
		p.RiskFactors = append(p.RiskFactors, "Poor visibility affecting loading operations")
		p.MaintenanceRecommendations = append(p.MaintenanceRecommendations, "Check lighting and visibility systems")
	}

	p.ExpectedPerformance = math.Max(0, 100-reduction)
	return p
}

func equipmentImpact(eq domain.Equipment, w domain.WeatherData) EquipmentImpact {
	perf := PredictPerformance(eq, w)
	score := 100 - perf.ExpectedPerformance
	return EquipmentImpact{
		EquipmentID:          eq.ID,
		Date:                 w.Date,
		ImpactScore:          utils.RoundInt(score),
		PerformanceReduction: utils.RoundInt(score),
		RiskLevel:            riskLevel(score),
		Recommendations:      perf.OperationalGuidelines,
		EstimatedDelayHours:  estimatedDelay(score, w.Conditions),
	}
}

func riskLevel(score float64) domain.Severity {
	switch {
	case score >= 80:
		return domain.SeverityCritical
	case score >= 60:
		return domain.SeverityHigh
	case score >= 40:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// estimatedDelay converts an impact score into lost hours, capped per condition
func estimatedDelay(score float64, c domain.WeatherCondition) float64 {
	switch c {
	case domain.ConditionStorm:
		return math.Min(24, score/4)
	case domain.ConditionExtremeHeat, domain.ConditionExtremeCold:
		return math.Min(12, score/6)
	case domain.ConditionFog:
		return math.Min(8, score/8)
	default:
		return math.Min(4, score/10)
	}
}

// DailyRisk scores one forecast day for a project, 0-100
func DailyRisk(w domain.WeatherData, project domain.Project) float64 {
	var risk float64
	switch w.Conditions {
	case domain.ConditionStorm:
		risk += 40
	case domain.ConditionExtremeHeat, domain.ConditionExtremeCold:
		risk += 30
	case domain.ConditionFog:
		risk += 25
	case domain.ConditionRain, domain.ConditionSnow:
		risk += 20
	}

	switch {
	case w.Temperature < -15 || w.Temperature > 40:
		risk += 20
	case w.Temperature < -5 || w.Temperature > 35:
		risk += 10
	}

	switch {
	case w.WindSpeed > 40:
		risk += 30
	case w.WindSpeed > 25:
		risk += 15
	}

	switch {
	case w.Precipitation > 20:
		risk += 25
	case w.Precipitation > 10:
		risk += 15
	}

	switch {
	case w.Visibility < 0.5:
		risk += 30
	case w.Visibility < 2:
		risk += 15
	}

	kind := strings.ToLower(project.Type)
	if strings.Contains(kind, "outdoor") {
		risk += 10
	}
	if strings.Contains(kind, "aerial") {
		risk += 20
	}
	return math.Min(100, risk)
}

// ProjectWeatherRisk averages the daily risk over the forecast and prices the
// high-risk days against the project's daily budget (1000 when unknown)
func ProjectWeatherRisk(project domain.Project, forecast []domain.WeatherData) ProjectRisk {
	var total, cost float64
	highRisk := []time.Time{}
	for _, w := range forecast {
		daily := DailyRisk(w, project)
		total += daily
		if daily > HighRiskDay {
			highRisk = append(highRisk, w.Date)
			cost += dailyBudget(project) * daily / 100
		}
	}
	var average float64
	if len(forecast) > 0 {
		average = total / float64(len(forecast))
	}

	name := project.Name
	if name == "" {
		name = "Unknown Project"
	}
	return ProjectRisk{
		ProjectID:           project.ID,
		ProjectName:         name,
		RiskScore:           utils.RoundInt(average),
		HighRiskDates:       highRisk,
		RecommendedActions:  projectRecommendations(average, highRisk),
		EstimatedCostImpact: math.Round(cost),
	}
}

func dailyBudget(project domain.Project) float64 {
	if project.Budget <= 0 {
		return 1000
	}
	days := project.Duration
	if days <= 0 {
		days = 1
	}
	return project.Budget / days
}

func projectRecommendations(average float64, highRisk []time.Time) []string {
	var out []string
	switch {
	case average > 70:
		out = append(out, "Consider postponing project start date", "Implement additional weather protection measures")
	case average > 50:
		out = append(out, "Monitor weather conditions closely", "Have backup plans for high-risk days")
	}
	if len(highRisk) > 0 {
		dates := make([]string, 0, 3)
		for _, d := range highRisk[:min(3, len(highRisk))] {
			dates = append(dates, d.Format(time.DateOnly))
		}
		out = append(out, fmt.Sprintf("High-risk weather expected on: %s", strings.Join(dates, ", ")))
	}
	return append(out,
		"Ensure site has proper drainage and weather protection",
		"Coordinate with weather services for real-time updates")
}

func overallRisk(impacts []EquipmentImpact, risks []ProjectRisk) string {
	var eqSum, projSum float64
	for _, i := range impacts {
		eqSum += float64(i.ImpactScore)
	}
	for _, r := range risks {
		projSum += float64(r.RiskScore)
	}
	overall := (eqSum/math.Max(1, float64(len(impacts))) + projSum/math.Max(1, float64(len(risks)))) / 2

	switch {
	case overall >= 80:
		return "Critical - Immediate action required"
	case overall >= 60:
		return "High - Significant weather impact expected"
	case overall >= 40:
		return "Medium - Moderate weather impact expected"
	case overall >= 20:
		return "Low - Minor weather impact expected"
	default:
		return "Minimal - Weather conditions favorable"
	}
}

func fleetRecommendations(impacts []EquipmentImpact, risks []ProjectRisk, forecast []domain.WeatherData) []string {
	var out []string
	for _, w := range forecast {
		if isExtreme(w.Conditions) {
			out = append(out, "Consider postponing non-critical operations during extreme weather")
			break
		}
	}
	for _, r := range risks {
		if r.RiskScore > HighRiskDay {
			out = append(out, "Review and potentially reschedule high-risk projects")
			break
		}
	}
	for _, i := range impacts {
		if i.ImpactScore > 60 {
			out = append(out, "Implement additional protection measures for affected equipment")
			break
		}
	}
	return append(out,
		"Monitor weather forecasts regularly and adjust schedules accordingly",
		"Ensure all equipment has proper weather protection systems",
		"Train operators on weather-related safety procedures")
}

func isExtreme(c domain.WeatherCondition) bool {
	return c == domain.ConditionStorm || c == domain.ConditionExtremeHeat || c == domain.ConditionExtremeCold
}

// ScheduleConstraints bound OptimizeSchedule
type ScheduleConstraints struct {
	MaxDelayHours    float64
	PriorityProjects []string
	RiskThreshold    float64
}

// DefaultScheduleConstraints allows up to 48h of delay for projects whose
// average risk exceeds 70
func DefaultScheduleConstraints() ScheduleConstraints {
	return ScheduleConstraints{MaxDelayHours: 48, RiskThreshold: 70}
}

// ScheduleChange proposes a new start date for a weather-exposed project
type ScheduleChange struct {
	ProjectID            string    `json:"project_id"`
	OriginalStartDate    time.Time `json:"original_start_date"`
	RecommendedStartDate time.Time `json:"recommended_start_date"`
	DelayHours           float64   `json:"delay_hours"`
	Reason               string    `json:"reason"`
	CostImpact           float64   `json:"cost_impact"`
}

// OptimizeSchedule looks for the first acceptable forecast day within the
// allowed delay for each high-risk project. Priority projects sort first,
// then larger cost impacts.
func OptimizeSchedule(projects []domain.Project, sites []domain.Site, forecast []domain.WeatherData, c ScheduleConstraints) []ScheduleChange {
	byDay := make(map[string]domain.WeatherData, len(forecast))
	for _, w := range forecast {
		byDay[w.Date.UTC().Format(time.DateOnly)] = w
	}

	out := []ScheduleChange{}
	for _, p := range projects {
		if _, ok := findSite(sites, p.SiteID); !ok {
			continue
		}
		risk := ProjectWeatherRisk(p, forecast)
		if float64(risk.RiskScore) <= c.RiskThreshold {
			continue
		}

		start := day(p.StartDate)
		best := start
		for i := 1; float64(i) <= c.MaxDelayHours/24; i++ {
			candidate := start.AddDate(0, 0, i)
			w, ok := byDay[candidate.Format(time.DateOnly)]
			if ok && DailyRisk(w, p) <= c.RiskThreshold {
				best = candidate
				break
			}
		}
		delay := best.Sub(start).Hours()
		if delay > c.MaxDelayHours {
			continue
		}
		out = append(out, ScheduleChange{
			ProjectID:            p.ID,
			OriginalStartDate:    p.StartDate,
			RecommendedStartDate: best,
			DelayHours:           delay,
			Reason:               fmt.Sprintf("High weather risk (%d/100)", risk.RiskScore),
			CostImpact:           delayCost(p, delay),
		})
	}

	priority := make(map[string]bool, len(c.PriorityProjects))
	for _, id := range c.PriorityProjects {
		priority[id] = true
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := priority[out[i].ProjectID], priority[out[j].ProjectID]
		if pi != pj {
			return pi
		}
		return out[i].CostImpact > out[j].CostImpact
	})
	return out
}

func delayCost(project domain.Project, hours float64) float64 {
	hourly := 100.0
	if project.Budget > 0 {
		hourly = dailyBudget(project) / 8
	}
	return hourly * hours
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MaintenanceWindow is a weather-friendly service slot for one machine
type MaintenanceWindow struct {
	EquipmentID     string          `json:"equipment_id"`
	RecommendedDate time.Time       `json:"recommended_date"`
	WeatherScore    int             `json:"weather_score"`
	Priority        domain.Severity `json:"priority"`
	Reason          string          `json:"reason"`
}

// OptimizeMaintenance picks a clear, mild, dry day within 30 days for every
// machine that is in the shop or was last serviced more than 90 days ago,
// falling back to a week from tomorrow. Urgent machines sort first.
func OptimizeMaintenance(equipment []domain.Equipment, history []domain.MaintenanceRecord, forecast []domain.WeatherData, now time.Time) []MaintenanceWindow {
	byDay := make(map[string]domain.WeatherData, len(forecast))
	for _, w := range forecast {
		byDay[w.Date.UTC().Format(time.DateOnly)] = w
	}

	out := []MaintenanceWindow{}
	for _, eq := range equipment {
		since := features.DaysSince(features.LastMaintenanceDate(features.HistoryFor(eq.ID, history)), now)
		inShop := eq.Status == domain.EquipmentMaintenance
		if since <= 90 && !inShop {
			continue
		}
		reason := "Regular maintenance due"
		if inShop {
			reason = "Equipment currently under maintenance"
		}
		urgency := math.Min(1, since/180)

		tomorrow := day(now).AddDate(0, 0, 1)
		date := tomorrow.AddDate(0, 0, 7)
		for i := 1; i <= 30; i++ {
			candidate := tomorrow.AddDate(0, 0, i)
			if w, ok := byDay[candidate.Format(time.DateOnly)]; ok && idealForService(w) {
				date = candidate
				break
			}
		}
		score := weatherScore(byDay, date)

		out = append(out, MaintenanceWindow{
			EquipmentID:     eq.ID,
			RecommendedDate: date,
			WeatherScore:    score,
			Priority:        maintenancePriority(urgency, score),
			Reason:          reason,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority.Rank() > out[j].Priority.Rank() })
	return out
}

func idealForService(w domain.WeatherData) bool {
	return w.Conditions == domain.ConditionClear && w.Temperature >= 10 && w.Temperature <= 25 && w.Precipitation < 5
}

// weatherScore rates a day for outdoor service work, 50 without data
func weatherScore(byDay map[string]domain.WeatherData, date time.Time) int {
	w, ok := byDay[date.Format(time.DateOnly)]
	if !ok {
		return 50
	}
	score := 100
	switch w.Conditions {
	case domain.ConditionStorm:
		score -= 40
	case domain.ConditionExtremeHeat, domain.ConditionExtremeCold:
		score -= 30
	case domain.ConditionRain, domain.ConditionSnow:
		score -= 20
	}
	if w.Temperature < -10 || w.Temperature > 35 {
		score -= 20
	}
	if w.Precipitation > 15 {
		score -= 15
	}
	if w.WindSpeed > 25 {
		score -= 15
	}
	if w.Visibility < 2 {
		score -= 20
	}
	return max(0, score)
}

func maintenancePriority(urgency float64, weatherScore int) domain.Severity {
	switch {
	case urgency > 0.8:
		return domain.SeverityHigh
	case urgency > 0.6:
		return domain.SeverityMedium
	case weatherScore < 50:
		return domain.SeverityLow
	default:
		return domain.SeverityMedium
	}
}
