package optimize

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fleetops/backend/internal/analytics/features"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

// Route is a haul between two sites
type Route struct {
	Sites         []string `json:"sites"`
	DistanceKm    float64  `json:"distance_km"`
	EstimatedCost float64  `json:"estimated_cost"`
	Efficiency    float64  `json:"efficiency"`
}

// TransportRoutes prices every site pair, least efficient (longest) first
func (e *Engine) TransportRoutes(sites []domain.Site) []Route {
	out := []Route{}
	for i := 0; i < len(sites); i++ {
		for j := i + 1; j < len(sites); j++ {
			a, b := sites[i], sites[j]
			km := utils.Haversine(a.Coordinates.Lat, a.Coordinates.Lng, b.Coordinates.Lat, b.Coordinates.Lng)
			out = append(out, Route{
				Sites:         []string{siteLabel(a), siteLabel(b)},
				DistanceKm:    utils.RoundTo(km, 2),
				EstimatedCost: utils.RoundTo(km*e.cfg.HaulCostPerKm, 2),
				Efficiency:    utils.RoundTo(1/(1+km/100), 2),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Efficiency < out[j].Efficiency })
	return out
}

func siteLabel(s domain.Site) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// MaintenanceSlot is a proposed service date for one machine
type MaintenanceSlot struct {
	EquipmentID      string          `json:"equipment_id"`
	RecommendedDate  time.Time       `json:"recommended_date"`
	Priority         domain.Severity `json:"priority"`
	RiskScore        int             `json:"risk_score"`
	EstimatedCost    float64         `json:"estimated_cost"`
	ImpactOnProjects []string        `json:"impact_on_projects"`
}

// MaintenanceSchedule proposes service for machines under maintenance or not
// serviced within ServiceAfterDays. Machines booked on an active rental are
// pushed back by ServiceLeadDays and list the projects they serve. Output is
// most urgent first, then by risk.
func (e *Engine) MaintenanceSchedule(equipment []domain.Equipment, history []domain.MaintenanceRecord, rentals []domain.Rental, projects []domain.Project, now time.Time) []MaintenanceSlot {
	today := truncateDay(now)
	out := []MaintenanceSlot{}
	for _, eq := range equipment {
		h := features.HistoryFor(eq.ID, history)
		days := features.DaysSince(features.LastMaintenanceDate(h), now)
		if days <= e.cfg.ServiceAfterDays && eq.Status != domain.EquipmentMaintenance {
			continue
		}

		var last *domain.MaintenanceRecord
		if len(h) > 0 {
			last = &h[len(h)-1]
		}
		cost := e.cfg.ServiceCost
		if eq.Specifications.EngineHours > e.cfg.HeavyUseHours {
			cost = e.cfg.HeavyServiceCost
		}

		impact := bookedProjects(eq.ID, rentals, projects)
		date := today
		if len(impact) > 0 {
			date = today.AddDate(0, 0, e.cfg.ServiceLeadDays)
		}

		out = append(out, MaintenanceSlot{
			EquipmentID:      eq.ID,
			RecommendedDate:  date,
			Priority:         urgencyPriority(math.Min(1, days/e.cfg.UrgencyDays)),
			RiskScore:        e.maint.RiskScore(eq, last, now),
			EstimatedCost:    cost,
			ImpactOnProjects: impact,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].RiskScore > out[j].RiskScore
	})
	return out
}

func urgencyPriority(urgency float64) domain.Severity {
	switch {
	case urgency > 0.8:
		return domain.SeverityCritical
	case urgency > 0.6:
		return domain.SeverityHigh
	case urgency > 0.4:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// bookedProjects names the projects an active rental ties the machine to
func bookedProjects(equipmentID string, rentals []domain.Rental, projects []domain.Project) []string {
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rentals {
		if r.EquipmentID != equipmentID || r.Status != domain.RentalActive || r.ProjectID == "" || seen[r.ProjectID] {
			continue
		}
		seen[r.ProjectID] = true
		name := names[r.ProjectID]
		if name == "" {
			name = r.ProjectID
		}
		out = append(out, fmt.Sprintf("Project %s may be affected", name))
	}
	return out
}
