package recommend

import (
	"math"
	"sort"

	"github.com/fleetops/backend/internal/domain"
)

// Similarity thresholds and result limits
const (
	MinEquipmentSimilarity = 0.4
	MinProjectSimilarity   = 0.3
	MaxSimilarResults      = 5
)

// Match is one machine's unweighted fit for a project
type Match struct {
	Equipment  domain.Equipment   `json:"equipment"`
	MatchScore int                `json:"match_score"`
	Factors    map[string]float64 `json:"factors"`
}

// SimilarEquipment is a machine resembling a target machine
type SimilarEquipment struct {
	Equipment  domain.Equipment `json:"equipment"`
	Similarity float64          `json:"similarity"`
	Reasons    []string         `json:"reasons"`
}

// SimilarProject is a past project resembling the current one
type SimilarProject struct {
	Project       domain.Project `json:"project"`
	Similarity    float64        `json:"similarity"`
	EquipmentUsed []string       `json:"equipment_used"`
}

// MatchEquipmentToProject averages six factors per machine (type, capacity,
// location, availability, cost and reliability) and sorts best first
func MatchEquipmentToProject(project domain.Project, equipment []domain.Equipment, rentals []domain.Rental, sites []domain.Site) []Match {
	e := NewEngine(DefaultConfig())
	out := make([]Match, 0, len(equipment))
	for _, eq := range equipment {
		factors := map[string]float64{
			"type_match":         TypeCompatibility(eq, project),
			"capacity_match":     CapacityCompatibility(eq, project),
			"location_match":     LocationCompatibility(eq, project, sites),
			"availability_match": availabilityMatch(eq.Status),
			"cost_match":         e.costEfficiency(eq, project),
			"reliability_match":  HistoricalPerformance(rentalsFor(eq.ID, rentals)),
		}
		var sum float64
		for _, f := range factors {
			sum += f
		}
		out = append(out, Match{
			Equipment:  eq,
			MatchScore: int(math.Round(sum / float64(len(factors)) * 100)),
			Factors:    factors,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	return out
}

func availabilityMatch(s domain.EquipmentStatus) float64 {
	switch s {
	case domain.EquipmentAvailable:
		return 1
	case domain.EquipmentMaintenance:
		return 0
	case domain.EquipmentRented:
		return 0.3
	default:
		return neutral
	}
}

// FindSimilarEquipment returns up to five machines whose similarity to target
// exceeds MinEquipmentSimilarity, most similar first
func FindSimilarEquipment(target domain.Equipment, all []domain.Equipment, rentals []domain.Rental) []SimilarEquipment {
	out := []SimilarEquipment{}
	for _, eq := range all {
		if eq.ID == target.ID {
			continue
		}
		s := equipmentSimilarity(target, eq, rentals)
		if s > MinEquipmentSimilarity {
			out = append(out, SimilarEquipment{Equipment: eq, Similarity: s, Reasons: similarityReasons(target, eq)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > MaxSimilarResults {
		out = out[:MaxSimilarResults]
	}
	return out
}

// FindSimilarProjects returns up to five other projects whose similarity
// exceeds MinProjectSimilarity, with the equipment their rentals used
func FindSimilarProjects(current domain.Project, rentals []domain.Rental, projects []domain.Project) []SimilarProject {
	out := []SimilarProject{}
	for _, p := range projects {
		if p.ID == current.ID {
			continue
		}
		s := projectSimilarity(current, p)
		if s <= MinProjectSimilarity {
			continue
		}
		used := []string{}
		for _, r := range rentals {
			if r.ProjectID == p.ID {
				used = append(used, r.EquipmentID)
			}
		}
		out = append(out, SimilarProject{Project: p, Similarity: s, EquipmentUsed: used})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > MaxSimilarResults {
		out = out[:MaxSimilarResults]
	}
	return out
}

// closeness is 1 - |a-b|/max(a,b), reported only when max(a,b) > 0
func closeness(a, b float64) (float64, bool) {
	top := math.Max(a, b)
	if top <= 0 {
		return 0, false
	}
	return 1 - math.Abs(a-b)/top, true
}

// factorSum is a weighted mean over the factors that applied, so a pair
// matching on every applicable factor scores 1
type factorSum struct {
	total   float64
	weights float64
}

func (f *factorSum) add(v, weight float64) {
	f.total += v * weight
	f.weights += weight
}

func (f *factorSum) mean() float64 {
	if f.weights == 0 {
		return 0
	}
	return f.total / f.weights
}

func projectSimilarity(a, b domain.Project) float64 {
	var f factorSum
	f.add(sameType(a.Type, b.Type), 0.3)
	// missing capacity counts as 1 on both sides for the range
	capTop := math.Max(orOne(a.RequiredCapacity), orOne(b.RequiredCapacity))
	f.add(1-math.Abs(a.RequiredCapacity-b.RequiredCapacity)/capTop, 0.2)
	if c, ok := closeness(a.Duration, b.Duration); ok {
		f.add(c, 0.2)
	}
	if c, ok := closeness(a.Budget, b.Budget); ok {
		f.add(c, 0.2)
	}
	if a.SiteID != "" && b.SiteID != "" {
		f.add(1, 0.1)
	}
	return f.mean()
}

func sameType(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func equipmentSimilarity(a, b domain.Equipment, rentals []domain.Rental) float64 {
	var f factorSum
	f.add(sameType(a.Type, b.Type), 0.3)
	if c, ok := closeness(a.Specifications.Capacity, b.Specifications.Capacity); ok {
		f.add(c, 0.25)
	}
	if c, ok := closeness(a.Specifications.EngineHours, b.Specifications.EngineHours); ok {
		f.add(c, 0.2)
	}
	f.add(usagePatternSimilarity(rentalsFor(a.ID, rentals), rentalsFor(b.ID, rentals)), 0.25)
	return f.mean()
}

// usagePatternSimilarity compares average rental duration and utilization
func usagePatternSimilarity(a, b []domain.Rental) float64 {
	if len(a) == 0 || len(b) == 0 {
		return neutral
	}
	avg := func(rs []domain.Rental, field func(domain.Rental) float64) float64 {
		var sum float64
		for _, r := range rs {
			sum += field(r)
		}
		return sum / float64(len(rs))
	}
	duration := func(r domain.Rental) float64 { return r.Duration }
	utilization := func(r domain.Rental) float64 { return r.UtilizationRate }

	d, _ := closeness(avg(a, duration), avg(b, duration))
	u, _ := closeness(avg(a, utilization), avg(b, utilization))
	return (d + u) / 2
}

func similarityReasons(a, b domain.Equipment) []string {
	reasons := []string{}
	if a.Type == b.Type {
		reasons = append(reasons, "Same equipment type")
	}
	ca, cb := a.Specifications.Capacity, b.Specifications.Capacity
	if ca > 0 && cb > 0 && math.Abs(ca-cb)/math.Max(ca, cb) <= 0.2 {
		reasons = append(reasons, "Similar capacity specifications")
	}
	ha, hb := a.Specifications.EngineHours, b.Specifications.EngineHours
	if ha > 0 && hb > 0 && math.Abs(ha-hb)/math.Max(ha, hb) <= 0.3 {
		reasons = append(reasons, "Similar usage history")
	}
	return reasons
}
