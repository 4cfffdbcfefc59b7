package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/backend/internal/domain"
)

var now = time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)

var sites = []domain.Site{
	{ID: "S1", Name: "North yard", Coordinates: domain.GeoLocation{Lat: 0, Lng: 0}},
	{ID: "S2", Name: "Quarry", Coordinates: domain.GeoLocation{Lat: 0, Lng: 0.3}},
}

func excavatorProject() domain.Project {
	return domain.Project{ID: "P1", Type: "Excavator", SiteID: "S1", RequiredCapacity: 100, Duration: 10}
}

func excavator(id string) domain.Equipment {
	return domain.Equipment{
		ID: id, Type: "Excavator", SiteID: "S1", Status: domain.EquipmentAvailable,
		Specifications: domain.Specifications{Capacity: 100, EngineHours: 1000},
	}
}

func TestRecommendPerfectMatchWithoutHistory(t *testing.T) {
	out := RecommendEquipment(excavatorProject(), []domain.Equipment{excavator("EXC-1")}, nil, sites, 5, now)

	require.Len(t, out, 1)
	r := out[0]
	// type, capacity and location are perfect; history and cost are neutral
	assert.Equal(t, 88, r.Score)
	assert.Equal(t, domain.SuitabilityExcellent, r.Suitability)
	assert.Equal(t, 50, r.Confidence)
	assert.Equal(t, "Available now", r.Availability)
	assert.Equal(t, 4500.0, r.EstimatedCost)
	assert.Equal(t, []string{"Perfect type match for project requirements", "Capacity closely matches project requirements"}, r.Reasons)
}

func TestRecommendPerfectMatchScoresFull(t *testing.T) {
	project := excavatorProject()
	project.Budget = 10000
	planned := now.AddDate(0, 0, -5)
	rentals := []domain.Rental{{
		EquipmentID: "EXC-1", CheckOutDate: now.AddDate(0, 0, -10), PlannedReturnDate: planned,
		CheckInDate: &planned, Status: domain.RentalCompleted, TotalCost: 500, Duration: 5,
	}}
	out := RecommendEquipment(project, []domain.Equipment{excavator("EXC-1")}, rentals, sites, 5, now)

	require.Len(t, out, 1)
	assert.Equal(t, 100, out[0].Score)
	assert.Equal(t, 65, out[0].Confidence)
	assert.Equal(t, domain.SuitabilityExcellent, out[0].Suitability)
	assert.Contains(t, out[0].Reasons, "Excellent completion rate in previous rentals")
	assert.Contains(t, out[0].Reasons, "Estimated cost within project budget")
}

func TestRecommendSortsAndTruncates(t *testing.T) {
	far := excavator("EXC-FAR")
	far.SiteID = "S2"
	crane := domain.Equipment{ID: "CRN-1", Type: "Crane", Status: domain.EquipmentMaintenance}
	out := RecommendEquipment(excavatorProject(), []domain.Equipment{crane, far, excavator("EXC-1")}, nil, sites, 2, now)

	require.Len(t, out, 2)
	assert.Equal(t, "EXC-1", out[0].EquipmentID)
	assert.Equal(t, "EXC-FAR", out[1].EquipmentID)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestRecommendEmpty(t *testing.T) {
	out := RecommendEquipment(excavatorProject(), nil, nil, nil, 5, now)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRecommendDefaultsMax(t *testing.T) {
	var fleet []domain.Equipment
	for _, id := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		fleet = append(fleet, excavator(id))
	}
	assert.Len(t, RecommendEquipment(excavatorProject(), fleet, nil, sites, 0, now), 5)
}

func TestTypeCompatibility(t *testing.T) {
	cases := []struct {
		project, equipment string
		want               float64
	}{
		{"Crane", "crane", 1},
		{"excavation phase 1", "Bulldozer", 0.8},
		{"Site grading", "Excavator", 0.8},
		{"Heavy crane lift", "Crane", 0.6},
		{"Road", "Crane", 0.2},
	}
	for _, c := range cases {
		got := TypeCompatibility(domain.Equipment{Type: c.equipment}, domain.Project{Type: c.project})
		assert.Equal(t, c.want, got, "%s/%s", c.project, c.equipment)
	}
}

func TestCapacityCompatibilityBands(t *testing.T) {
	project := domain.Project{RequiredCapacity: 100}
	for have, want := range map[float64]float64{100: 1, 130: 0.8, 50: 0.6, 250: 0.4, 400: 0.2, 0: 0.5} {
		eq := domain.Equipment{Specifications: domain.Specifications{Capacity: have}}
		assert.Equal(t, want, CapacityCompatibility(eq, project), "capacity %v", have)
	}
	assert.Equal(t, 0.5, CapacityCompatibility(excavator("X"), domain.Project{}))
}

func TestLocationCompatibility(t *testing.T) {
	project := excavatorProject()
	eq := excavator("X")
	assert.Equal(t, 1.0, LocationCompatibility(eq, project, sites))

	eq.SiteID = "S2" // about 33 km east
	assert.Equal(t, 0.8, LocationCompatibility(eq, project, sites))

	eq.SiteID = "nowhere"
	assert.Equal(t, 0.5, LocationCompatibility(eq, project, sites))
}

func TestCostEfficiency(t *testing.T) {
	e := NewEngine(DefaultConfig())
	eq := domain.Equipment{}
	assert.Equal(t, 540.0, e.EstimateCost(eq, domain.Project{}))
	assert.Equal(t, 0.7, e.costEfficiency(eq, domain.Project{Budget: 500}))
	assert.Equal(t, 0.1, e.costEfficiency(eq, domain.Project{Budget: 100}))
	assert.Equal(t, 0.5, e.costEfficiency(eq, domain.Project{}))
}

func TestSuitability(t *testing.T) {
	e := NewEngine(DefaultConfig())
	assert.Equal(t, domain.SuitabilityExcellent, e.Suitability(0.8))
	assert.Equal(t, domain.SuitabilityGood, e.Suitability(0.79))
	assert.Equal(t, domain.SuitabilityFair, e.Suitability(0.4))
	assert.Equal(t, domain.SuitabilityPoor, e.Suitability(0.39))
}

func TestAvailability(t *testing.T) {
	assert.Equal(t, "Under maintenance", Availability(domain.EquipmentMaintenance))
	assert.Equal(t, "Currently rented", Availability(domain.EquipmentRented))
	assert.Equal(t, "Overdue for return", Availability(domain.EquipmentOverdue))
	assert.Equal(t, "Status unknown", Availability(""))
}

func TestMatchEquipmentToProject(t *testing.T) {
	broken := domain.Equipment{ID: "CRN-1", Type: "Crane", Status: domain.EquipmentMaintenance}
	out := MatchEquipmentToProject(excavatorProject(), []domain.Equipment{broken, excavator("EXC-1")}, nil, sites)

	require.Len(t, out, 2)
	assert.Equal(t, "EXC-1", out[0].Equipment.ID)
	assert.Equal(t, 83, out[0].MatchScore)
	assert.Len(t, out[0].Factors, 6)
	assert.Equal(t, 0.0, out[1].Factors["availability_match"])
}

func TestFindSimilarEquipment(t *testing.T) {
	target := excavator("A")
	twin := excavator("B")
	twin.Specifications = domain.Specifications{Capacity: 90, EngineHours: 1100}
	crane := domain.Equipment{ID: "C", Type: "Crane", Specifications: domain.Specifications{Capacity: 10, EngineHours: 9000}}

	out := FindSimilarEquipment(target, []domain.Equipment{target, crane, twin}, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].Equipment.ID)
	assert.Greater(t, out[0].Similarity, MinEquipmentSimilarity)
	assert.Equal(t, []string{"Same equipment type", "Similar capacity specifications", "Similar usage history"}, out[0].Reasons)
}

func TestFindSimilarProjects(t *testing.T) {
	current := domain.Project{ID: "P1", Type: "Road", RequiredCapacity: 100, Duration: 30, Budget: 10000, SiteID: "S1"}
	twin := domain.Project{ID: "P2", Type: "Road", RequiredCapacity: 100, Duration: 30, Budget: 10000, SiteID: "S2"}
	unlike := domain.Project{ID: "P3", Type: "Bridge"}
	rentals := []domain.Rental{{EquipmentID: "EXC-1", ProjectID: "P2"}, {EquipmentID: "CRN-1", ProjectID: "P9"}}

	out := FindSimilarProjects(current, rentals, []domain.Project{current, unlike, twin})
	require.Len(t, out, 1)
	assert.Equal(t, "P2", out[0].Project.ID)
	assert.InDelta(t, 1.0, out[0].Similarity, 1e-9)
	assert.Equal(t, []string{"EXC-1"}, out[0].EquipmentUsed)
}

func TestUsagePatternSimilarity(t *testing.T) {
	a := []domain.Rental{{Duration: 10, UtilizationRate: 80}}
	b := []domain.Rental{{Duration: 5, UtilizationRate: 80}}
	assert.InDelta(t, 0.75, usagePatternSimilarity(a, b), 1e-9)
	assert.Equal(t, 0.5, usagePatternSimilarity(a, nil))
}
