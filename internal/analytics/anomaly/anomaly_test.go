package anomaly

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/backend/internal/domain"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestDetector(seed int64) *Detector {
	return NewDetector(DefaultConfig(), rand.New(rand.NewSource(seed)), func() time.Time { return fixedNow })
}

// fleetWithOutlier is ten near-identical machines plus one idling outlier
func fleetWithOutlier() []domain.UsageSnapshot {
	utils := []float64{90, 89, 91, 90, 88, 92, 90, 89, 91, 90}
	usage := make([]domain.UsageSnapshot, 0, 11)
	for i, u := range utils {
		id := "E" + string(rune('1'+i))
		if i == 9 {
			id = "E10"
		}
		usage = append(usage, domain.UsageSnapshot{
			EquipmentID: id, TotalHours: 100, IdleHours: 10, FuelEfficiency: 3, UtilizationRate: u, MaintenanceScore: 95,
		})
	}
	usage = append(usage, domain.UsageSnapshot{
		EquipmentID: "OUT", TotalHours: 100, IdleHours: 95, FuelEfficiency: 3, UtilizationRate: 5, MaintenanceScore: 95,
	})
	return usage
}

func TestZScoreFlagsOnlyTheOutlier(t *testing.T) {
	results := newTestDetector(1).ZScore(fleetWithOutlier())

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "OUT", r.EquipmentID)
	assert.Equal(t, "Low UtilizationRate", r.AnomalyType)
	assert.Contains(t, []domain.Severity{domain.SeverityMedium, domain.SeverityHigh}, r.Severity)
	assert.Equal(t, AlgorithmZScore, r.Algorithm)
	assert.Greater(t, r.Score, 2.5)
	assert.LessOrEqual(t, r.Confidence, 95.0)
	assert.InDelta(t, 70+r.Score*5, r.Confidence, 0.05)
}

func TestNonFiniteMetricsAreSkipped(t *testing.T) {
	usage := make([]domain.UsageSnapshot, 0, 13)
	for i := 0; i < 12; i++ {
		usage = append(usage, domain.UsageSnapshot{EquipmentID: fmt.Sprintf("EQ-%02d", i)})
	}
	usage = append(usage, domain.UsageSnapshot{
		EquipmentID: "BAD", FuelEfficiency: math.NaN(), UtilizationRate: math.Inf(1),
	})

	results := newTestDetector(3).Detect(usage)
	assert.Empty(t, results)
	_, err := json.Marshal(results)
	require.NoError(t, err)

	withBad := append(fleetWithOutlier(), domain.UsageSnapshot{
		EquipmentID: "BAD", TotalHours: 100, IdleHours: 10, FuelEfficiency: math.NaN(), UtilizationRate: math.Inf(-1), MaintenanceScore: 95,
	})
	flagged := newTestDetector(1).ZScore(withBad)
	require.Len(t, flagged, 1)
	assert.Equal(t, "OUT", flagged[0].EquipmentID)
	assert.Empty(t, newTestDetector(1).IQR([]domain.UsageSnapshot{{EquipmentID: "BAD", FuelEfficiency: math.NaN(), TotalHours: math.NaN()}}))
}

func TestZScoreSeverityBands(t *testing.T) {
	d := newTestDetector(1)
	assert.Equal(t, domain.SeverityHigh, d.zScoreSeverity(3.6))
	assert.Equal(t, domain.SeverityMedium, d.zScoreSeverity(3.5))
	assert.Equal(t, domain.SeverityMedium, d.zScoreSeverity(2.6))
	assert.Equal(t, domain.SeverityLow, d.zScoreSeverity(2.5))
}

func TestZScoreUniformBatchIsQuiet(t *testing.T) {
	usage := []domain.UsageSnapshot{
		{EquipmentID: "A", TotalHours: 10, FuelEfficiency: 3, UtilizationRate: 50},
		{EquipmentID: "B", TotalHours: 10, FuelEfficiency: 3, UtilizationRate: 50},
	}
	assert.Empty(t, newTestDetector(1).ZScore(usage))
}

func TestIsolationForestNeedsTenSnapshots(t *testing.T) {
	usage := fleetWithOutlier()[:9]
	assert.Empty(t, newTestDetector(1).IsolationForest(usage))
	assert.Empty(t, newTestDetector(1).IsolationForest(nil))
}

func TestIsolationForestSeededRunsAgree(t *testing.T) {
	usage := fleetWithOutlier()
	a := newTestDetector(99).IsolationForest(usage)
	b := newTestDetector(99).IsolationForest(usage)
	assert.Equal(t, a, b)
	for _, r := range a {
		assert.Equal(t, AlgorithmIsolation, r.Algorithm)
		assert.Greater(t, r.Score, 60.0)
		assert.LessOrEqual(t, r.Score, 100.0)
		if r.Score > 80 {
			assert.Equal(t, domain.SeverityHigh, r.Severity)
		} else {
			assert.Equal(t, domain.SeverityMedium, r.Severity)
		}
	}
}

func TestIQRWithZeroSpreadFlagsHigh(t *testing.T) {
	results := newTestDetector(1).IQR(fleetWithOutlier())

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "OUT", r.EquipmentID)
	assert.Equal(t, "idleRatio Above Normal", r.AnomalyType)
	assert.Equal(t, domain.SeverityHigh, r.Severity)
	assert.Equal(t, 75.0, r.Confidence)
	assert.InDelta(t, 0.85, r.Score, 1e-9)
}

func TestIQRScoresDistanceInIQRUnits(t *testing.T) {
	var usage []domain.UsageSnapshot
	for i, f := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 30} {
		usage = append(usage, domain.UsageSnapshot{EquipmentID: string(rune('A' + i)), TotalHours: 10, FuelEfficiency: f})
	}
	results := newTestDetector(1).IQR(usage)

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "I", r.EquipmentID)
	assert.Equal(t, "fuelEfficiency Above Normal", r.AnomalyType)
	assert.Equal(t, domain.SeverityHigh, r.Severity)
	assert.Equal(t, 4.25, r.Score)
	assert.Contains(t, r.Description, "bounds: -3.00 - 13.00")
}

func TestPatternNeedsFiveSnapshots(t *testing.T) {
	usage := []domain.UsageSnapshot{
		{EquipmentID: "P", UtilizationRate: 10},
		{EquipmentID: "P", UtilizationRate: 90},
		{EquipmentID: "P", UtilizationRate: 10},
		{EquipmentID: "P", UtilizationRate: 90},
	}
	assert.Empty(t, newTestDetector(1).Pattern(usage))
}

func ts(days int) *time.Time {
	t := fixedNow.AddDate(0, 0, days)
	return &t
}

func TestPatternDetectsSuddenChanges(t *testing.T) {
	usage := []domain.UsageSnapshot{
		{EquipmentID: "P1", UtilizationRate: 20, FuelEfficiency: 3, Timestamp: ts(-1)},
		{EquipmentID: "P1", UtilizationRate: 80, FuelEfficiency: 3, Timestamp: ts(-3)},
		{EquipmentID: "P1", UtilizationRate: 80, FuelEfficiency: 3, Timestamp: ts(-2)},
		{EquipmentID: "P2", UtilizationRate: 50, FuelEfficiency: 3, Timestamp: ts(-3)},
		{EquipmentID: "P2", UtilizationRate: 50, FuelEfficiency: 4.5, Timestamp: ts(-2)},
		{EquipmentID: "P2", UtilizationRate: 50, FuelEfficiency: 4.5, Timestamp: ts(-1)},
		{EquipmentID: "SOLO", UtilizationRate: 0},
	}
	results := newTestDetector(1).Pattern(usage)
	require.Len(t, results, 2)

	assert.Equal(t, "P1", results[0].EquipmentID)
	assert.Equal(t, "Sudden Utilization Change", results[0].AnomalyType)
	assert.Equal(t, domain.SeverityMedium, results[0].Severity)
	assert.Equal(t, 2.0, results[0].Score)
	assert.Equal(t, 80.0, results[0].Confidence)

	assert.Equal(t, "P2", results[1].EquipmentID)
	assert.Equal(t, "Sudden Fuel Efficiency Change", results[1].AnomalyType)
	assert.Equal(t, domain.SeverityHigh, results[1].Severity)
	assert.Equal(t, 3.0, results[1].Score)
}

func TestPatternUndatedSnapshotsSortLast(t *testing.T) {
	usage := []domain.UsageSnapshot{
		{EquipmentID: "P", UtilizationRate: 10},
		{EquipmentID: "P", UtilizationRate: 50, Timestamp: ts(-10)},
		{EquipmentID: "P", UtilizationRate: 50, Timestamp: ts(-5)},
		{EquipmentID: "Q"},
		{EquipmentID: "R"},
	}
	results := newTestDetector(1).Pattern(usage)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Description, "utilization 40.0%")
}

func TestMergeKeepsMaxAndJoinsDescriptions(t *testing.T) {
	in := []domain.AnomalyResult{
		{EquipmentID: "E1", AnomalyType: "X", Score: 2, Confidence: 90, Description: "first", Severity: domain.SeverityMedium},
		{EquipmentID: "E2", AnomalyType: "X", Score: 1, Confidence: 10, Description: "other"},
		{EquipmentID: "E1", AnomalyType: "X", Score: 5, Confidence: 80, Description: "second"},
	}
	out := Merge(in)

	require.Len(t, out, 2)
	assert.Equal(t, "E1", out[0].EquipmentID)
	assert.Equal(t, 5.0, out[0].Score)
	assert.Equal(t, 90.0, out[0].Confidence)
	assert.Equal(t, "first; second", out[0].Description)
	assert.Equal(t, domain.SeverityMedium, out[0].Severity)
	assert.Equal(t, "first", in[0].Description, "inputs must not be mutated")
}

func TestDetectRanksAndDeduplicates(t *testing.T) {
	results := newTestDetector(5).Detect(fleetWithOutlier())
	require.NotEmpty(t, results)

	seen := map[string]bool{}
	for i, r := range results {
		key := r.EquipmentID + "|" + r.AnomalyType
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Severity.Rank(), r.Severity.Rank())
		}
	}
	assert.True(t, seen["OUT|Low UtilizationRate"])
	assert.True(t, seen["OUT|idleRatio Above Normal"])
}

func TestDetectEmptyInput(t *testing.T) {
	out := DetectUsageAnomalies(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestDeterministicDetectorsAreIdempotent(t *testing.T) {
	d := newTestDetector(1)
	usage := fleetWithOutlier()
	assert.Equal(t, d.ZScore(usage), d.ZScore(usage))
	assert.Equal(t, d.IQR(usage), d.IQR(usage))
	assert.Equal(t, d.Pattern(usage), d.Pattern(usage))
}

func TestZScoreTypeNames(t *testing.T) {
	assert.Equal(t, "High IdleRatio", zScoreType("idleRatio", 3))
	assert.True(t, strings.HasPrefix(zScoreType("fuelEfficiency", -3), "Low "))
}
