// Package anomaly runs four independent detectors over a batch of usage
// snapshots and merges their findings into one ranked list.
package anomaly

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fleetops/backend/internal/analytics/features"
	"github.com/fleetops/backend/internal/analytics/stats"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

// Algorithm names reported on each result
const (
	AlgorithmZScore    = "z-score"
	AlgorithmIsolation = "isolation-forest"
	AlgorithmIQR       = "iqr"
	AlgorithmPattern   = "pattern-detection"
)

// Config carries every threshold the detectors use
type Config struct {
	ZScoreThreshold     float64
	ZScoreHighThreshold float64

	IsolationMinBatch      int
	IsolationTrees         int
	IsolationSampleSize    int
	IsolationThreshold     float64
	IsolationHighThreshold float64

	IQRMultiplier     float64
	IQRHighMultiplier float64
	IQRConfidence     float64

	PatternMinBatch        int
	PatternMinGroup        int
	PatternUtilizationJump float64
	PatternFuelJump        float64
	PatternHighRatio       float64
	PatternConfidence      float64
}

// DefaultConfig returns the stock detector thresholds
func DefaultConfig() Config {
	return Config{
		ZScoreThreshold:     2.5,
		ZScoreHighThreshold: 3.5,

		IsolationMinBatch:      10,
		IsolationTrees:         100,
		IsolationSampleSize:    256,
		IsolationThreshold:     0.6,
		IsolationHighThreshold: 0.8,

		IQRMultiplier:     1.5,
		IQRHighMultiplier: 2,
		IQRConfidence:     75,

		PatternMinBatch:        5,
		PatternMinGroup:        3,
		PatternUtilizationJump: 30,
		PatternFuelJump:        0.5,
		PatternHighRatio:       2,
		PatternConfidence:      80,
	}
}

type metric struct {
	name    string
	extract func(domain.UsageSnapshot) float64
}

var (
	idleRatio        = metric{"idleRatio", features.IdleRatio}
	fuelEfficiency   = metric{"fuelEfficiency", func(u domain.UsageSnapshot) float64 { return u.FuelEfficiency }}
	utilizationRate  = metric{"utilizationRate", func(u domain.UsageSnapshot) float64 { return u.UtilizationRate }}
	maintenanceScore = metric{"maintenanceScore", func(u domain.UsageSnapshot) float64 { return u.MaintenanceScore }}
)

// values extracts the metric from every snapshot, plus the finite subset the
// batch statistics are computed over
func (m metric) values(usage []domain.UsageSnapshot) (all, finite []float64) {
	all = make([]float64, len(usage))
	finite = make([]float64, 0, len(usage))
	for i, u := range usage {
		all[i] = m.extract(u)
		if isFinite(all[i]) {
			finite = append(finite, all[i])
		}
	}
	return all, finite
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// Detector runs the anomaly pipeline. It holds no state between calls; with
// stats.GlobalSource it may be shared across goroutines.
type Detector struct {
	cfg Config
	rng stats.RandomSource
	now func() time.Time
}

// NewDetector creates a detector. A nil rng uses stats.GlobalSource and a nil
// clock uses time.Now.
func NewDetector(cfg Config, rng stats.RandomSource, now func() time.Time) *Detector {
	if rng == nil {
		rng = stats.GlobalSource{}
	}
	if now == nil {
		now = time.Now
	}
	return &Detector{cfg: cfg, rng: rng, now: now}
}

// DetectUsageAnomalies runs all detectors with default thresholds
func DetectUsageAnomalies(usage []domain.UsageSnapshot) []domain.AnomalyResult {
	return NewDetector(DefaultConfig(), nil, nil).Detect(usage)
}

// Detect runs the four detectors, merges duplicates per (equipment, type) and
// ranks the result by severity, then confidence.
func (d *Detector) Detect(usage []domain.UsageSnapshot) []domain.AnomalyResult {
	if len(usage) == 0 {
		return []domain.AnomalyResult{}
	}

	var raw []domain.AnomalyResult
	raw = append(raw, d.ZScore(usage)...)
	raw = append(raw, d.IsolationForest(usage)...)
	raw = append(raw, d.IQR(usage)...)
	raw = append(raw, d.Pattern(usage)...)

	merged := Merge(raw)
	sort.SliceStable(merged, func(i, j int) bool {
		ri, rj := merged[i].Severity.Rank(), merged[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// ZScore flags values more than ZScoreThreshold deviations from the batch mean
// on idle ratio, fuel efficiency, utilization and maintenance score. The
// deviation divisor is floored at 1.
func (d *Detector) ZScore(usage []domain.UsageSnapshot) []domain.AnomalyResult {
	var results []domain.AnomalyResult
	for _, m := range []metric{idleRatio, fuelEfficiency, utilizationRate, maintenanceScore} {
		values, finite := m.values(usage)
		s := stats.PopulationStats(finite)

		for i, u := range usage {
			if !isFinite(values[i]) {
				continue
			}
			z := (values[i] - s.Mean) / math.Max(1, s.Std)
			absZ := math.Abs(z)
			if absZ <= d.cfg.ZScoreThreshold {
				continue
			}
			results = append(results, domain.AnomalyResult{
				EquipmentID: u.EquipmentID,
				AnomalyType: zScoreType(m.name, z),
				Severity:    d.zScoreSeverity(absZ),
				Score:       utils.RoundTo(absZ, 2),
				Description: fmt.Sprintf("%s anomaly: %.2f (Z-score: %.2f)", m.name, values[i], z),
				Algorithm:   AlgorithmZScore,
				Confidence:  math.Min(95, 70+absZ*5),
			})
		}
	}
	return results
}

// zScoreSeverity keeps the low branch even though the flag threshold makes
// it unreachable with the default config.
func (d *Detector) zScoreSeverity(absZ float64) domain.Severity {
	switch {
	case absZ > d.cfg.ZScoreHighThreshold:
		return domain.SeverityHigh
	case absZ > d.cfg.ZScoreThreshold:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func zScoreType(name string, z float64) string {
	direction := "Low"
	if z > 0 {
		direction = "High"
	}
	return direction + " " + strings.ToUpper(name[:1]) + name[1:]
}

// IsolationForest scores each snapshot's feature vector and flags relative
// scores above IsolationThreshold. Batches smaller than IsolationMinBatch are
// skipped.
func (d *Detector) IsolationForest(usage []domain.UsageSnapshot) []domain.AnomalyResult {
	var (
		kept    []domain.UsageSnapshot
		vectors [][]float64
	)
	for _, u := range usage {
		v := features.UsageVector(u)
		if !allFinite(v) {
			continue
		}
		kept = append(kept, u)
		vectors = append(vectors, v)
	}
	if len(kept) < d.cfg.IsolationMinBatch {
		return []domain.AnomalyResult{}
	}
	usage = kept
	scores := stats.IsolationForestLite(vectors, d.cfg.IsolationTrees, d.cfg.IsolationSampleSize, d.rng)

	var results []domain.AnomalyResult
	for i, u := range usage {
		s := scores[i]
		if s <= d.cfg.IsolationThreshold {
			continue
		}
		severity := domain.SeverityMedium
		if s > d.cfg.IsolationHighThreshold {
			severity = domain.SeverityHigh
		}
		results = append(results, domain.AnomalyResult{
			EquipmentID: u.EquipmentID,
			AnomalyType: "Isolation Forest Anomaly",
			Severity:    severity,
			Score:       utils.RoundTo(s*100, 2),
			Description: fmt.Sprintf("Machine learning detected anomaly with score %.1f%%", s*100),
			Algorithm:   AlgorithmIsolation,
			Confidence:  math.Round(s * 100),
		})
	}
	return results
}

// IQR flags idle ratio and fuel efficiency values outside
// [q1 - 1.5*iqr, q3 + 1.5*iqr] using nearest-rank quartiles.
func (d *Detector) IQR(usage []domain.UsageSnapshot) []domain.AnomalyResult {
	var results []domain.AnomalyResult
	for _, m := range []metric{idleRatio, fuelEfficiency} {
		values, finite := m.values(usage)
		if len(finite) == 0 {
			continue
		}
		q := stats.Quartiles(stats.SortedCopy(finite))
		lower := q.Q1 - d.cfg.IQRMultiplier*q.IQR
		upper := q.Q3 + d.cfg.IQRMultiplier*q.IQR

		for i, u := range usage {
			v := values[i]
			if !isFinite(v) || (v >= lower && v <= upper) {
				continue
			}
			anomalyType := m.name + " Above Normal"
			distance := v - upper
			if v < lower {
				anomalyType = m.name + " Below Normal"
				distance = lower - v
			}
			severity := domain.SeverityMedium
			if distance > d.cfg.IQRHighMultiplier*q.IQR {
				severity = domain.SeverityHigh
			}
			score := distance
			if q.IQR > 0 {
				score = distance / q.IQR
			}
			results = append(results, domain.AnomalyResult{
				EquipmentID: u.EquipmentID,
				AnomalyType: anomalyType,
				Severity:    severity,
				Score:       utils.RoundTo(score, 2),
				Description: fmt.Sprintf("%s outlier: %.2f (bounds: %.2f - %.2f)", m.name, v, lower, upper),
				Algorithm:   AlgorithmIQR,
				Confidence:  d.cfg.IQRConfidence,
			})
		}
	}
	return results
}

// Pattern groups snapshots per machine, orders them by timestamp and flags
// jumps between neighbours. Snapshots without a timestamp are treated as
// taken now, so they sort last.
func (d *Detector) Pattern(usage []domain.UsageSnapshot) []domain.AnomalyResult {
	if len(usage) < d.cfg.PatternMinBatch {
		return []domain.AnomalyResult{}
	}

	now := d.now()
	var order []string
	groups := make(map[string][]domain.UsageSnapshot)
	for _, u := range usage {
		if _, ok := groups[u.EquipmentID]; !ok {
			order = append(order, u.EquipmentID)
		}
		groups[u.EquipmentID] = append(groups[u.EquipmentID], u)
	}

	at := func(u domain.UsageSnapshot) time.Time {
		if u.Timestamp == nil {
			return now
		}
		return *u.Timestamp
	}

	var results []domain.AnomalyResult
	for _, id := range order {
		group := groups[id]
		if len(group) < d.cfg.PatternMinGroup {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return at(group[i]).Before(at(group[j])) })

		for i := 1; i < len(group); i++ {
			utilChange := math.Abs(group[i].UtilizationRate - group[i-1].UtilizationRate)
			fuelChange := math.Abs(group[i].FuelEfficiency - group[i-1].FuelEfficiency)
			if !isFinite(utilChange) || !isFinite(fuelChange) {
				continue
			}
			utilJump := utilChange > d.cfg.PatternUtilizationJump
			if !utilJump && fuelChange <= d.cfg.PatternFuelJump {
				continue
			}

			anomalyType := "Sudden Fuel Efficiency Change"
			if utilJump {
				anomalyType = "Sudden Utilization Change"
			}
			ratio := math.Max(utilChange/d.cfg.PatternUtilizationJump, fuelChange/d.cfg.PatternFuelJump)
			severity := domain.SeverityMedium
			if ratio > d.cfg.PatternHighRatio {
				severity = domain.SeverityHigh
			}
			results = append(results, domain.AnomalyResult{
				EquipmentID: id,
				AnomalyType: anomalyType,
				Severity:    severity,
				Score:       utils.RoundTo(ratio, 2),
				Description: fmt.Sprintf("Sudden change detected: utilization %.1f%%, fuel %.2f", utilChange, fuelChange),
				Algorithm:   AlgorithmPattern,
				Confidence:  d.cfg.PatternConfidence,
			})
		}
	}
	return results
}

// Merge collapses results sharing (equipment, anomaly type) into one entry
// with the max score and confidence and the descriptions joined by "; ".
// First-seen order is kept.
func Merge(anomalies []domain.AnomalyResult) []domain.AnomalyResult {
	type key struct{ equipment, kind string }
	index := make(map[key]int)
	merged := make([]domain.AnomalyResult, 0, len(anomalies))

	for _, a := range anomalies {
		k := key{a.EquipmentID, a.AnomalyType}
		i, ok := index[k]
		if !ok {
			index[k] = len(merged)
			merged = append(merged, a)
			continue
		}
		existing := &merged[i]
		existing.Score = math.Max(existing.Score, a.Score)
		existing.Confidence = math.Max(existing.Confidence, a.Confidence)
		existing.Description = existing.Description + "; " + a.Description
	}
	return merged
}
