// Package forecast estimates equipment demand per type from rental history.
//
// Three methods are offered: exponentially decayed counts, Holt smoothing
// over monthly counts and a month-of-year seasonal profile. All of them key
// rentals by a type inferred from the equipment ID.
package forecast

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fleetops/backend/internal/analytics/stats"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

// Config holds the forecast tuning knobs
type Config struct {
	HalfLifeDays float64
	TrendPeriods int

	FallbackDemand     int
	FallbackConfidence int

	SeasonalMinConfidence float64
	VolatilityPenalty     float64
}

// DefaultConfig returns the stock forecast settings
func DefaultConfig() Config {
	return Config{
		HalfLifeDays:          30,
		TrendPeriods:          12,
		FallbackDemand:        50,
		FallbackConfidence:    60,
		SeasonalMinConfidence: 60,
		VolatilityPenalty:     20,
	}
}

var typePrefixes = []struct{ code, name string }{
	{"EQU", "General"},
	{"EXC", "Excavator"},
	{"CRN", "Crane"},
	{"BLD", "Bulldozer"},
	{"GRD", "Grader"},
	{"LDR", "Loader"},
}

// InferTypeFromEquipmentID maps an equipment ID to a type by substring, first
// match wins. IDs following no known convention are "Unknown". Rentals only
// carry the equipment ID, so this is the sole type source here.
func InferTypeFromEquipmentID(equipmentID string) string {
	for _, p := range typePrefixes {
		if strings.Contains(equipmentID, p.code) {
			return p.name
		}
	}
	return "Unknown"
}

// Engine computes demand forecasts
type Engine struct {
	cfg Config
}

// NewEngine creates a forecast engine. Non-positive settings fall back to
// the defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.HalfLifeDays <= 0 {
		cfg.HalfLifeDays = def.HalfLifeDays
	}
	if cfg.TrendPeriods <= 0 {
		cfg.TrendPeriods = def.TrendPeriods
	}
	return &Engine{cfg: cfg}
}

// ForecastDemandByType runs the decayed-count forecast with default settings
func ForecastDemandByType(rentals []domain.Rental, halfLifeDays float64, now time.Time) []domain.ForecastItem {
	cfg := DefaultConfig()
	cfg.HalfLifeDays = halfLifeDays
	return NewEngine(cfg).ByType(rentals, now)
}

// typeCounter accumulates a value per type, remembering first-seen order
type typeCounter struct {
	order  []string
	values map[string]float64
}

func newTypeCounter() *typeCounter {
	return &typeCounter{values: make(map[string]float64)}
}

func (c *typeCounter) add(kind string, v float64) {
	if _, ok := c.values[kind]; !ok {
		c.order = append(c.order, kind)
	}
	c.values[kind] += v
}

// ByType weights each rental by 0.5^(age/halfLife) and normalizes the
// per-type sums against the largest one (floored at 1).
func (e *Engine) ByType(rentals []domain.Rental, now time.Time) []domain.ForecastItem {
	counts := newTypeCounter()
	for _, r := range rentals {
		age := utils.DaysBetween(r.CheckOutDate, now)
		counts.add(InferTypeFromEquipmentID(r.EquipmentID), math.Pow(0.5, age/e.cfg.HalfLifeDays))
	}

	top := 1.0
	for _, v := range counts.values {
		top = math.Max(top, v)
	}

	items := make([]domain.ForecastItem, 0, len(counts.order))
	for _, kind := range counts.order {
		share := counts.values[kind] / top
		items = append(items, domain.ForecastItem{
			EquipmentType:   kind,
			PredictedDemand: clampDemand(share * 100),
			Confidence:      70 + utils.RoundInt(share*30),
		})
	}
	return rank(items)
}

// WithTrend applies Holt smoothing to each type's monthly rental counts.
// Types seen in fewer than two months get a flat fallback.
func (e *Engine) WithTrend(rentals []domain.Rental) []domain.ForecastItem {
	if len(rentals) == 0 {
		return []domain.ForecastItem{}
	}

	series := monthlySeries(rentals)
	items := make([]domain.ForecastItem, 0, len(series.order))
	for _, kind := range series.order {
		counts := series.counts[kind]
		if len(counts) < 2 {
			next := 0
			if len(counts) == 1 {
				next = utils.RoundInt(counts[0])
			}
			items = append(items, domain.ForecastItem{
				EquipmentType:     kind,
				PredictedDemand:   e.cfg.FallbackDemand,
				Confidence:        e.cfg.FallbackConfidence,
				Trend:             domain.TrendStable,
				NextMonthForecast: &next,
			})
			continue
		}

		s := stats.ExponentialSmoothingWithTrend(counts, e.cfg.TrendPeriods)
		next := utils.RoundInt(s.Forecast)
		items = append(items, domain.ForecastItem{
			EquipmentType:     kind,
			PredictedDemand:   clampDemand(s.Forecast / math.Max(1, stats.Max(counts)) * 100),
			Confidence:        utils.RoundInt(s.Confidence * 100),
			Trend:             s.Trend,
			NextMonthForecast: &next,
		})
	}
	return rank(items)
}

type monthly struct {
	order  []string
	counts map[string][]float64
}

// monthlySeries counts rentals per type and UTC calendar month, each series
// in chronological order
func monthlySeries(rentals []domain.Rental) monthly {
	var order []string
	byType := make(map[string]map[string]float64)
	for _, r := range rentals {
		kind := InferTypeFromEquipmentID(r.EquipmentID)
		months, ok := byType[kind]
		if !ok {
			months = make(map[string]float64)
			byType[kind] = months
			order = append(order, kind)
		}
		months[r.CheckOutDate.UTC().Format("2006-01")]++
	}

	out := monthly{order: order, counts: make(map[string][]float64, len(byType))}
	for kind, months := range byType {
		keys := make([]string, 0, len(months))
		for k := range months {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]float64, len(keys))
		for i, k := range keys {
			values[i] = months[k]
		}
		out.counts[kind] = values
	}
	return out
}

// Seasonality summarizes a type's month-of-year rental profile
type Seasonality struct {
	SeasonalFactor float64
	BaseDemand     float64
	MaxDemand      float64
	Volatility     float64
}

// AnalyzeSeasonality builds a 12-bucket month histogram and compares the
// current month against the average month
func AnalyzeSeasonality(rentals []domain.Rental, now time.Time) Seasonality {
	if len(rentals) == 0 {
		return Seasonality{SeasonalFactor: 1}
	}
	histogram := make([]float64, 12)
	for _, r := range rentals {
		histogram[r.CheckOutDate.UTC().Month()-1]++
	}
	s := stats.PopulationStats(histogram)
	base := math.Max(1, s.Mean)
	return Seasonality{
		SeasonalFactor: histogram[now.UTC().Month()-1] / base,
		BaseDemand:     s.Mean,
		MaxDemand:      stats.Max(histogram),
		Volatility:     s.Std / base,
	}
}

// Seasonal forecasts next-period demand as seasonalFactor × baseDemand
func (e *Engine) Seasonal(rentals []domain.Rental, now time.Time) []domain.ForecastItem {
	if len(rentals) == 0 {
		return []domain.ForecastItem{}
	}

	var order []string
	byType := make(map[string][]domain.Rental)
	for _, r := range rentals {
		kind := InferTypeFromEquipmentID(r.EquipmentID)
		if _, ok := byType[kind]; !ok {
			order = append(order, kind)
		}
		byType[kind] = append(byType[kind], r)
	}

	items := make([]domain.ForecastItem, 0, len(order))
	for _, kind := range order {
		s := AnalyzeSeasonality(byType[kind], now)
		next := s.SeasonalFactor * s.BaseDemand
		confidence := math.Max(e.cfg.SeasonalMinConfidence, 100-s.Volatility*e.cfg.VolatilityPenalty)
		factor := utils.RoundTo(s.SeasonalFactor, 2)
		nextRounded := utils.RoundInt(next)
		items = append(items, domain.ForecastItem{
			EquipmentType:      kind,
			PredictedDemand:    clampDemand(next / math.Max(1, s.MaxDemand) * 100),
			Confidence:         utils.RoundInt(math.Min(100, confidence)),
			SeasonalFactor:     &factor,
			NextPeriodForecast: &nextRounded,
		})
	}
	return rank(items)
}

func clampDemand(v float64) int {
	return utils.RoundInt(utils.Clamp(v, 0, 100))
}

// rank orders items by predicted demand, highest first, keeping input order on ties
func rank(items []domain.ForecastItem) []domain.ForecastItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PredictedDemand > items[j].PredictedDemand
	})
	return items
}
