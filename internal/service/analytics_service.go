package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/backend/internal/analytics/anomaly"
	"github.com/fleetops/backend/internal/analytics/features"
	"github.com/fleetops/backend/internal/analytics/forecast"
	"github.com/fleetops/backend/internal/analytics/insights"
	"github.com/fleetops/backend/internal/analytics/maintenance"
	"github.com/fleetops/backend/internal/analytics/optimize"
	"github.com/fleetops/backend/internal/analytics/recommend"
	"github.com/fleetops/backend/internal/analytics/stats"
	"github.com/fleetops/backend/internal/analytics/weather"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/internal/metrics"
)

// Forecast methods accepted by Forecast
const (
	ForecastDecay    = "decay"
	ForecastTrend    = "trend"
	ForecastSeasonal = "seasonal"
)

// highRiskScore is the maintenance risk at which a machine makes the dashboard
const highRiskScore = 70

// Options tune the analytics engines
type Options struct {
	DecayHalfLifeDays   float64
	TrendPeriods        int
	MaxRecommendations  int
	IsolationTrees      int
	IsolationSampleSize int

	Logger *zap.Logger
	Clock  func() time.Time
	Random stats.RandomSource
}

// AnalyticsService loads fleet records and runs the analytics over them
type AnalyticsService struct {
	repo    FleetRepository
	weather WeatherProvider
	logger  *zap.Logger
	now     func() time.Time

	detector    *anomaly.Detector
	forecaster  *forecast.Engine
	maintenance *maintenance.Engine
	recommender *recommend.Engine
	optimizer   *optimize.Engine
	alerts      *insights.AlertBuilder
	maxRecs     int

	wgBg sync.WaitGroup // tracks background writes for graceful shutdown
}

// NewAnalyticsService wires the engines from opts
func NewAnalyticsService(repo FleetRepository, weatherSvc WeatherProvider, opts Options) *AnalyticsService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	detectorCfg := anomaly.DefaultConfig()
	if opts.IsolationTrees > 0 {
		detectorCfg.IsolationTrees = opts.IsolationTrees
	}
	if opts.IsolationSampleSize > 0 {
		detectorCfg.IsolationSampleSize = opts.IsolationSampleSize
	}

	forecastCfg := forecast.DefaultConfig()
	forecastCfg.HalfLifeDays = opts.DecayHalfLifeDays
	forecastCfg.TrendPeriods = opts.TrendPeriods

	recommendCfg := recommend.DefaultConfig()
	if opts.MaxRecommendations > 0 {
		recommendCfg.MaxResults = opts.MaxRecommendations
	}

	maintenanceEngine := maintenance.NewEngine(maintenance.DefaultConfig())
	recommender := recommend.NewEngine(recommendCfg)

	return &AnalyticsService{
		repo:        repo,
		weather:     weatherSvc,
		logger:      opts.Logger,
		now:         opts.Clock,
		detector:    anomaly.NewDetector(detectorCfg, opts.Random, opts.Clock),
		forecaster:  forecast.NewEngine(forecastCfg),
		maintenance: maintenanceEngine,
		recommender: recommender,
		optimizer:   optimize.NewEngine(optimize.DefaultConfig(), recommender, maintenanceEngine),
		alerts:      insights.NewAlertBuilder(insights.DefaultAlertRules()),
		maxRecs:     recommendCfg.MaxResults,
	}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *AnalyticsService) WaitBackground() {
	s.wgBg.Wait()
}

// fleet is one consistent read of every record collection
type fleet struct {
	equipment   []domain.Equipment
	rentals     []domain.Rental
	sites       []domain.Site
	projects    []domain.Project
	maintenance []domain.MaintenanceRecord
	usage       []domain.UsageSnapshot
}

// loadFleet fetches every collection concurrently. Usage snapshots are
// derived from rentals when storage holds none.
func (s *AnalyticsService) loadFleet(ctx context.Context) (fleet, error) {
	var f fleet
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		f.equipment, err = s.repo.ListEquipment(ctx)
		return s.repoErr("list_equipment", err)
	})
	g.Go(func() (err error) {
		f.rentals, err = s.repo.ListRentals(ctx)
		return s.repoErr("list_rentals", err)
	})
	g.Go(func() (err error) {
		f.sites, err = s.repo.ListSites(ctx)
		return s.repoErr("list_sites", err)
	})
	g.Go(func() (err error) {
		f.projects, err = s.repo.ListProjects(ctx)
		return s.repoErr("list_projects", err)
	})
	g.Go(func() (err error) {
		f.maintenance, err = s.repo.ListMaintenance(ctx)
		return s.repoErr("list_maintenance", err)
	})
	g.Go(func() (err error) {
		f.usage, err = s.repo.ListUsageSnapshots(ctx)
		return s.repoErr("list_usage", err)
	})

	if err := g.Wait(); err != nil {
		return fleet{}, err
	}
	if len(f.usage) == 0 {
		f.usage = features.BuildUsageSnapshots(f.equipment, f.rentals, s.now())
	}
	return f, nil
}

func (s *AnalyticsService) repoErr(op string, err error) error {
	if err == nil {
		return nil
	}
	metrics.RepositoryErrors.WithLabelValues(op).Inc()
	return fmt.Errorf("service: %s: %w", op, err)
}

// run times one analytics module
func (s *AnalyticsService) run(module string, fn func() error) error {
	started := time.Now()
	err := fn()
	metrics.ObserveRun(module, started, err)
	if err != nil {
		s.logger.Error("analytics run failed", zap.String("module", module), zap.Error(err))
	} else {
		s.logger.Debug("analytics run finished", zap.String("module", module), zap.Duration("took", time.Since(started)))
	}
	return err
}

// Anomalies runs the detection pipeline and stores the run in the background
func (s *AnalyticsService) Anomalies(ctx context.Context) ([]domain.AnomalyResult, error) {
	var out []domain.AnomalyResult
	err := s.run("anomaly", func() error {
		f, err := s.loadFleet(ctx)
		if err != nil {
			return err
		}
		out = s.detect(f)
		return nil
	})
	return out, err
}

func (s *AnalyticsService) detect(f fleet) []domain.AnomalyResult {
	out := s.detector.Detect(f.usage)
	for _, a := range out {
		metrics.AnomaliesDetected.WithLabelValues(a.Algorithm, string(a.Severity)).Inc()
	}
	s.logger.Info("anomaly detection finished", zap.Int("snapshots", len(f.usage)), zap.Int("anomalies", len(out)))

	if len(out) > 0 {
		s.wgBg.Add(1)
		go func() {
			defer s.wgBg.Done()
			bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.SaveAnomalies(bgCtx, out); err != nil {
				s.logger.Warn("failed to save anomalies", zap.Error(err))
			}
		}()
	}
	return out
}

// Forecast predicts equipment demand with the named method
func (s *AnalyticsService) Forecast(ctx context.Context, method string) ([]domain.ForecastItem, error) {
	if method == "" {
		method = ForecastDecay
	}
	if method != ForecastDecay && method != ForecastTrend && method != ForecastSeasonal {
		return nil, fmt.Errorf("service: unknown forecast method %q: %w", method, domain.ErrInvalidInput)
	}

	var out []domain.ForecastItem
	err := s.run("forecast", func() error {
		f, err := s.loadFleet(ctx)
		if err != nil {
			return err
		}
		out = s.forecast(f, method)
		return nil
	})
	return out, err
}

func (s *AnalyticsService) forecast(f fleet, method string) []domain.ForecastItem {
	switch method {
	case ForecastTrend:
		return s.forecaster.WithTrend(f.rentals)
	case ForecastSeasonal:
		return s.forecaster.Seasonal(f.rentals, s.now())
	default:
		return s.forecaster.ByType(f.rentals, s.now())
	}
}

// MaintenanceRisk scores every machine, riskiest first
func (s *AnalyticsService) MaintenanceRisk(ctx context.Context) ([]domain.RiskScore, error) {
	var out []domain.RiskScore
	err := s.run("maintenance", func() error {
		f, err := s.loadFleet(ctx)
		if err != nil {
			return err
		}
		out = s.riskRanking(f)
		return nil
	})
	return out, err
}

func (s *AnalyticsService) riskRanking(f fleet) []domain.RiskScore {
	out := s.maintenance.PredictNeeds(f.equipment, f.maintenance, s.now())
	sort.SliceStable(out, func(i, j int) bool { return out[i].RiskScore > out[j].RiskScore })
	return out
}

// FailurePredictions estimates failure probability and timing per machine
func (s *AnalyticsService) FailurePredictions(ctx context.Context) ([]domain.FailurePrediction, error) {
	var out []domain.FailurePrediction
	err := s.run("failure", func() error {
		f, err := s.loadFleet(ctx)
		if err != nil {
			return err
		}
		out = s.maintenance.PredictFailures(f.equipment, f.maintenance, s.now())
		return nil
	})
	return out, err
}

// EquipmentHealth reports component health for one machine
func (s *AnalyticsService) EquipmentHealth(ctx context.Context, id string) (domain.HealthReport, error) {
	eq, err := s.repo.GetEquipment(ctx, id)
	if err != nil {
		return domain.HealthReport{}, s.repoErr("get_equipment", err)
	}
	history, err := s.repo.ListMaintenance(ctx)
	if err != nil {
		return domain.HealthReport{}, s.repoErr("list_maintenance", err)
	}
	return maintenance.EquipmentHealth(eq, features.HistoryFor(id, history)), nil
}

// Recommendations ranks equipment for a project. maxResults <= 0 uses the
// configured default.
func (s *AnalyticsService) Recommendations(ctx context.Context, projectID string, maxResults int) ([]domain.EquipmentRecommendation, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, s.repoErr("get_project", err)
	}
	if maxResults <= 0 {
		maxResults = s.maxRecs
	}

	var out []domain.EquipmentRecommendation
	err = s.run("recommend", func() error {
		f, err := s.loadFleet(ctx)
		if err != nil {
			return err
		}
		out = s.recommender.Recommend(project, f.equipment, f.rentals, f.sites, maxResults, s.now())
		return nil
	})
	return out, err
}

// WeatherImpact rates the forecast's effect on the fleet and projects
func (s *AnalyticsService) WeatherImpact(ctx context.Context) (weather.Assessment, error) {
	var out weather.Assessment
	err := s.run("weather", func() error {
		f, forecastDays, err := s.loadWithWeather(ctx)
		if err != nil {
			return err
		}
		out = weather.AnalyzeImpact(f.equipment, f.projects, f.sites, forecastDays)
		return nil
	})
	return out, err
}

// WeatherSchedule proposes start dates that avoid high-risk weather, plus
// weather-friendly maintenance windows
func (s *AnalyticsService) WeatherSchedule(ctx context.Context) (ScheduleReport, error) {
	var out ScheduleReport
	err := s.run("schedule", func() error {
		f, forecastDays, err := s.loadWithWeather(ctx)
		if err != nil {
			return err
		}
		out = ScheduleReport{
			Projects:    weather.OptimizeSchedule(f.projects, f.sites, forecastDays, weather.DefaultScheduleConstraints()),
			Maintenance: weather.OptimizeMaintenance(f.equipment, f.maintenance, forecastDays, s.now()),
		}
		return nil
	})
	return out, err
}

// Weather returns the daily site forecast
func (s *AnalyticsService) Weather(ctx context.Context) ([]domain.WeatherData, error) {
	days, err := s.weather.GetForecast(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: weather forecast: %w", err)
	}
	return days, nil
}

// ScheduleReport bundles weather-driven project and maintenance scheduling
type ScheduleReport struct {
	Projects    []weather.ScheduleChange    `json:"projects"`
	Maintenance []weather.MaintenanceWindow `json:"maintenance"`
}

func (s *AnalyticsService) loadWithWeather(ctx context.Context) (fleet, []domain.WeatherData, error) {
	f, err := s.loadFleet(ctx)
	if err != nil {
		return fleet{}, nil, err
	}
	days, err := s.Weather(ctx)
	if err != nil {
		return fleet{}, nil, err
	}
	return f, days, nil
}

// OptimizationReport bundles the cost plan with greedy allocation, haul
// routes and a project-aware maintenance schedule
type OptimizationReport struct {
	Costs       optimize.Plan              `json:"costs"`
	Allocation  []optimize.Allocation      `json:"allocation"`
	Routes      []optimize.Route           `json:"routes"`
	Maintenance []optimize.MaintenanceSlot `json:"maintenance"`
}

// Optimize plans equipment allocation and cost savings within c
func (s *AnalyticsService) Optimize(ctx context.Context, c optimize.Constraints) (OptimizationReport, error) {
	if c.Budget < 0 || c.TimelineDays < 0 {
		return OptimizationReport{}, fmt.Errorf("service: budget and timeline must not be negative: %w", domain.ErrInvalidInput)
	}

	var out OptimizationReport
	err := s.run("optimize", func() error {
		f, err := s.loadFleet(ctx)
		if err != nil {
			return err
		}
		out = s.optimization(f, c)
		return nil
	})
	return out, err
}

func (s *AnalyticsService) optimization(f fleet, c optimize.Constraints) OptimizationReport {
	now := s.now()
	return OptimizationReport{
		Costs:       s.optimizer.CostPlan(f.projects, f.equipment, f.rentals, f.sites, c, now),
		Allocation:  s.optimizer.AllocateResources(f.projects, f.equipment, f.rentals, f.sites, c, now),
		Routes:      s.optimizer.TransportRoutes(f.sites),
		Maintenance: s.optimizer.MaintenanceSchedule(f.equipment, f.maintenance, f.rentals, f.projects, now),
	}
}

// UtilizationReport summarises how hard the fleet is working
type UtilizationReport struct {
	Utilization   map[string]int `json:"utilization"`
	UnderUtilized []string       `json:"under_utilized"`
	Available     []string       `json:"available"`
}

// Utilization reports per-machine utilization and current availability
func (s *AnalyticsService) Utilization(ctx context.Context) (UtilizationReport, error) {
	f, err := s.loadFleet(ctx)
	if err != nil {
		return UtilizationReport{}, err
	}
	return utilizationReport(f), nil
}

func utilizationReport(f fleet) UtilizationReport {
	util := insights.Utilization(f.usage)
	return UtilizationReport{
		Utilization:   util,
		UnderUtilized: insights.UnderUtilized(util, insights.UnderUtilizedThreshold),
		Available:     insights.Available(f.equipment, f.rentals),
	}
}

// Carbon estimates CO2 output per machine
func (s *AnalyticsService) Carbon(ctx context.Context) ([]domain.CarbonEstimate, error) {
	f, err := s.loadFleet(ctx)
	if err != nil {
		return nil, err
	}
	return carbonEstimates(f), nil
}

func carbonEstimates(f fleet) []domain.CarbonEstimate {
	return insights.EstimateCarbon(f.usage, insights.DieselCO2PerLitre)
}

// Alerts builds the operator alert list, including high-severity anomalies
func (s *AnalyticsService) Alerts(ctx context.Context) ([]domain.Alert, error) {
	f, err := s.loadFleet(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildAlerts(f, s.detector.Detect(f.usage)), nil
}

func (s *AnalyticsService) buildAlerts(f fleet, anomalies []domain.AnomalyResult) []domain.Alert {
	now := s.now()
	out := s.alerts.Build(f.equipment, f.rentals, f.usage, f.maintenance, now)
	return append(out, s.alerts.FromAnomalies(anomalies, now)...)
}

// Dashboard aggregates the headline analytics. A weather outage degrades to
// an empty forecast instead of failing the dashboard.
func (s *AnalyticsService) Dashboard(ctx context.Context) (domain.DashboardData, error) {
	f, err := s.loadFleet(ctx)
	if err != nil {
		return domain.DashboardData{}, err
	}

	var (
		wg        sync.WaitGroup
		anomalies []domain.AnomalyResult
		risks     []domain.RiskScore
		demand    []domain.ForecastItem
		days      []domain.WeatherData
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		anomalies = s.detect(f)
	}()
	go func() {
		defer wg.Done()
		risks = s.riskRanking(f)
	}()
	go func() {
		defer wg.Done()
		demand = s.forecast(f, ForecastDecay)
	}()
	go func() {
		defer wg.Done()
		w, err := s.weather.GetForecast(ctx)
		if err != nil {
			s.logger.Warn("dashboard weather fetch failed", zap.Error(err))
			return
		}
		days = w
	}()
	wg.Wait()

	highRisk := []domain.RiskScore{}
	for _, r := range risks {
		if r.RiskScore >= highRiskScore {
			highRisk = append(highRisk, r)
		}
	}
	var active int
	for _, r := range f.rentals {
		if r.Status == domain.RentalActive {
			active++
		}
	}
	util := utilizationReport(f)

	return domain.DashboardData{
		EquipmentCount: len(f.equipment),
		ActiveRentals:  active,
		Available:      util.Available,
		UnderUtilized:  util.UnderUtilized,
		Anomalies:      anomalies,
		HighRisk:       highRisk,
		Forecast:       demand,
		Alerts:         s.buildAlerts(f, anomalies),
		Weather:        days,
		Timestamp:      s.now(),
	}, nil
}
