package domain

import "time"

// Severity grades an anomaly or alert
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for sorting, higher is worse
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// AnomalyResult is one detection, possibly merged from several detectors
type AnomalyResult struct {
	EquipmentID string   `json:"equipment_id"`
	AnomalyType string   `json:"anomaly_type"`
	Severity    Severity `json:"severity"`
	Score       float64  `json:"score"`
	Description string   `json:"description"`
	Algorithm   string   `json:"algorithm"`
	Confidence  float64  `json:"confidence"`
}

// Trend labels
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// ForecastItem is the demand forecast for one equipment type
type ForecastItem struct {
	EquipmentType      string   `json:"equipment_type"`
	PredictedDemand    int      `json:"predicted_demand"` // 0-100
	Confidence         int      `json:"confidence"`       // 0-100
	Trend              string   `json:"trend,omitempty"`
	NextMonthForecast  *int     `json:"next_month_forecast,omitempty"`
	SeasonalFactor     *float64 `json:"seasonal_factor,omitempty"`
	NextPeriodForecast *int     `json:"next_period_forecast,omitempty"`
}

// RiskScore is the maintenance outlook for one machine
type RiskScore struct {
	EquipmentID         string    `json:"equipment_id"`
	RiskScore           int       `json:"risk_score"` // 0-100
	NextMaintenanceDate time.Time `json:"next_maintenance_date"`
	FailureProbability  int       `json:"failure_probability"` // 0-100
	RecommendedActions  []string  `json:"recommended_actions"`
	Confidence          int       `json:"confidence"` // 0-100
}

// HealthReport is the component-level health breakdown of a machine
type HealthReport struct {
	EquipmentID     string         `json:"equipment_id"`
	OverallHealth   int            `json:"overall_health"`
	ComponentHealth map[string]int `json:"component_health"`
	HealthTrend     string         `json:"health_trend"`
	Recommendations []string       `json:"recommendations"`
}

// FailurePrediction estimates when and how a machine is likely to fail
type FailurePrediction struct {
	EquipmentID        string `json:"equipment_id"`
	FailureProbability int    `json:"failure_probability"`
	TimeToFailureDays  int    `json:"time_to_failure_days"`
	FailureType        string `json:"failure_type"`
	Confidence         int    `json:"confidence"`
}

// Suitability labels a recommendation score
type Suitability string

const (
	SuitabilityExcellent Suitability = "excellent"
	SuitabilityGood      Suitability = "good"
	SuitabilityFair      Suitability = "fair"
	SuitabilityPoor      Suitability = "poor"
)

// EquipmentRecommendation ranks a machine for a project
type EquipmentRecommendation struct {
	EquipmentID   string      `json:"equipment_id"`
	EquipmentType string      `json:"equipment_type"`
	SiteID        string      `json:"site_id"`
	Score         int         `json:"score"`      // 0-100
	Confidence    int         `json:"confidence"` // 0-100
	Reasons       []string    `json:"reasons"`
	EstimatedCost float64     `json:"estimated_cost"`
	Availability  string      `json:"availability"`
	Suitability   Suitability `json:"suitability"`
}

// AlertType classifies fleet alerts
type AlertType string

const (
	AlertOverdue       AlertType = "overdue"
	AlertMaintenance   AlertType = "maintenance"
	AlertIdleTime      AlertType = "idle_time"
	AlertAnomaly       AlertType = "anomaly"
	AlertGhostAsset    AlertType = "ghost_asset"
	AlertUnderUtilized AlertType = "under_utilized"
)

// Alert is an operator-facing notification
type Alert struct {
	ID           string    `json:"id"`
	Type         AlertType `json:"type"`
	EquipmentID  string    `json:"equipment_id"`
	Message      string    `json:"message"`
	Severity     Severity  `json:"severity"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

// CarbonEstimate is the estimated CO2 output of a machine over a period
type CarbonEstimate struct {
	EquipmentID    string  `json:"equipment_id"`
	PeriodHours    float64 `json:"period_hours"`
	EstimatedCO2kg float64 `json:"estimated_co2_kg"`
}

// DashboardData aggregates the headline analytics for the dashboard
type DashboardData struct {
	EquipmentCount int             `json:"equipment_count"`
	ActiveRentals  int             `json:"active_rentals"`
	Available      []string        `json:"available"`
	UnderUtilized  []string        `json:"under_utilized"`
	Anomalies      []AnomalyResult `json:"anomalies"`
	HighRisk       []RiskScore     `json:"high_risk"`
	Forecast       []ForecastItem  `json:"forecast"`
	Alerts         []Alert         `json:"alerts"`
	Weather        []WeatherData   `json:"weather"`
	Timestamp      time.Time       `json:"timestamp"`
}
