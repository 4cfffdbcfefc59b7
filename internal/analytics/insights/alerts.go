package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/backend/internal/analytics/anomaly"
	"github.com/fleetops/backend/internal/analytics/features"
	"github.com/fleetops/backend/internal/domain"
	"github.com/fleetops/backend/pkg/utils"
)

// AlertRules holds the alert thresholds
type AlertRules struct {
	UnderUtilizedPct    float64
	MaxIdleShare        float64
	GhostMaxHoursDelta  float64
	GhostMinDays        float64
	MaintenanceDueHours float64
	AnomalyMinSeverity  domain.Severity
}

// DefaultAlertRules returns the stock alert thresholds
func DefaultAlertRules() AlertRules {
	return AlertRules{
		UnderUtilizedPct:    UnderUtilizedThreshold,
		MaxIdleShare:        0.5,
		GhostMaxHoursDelta:  2,
		GhostMinDays:        3,
		MaintenanceDueHours: 250,
		AnomalyMinSeverity:  domain.SeverityHigh,
	}
}

// AlertBuilder creates alerts. NewID defaults to random UUIDs.
type AlertBuilder struct {
	Rules AlertRules
	NewID func() string
}

// NewAlertBuilder creates a builder with the given rules
func NewAlertBuilder(rules AlertRules) *AlertBuilder {
	return &AlertBuilder{Rules: rules, NewID: uuid.NewString}
}

// BuildAlerts runs every alert rule with the default thresholds
func BuildAlerts(equipment []domain.Equipment, rentals []domain.Rental, usage []domain.UsageSnapshot, history []domain.MaintenanceRecord, now time.Time) []domain.Alert {
	return NewAlertBuilder(DefaultAlertRules()).Build(equipment, rentals, usage, history, now)
}

// Build emits overdue, under-utilized, idle time, ghost asset and
// maintenance-due alerts, in that order
func (b *AlertBuilder) Build(equipment []domain.Equipment, rentals []domain.Rental, usage []domain.UsageSnapshot, history []domain.MaintenanceRecord, now time.Time) []domain.Alert {
	alerts := []domain.Alert{}

	for _, r := range rentals {
		if r.Status == domain.RentalActive && r.PlannedReturnDate.Before(now) {
			alerts = append(alerts, b.alert(r.EquipmentID, domain.AlertOverdue, domain.SeverityHigh, now,
				fmt.Sprintf("Equipment %s is overdue for return", r.EquipmentID)))
		}
	}

	utilization := make(map[string]float64, len(usage))
	for _, u := range usage {
		utilization[u.EquipmentID] = u.UtilizationRate
	}
	for _, e := range equipment {
		util, ok := utilization[e.ID]
		if ok && util < b.Rules.UnderUtilizedPct {
			alerts = append(alerts, b.alert(e.ID, domain.AlertUnderUtilized, domain.SeverityMedium, now,
				fmt.Sprintf("Utilization %g%% is below threshold", util)))
		}
	}

	for _, u := range usage {
		if u.TotalHours > 0 && u.IdleHours/u.TotalHours > b.Rules.MaxIdleShare {
			alerts = append(alerts, b.alert(u.EquipmentID, domain.AlertIdleTime, domain.SeverityLow, now,
				fmt.Sprintf("Idle for %.0f of %.0f engine hours", u.IdleHours, u.TotalHours)))
		}
	}

	for _, r := range rentals {
		if r.Status != domain.RentalActive {
			continue
		}
		days := math.Max(1, math.Abs(utils.DaysBetween(r.CheckOutDate, now)))
		if features.EngineHoursDelta(r) < b.Rules.GhostMaxHoursDelta && days > b.Rules.GhostMinDays {
			alerts = append(alerts, b.alert(r.EquipmentID, domain.AlertGhostAsset, domain.SeverityHigh, now,
				fmt.Sprintf("No usage detected for %d days while checked out", int(days))))
		}
	}

	for _, e := range equipment {
		last := features.LastMaintenanceDate(features.HistoryFor(e.ID, history))
		hours := features.EngineHoursSinceMaintenance(e.ID, rentals, last)
		if hours > b.Rules.MaintenanceDueHours {
			alerts = append(alerts, b.alert(e.ID, domain.AlertMaintenance, domain.SeverityMedium, now,
				fmt.Sprintf("%.0f engine hours since last service", hours)))
		}
	}
	return alerts
}

// FromAnomalies raises one alert per anomaly at or above the configured
// minimum severity. Isolation forest results never raise alerts: their scores
// rank a batch relative to its longest path, so healthy machines score high.
func (b *AlertBuilder) FromAnomalies(anomalies []domain.AnomalyResult, now time.Time) []domain.Alert {
	alerts := []domain.Alert{}
	for _, a := range anomalies {
		if a.Algorithm == anomaly.AlgorithmIsolation {
			continue
		}
		if a.Severity.Rank() < b.Rules.AnomalyMinSeverity.Rank() {
			continue
		}
		alerts = append(alerts, b.alert(a.EquipmentID, domain.AlertAnomaly, a.Severity, now, a.Description))
	}
	return alerts
}

func (b *AlertBuilder) alert(equipmentID string, kind domain.AlertType, sev domain.Severity, now time.Time, msg string) domain.Alert {
	newID := b.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return domain.Alert{
		ID:          newID(),
		Type:        kind,
		EquipmentID: equipmentID,
		Message:     msg,
		Severity:    sev,
		Timestamp:   now,
	}
}
