package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks a request the service cannot act on
	ErrInvalidInput = errors.New("invalid input")
)

// EquipmentStatus is the lifecycle state of a machine
type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentRented      EquipmentStatus = "rented"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentOverdue     EquipmentStatus = "overdue"
)

// RentalStatus is the lifecycle state of a rental
type RentalStatus string

const (
	RentalActive    RentalStatus = "active"
	RentalCompleted RentalStatus = "completed"
	RentalOverdue   RentalStatus = "overdue"
	RentalCancelled RentalStatus = "cancelled"
)

// GeoLocation is a WGS84 coordinate with an optional address
type GeoLocation struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Specifications holds the technical data of a machine
type Specifications struct {
	EngineHours     float64 `json:"engine_hours"`
	FuelCapacity    float64 `json:"fuel_capacity"`
	OperatingWeight float64 `json:"operating_weight"`
	Capacity        float64 `json:"capacity,omitempty"`
}

// Equipment is a fleet machine (reference data)
type Equipment struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Model          string          `json:"model"`
	SerialNumber   string          `json:"serial_number,omitempty"`
	Manufacturer   string          `json:"manufacturer,omitempty"`
	Year           int             `json:"year,omitempty"`
	Status         EquipmentStatus `json:"status"`
	Location       GeoLocation     `json:"location"`
	Specifications Specifications  `json:"specifications"`
	HourlyRate     float64         `json:"hourly_rate,omitempty"`
	SiteID         string          `json:"site_id,omitempty"`
}

// Site is a construction site
type Site struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Address        string      `json:"address"`
	Coordinates    GeoLocation `json:"coordinates"`
	ProjectManager string      `json:"project_manager,omitempty"`
}

// Rental tracks one check-out/check-in cycle of a machine
type Rental struct {
	ID                string       `json:"id"`
	EquipmentID       string       `json:"equipment_id"`
	OperatorID        string       `json:"operator_id"`
	SiteID            string       `json:"site_id"`
	ProjectID         string       `json:"project_id,omitempty"`
	CheckOutDate      time.Time    `json:"check_out_date"`
	CheckInDate       *time.Time   `json:"check_in_date,omitempty"`
	PlannedReturnDate time.Time    `json:"planned_return_date"`
	EngineHoursStart  float64      `json:"engine_hours_start"`
	EngineHoursEnd    *float64     `json:"engine_hours_end,omitempty"`
	FuelUsage         float64      `json:"fuel_usage"`
	OperatingDays     int          `json:"operating_days"`
	Status            RentalStatus `json:"status"`
	TotalCost         float64      `json:"total_cost,omitempty"`
	Duration          float64      `json:"duration,omitempty"`
	UtilizationRate   float64      `json:"utilization_rate,omitempty"`
}

// MaintenanceRecord is one entry of the append-only service history
type MaintenanceRecord struct {
	ID              string    `json:"id"`
	EquipmentID     string    `json:"equipment_id"`
	MaintenanceDate time.Time `json:"maintenance_date"`
	MaintenanceType string    `json:"maintenance_type,omitempty"`
	Description     string    `json:"description,omitempty"`
	Cost            float64   `json:"cost,omitempty"`
	PerformedBy     string    `json:"performed_by,omitempty"`
}

// UsageSnapshot is one machine's usage aggregate over a period
type UsageSnapshot struct {
	EquipmentID      string     `json:"equipment_id"`
	TotalHours       float64    `json:"total_hours"`
	IdleHours        float64    `json:"idle_hours"`
	FuelEfficiency   float64    `json:"fuel_efficiency"`
	UtilizationRate  float64    `json:"utilization_rate"`
	MaintenanceScore float64    `json:"maintenance_score"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
}

// Project is a job that needs equipment
type Project struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	SiteID           string    `json:"site_id"`
	StartDate        time.Time `json:"start_date"`
	Duration         float64   `json:"duration"` // days
	Budget           float64   `json:"budget"`
	RequiredCapacity float64   `json:"required_capacity"`
	Priority         int       `json:"priority"`
}

// Dataset bundles every record collection the analytics consume
type Dataset struct {
	Equipment   []Equipment         `json:"equipment"`
	Rentals     []Rental            `json:"rentals"`
	Sites       []Site              `json:"sites"`
	Projects    []Project           `json:"projects"`
	Maintenance []MaintenanceRecord `json:"maintenance"`
	Usage       []UsageSnapshot     `json:"usage"`
	Weather     []WeatherData       `json:"weather,omitempty"`
}
