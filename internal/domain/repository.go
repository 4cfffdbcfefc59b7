package domain

import (
	"context"
)

// FleetRepository defines the record source the analytics read from.
// The domain defines the interface; storage adapters implement it.
type FleetRepository interface {
	// ListEquipment returns every machine in the fleet
	ListEquipment(ctx context.Context) ([]Equipment, error)

	// GetEquipment returns one machine or ErrNotFound
	GetEquipment(ctx context.Context, id string) (Equipment, error)

	// ListRentals returns the rental history
	ListRentals(ctx context.Context) ([]Rental, error)

	// ListSites returns all construction sites
	ListSites(ctx context.Context) ([]Site, error)

	// ListProjects returns all projects
	ListProjects(ctx context.Context) ([]Project, error)

	// GetProject returns one project or ErrNotFound
	GetProject(ctx context.Context, id string) (Project, error)

	// ListMaintenance returns the maintenance history, oldest first
	ListMaintenance(ctx context.Context) ([]MaintenanceRecord, error)

	// ListUsageSnapshots returns usage aggregates
	ListUsageSnapshots(ctx context.Context) ([]UsageSnapshot, error)

	// SaveAnomalies persists a detection run
	SaveAnomalies(ctx context.Context, results []AnomalyResult) error

	// Health checks storage connectivity
	Health(ctx context.Context) error
}
