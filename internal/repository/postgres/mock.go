package postgres

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fleetops/backend/internal/domain"
)

// MockRepository implements domain.FleetRepository over an in-memory dataset
// for demo mode, tests and the batch report
type MockRepository struct {
	mu        sync.RWMutex
	data      domain.Dataset
	anomalies []domain.AnomalyResult
}

// NewMockRepository creates a repository holding the demo fleet
func NewMockRepository() *MockRepository {
	return NewDatasetRepository(SeedDataset(time.Now()))
}

// NewDatasetRepository serves a caller-supplied dataset
func NewDatasetRepository(ds domain.Dataset) *MockRepository {
	return &MockRepository{data: ds}
}

// ListEquipment returns the fleet
func (r *MockRepository) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Equipment(nil), r.data.Equipment...), nil
}

// GetEquipment returns one machine or domain.ErrNotFound
func (r *MockRepository) GetEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.data.Equipment {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.Equipment{}, fmt.Errorf("mock: equipment %s: %w", id, domain.ErrNotFound)
}

// ListRentals returns the rental history
func (r *MockRepository) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Rental(nil), r.data.Rentals...), nil
}

// ListSites returns all sites
func (r *MockRepository) ListSites(ctx context.Context) ([]domain.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Site(nil), r.data.Sites...), nil
}

// ListProjects returns all projects
func (r *MockRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Project(nil), r.data.Projects...), nil
}

// GetProject returns one project or domain.ErrNotFound
func (r *MockRepository) GetProject(ctx context.Context, id string) (domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.data.Projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, fmt.Errorf("mock: project %s: %w", id, domain.ErrNotFound)
}

// ListMaintenance returns the maintenance history, oldest first
func (r *MockRepository) ListMaintenance(ctx context.Context) ([]domain.MaintenanceRecord, error) {
	r.mu.RLock()
	out := append([]domain.MaintenanceRecord(nil), r.data.Maintenance...)
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].MaintenanceDate.Before(out[j].MaintenanceDate) })
	return out, nil
}

// ListUsageSnapshots returns the stored usage aggregates
func (r *MockRepository) ListUsageSnapshots(ctx context.Context) ([]domain.UsageSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.UsageSnapshot(nil), r.data.Usage...), nil
}

// SaveAnomalies keeps the detection run in memory
func (r *MockRepository) SaveAnomalies(ctx context.Context, results []domain.AnomalyResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies = append(r.anomalies, results...)
	return nil
}

// SavedAnomalies returns everything passed to SaveAnomalies so far
func (r *MockRepository) SavedAnomalies() []domain.AnomalyResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.AnomalyResult(nil), r.anomalies...)
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
