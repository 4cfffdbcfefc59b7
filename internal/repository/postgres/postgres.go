package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/backend/internal/domain"
)

// PostgresRepository implements domain.FleetRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const equipmentColumns = `
	id, type, model, serial_number, manufacturer, year, status,
	lat, lng, address, engine_hours, fuel_capacity, operating_weight, capacity,
	hourly_rate, COALESCE(site_id, '')`

func scanEquipment(row pgx.Row) (domain.Equipment, error) {
	var e domain.Equipment
	err := row.Scan(
		&e.ID, &e.Type, &e.Model, &e.SerialNumber, &e.Manufacturer, &e.Year, &e.Status,
		&e.Location.Lat, &e.Location.Lng, &e.Location.Address,
		&e.Specifications.EngineHours, &e.Specifications.FuelCapacity,
		&e.Specifications.OperatingWeight, &e.Specifications.Capacity,
		&e.HourlyRate, &e.SiteID,
	)
	return e, err
}

// ListEquipment retrieves the fleet
func (r *PostgresRepository) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+equipmentColumns+` FROM equipment ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query equipment: %w", err)
	}
	defer rows.Close()

	var results []domain.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan equipment row: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read equipment: %w", err)
	}
	return results, nil
}

// GetEquipment retrieves one machine
func (r *PostgresRepository) GetEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id)
	e, err := scanEquipment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Equipment{}, fmt.Errorf("postgres: equipment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Equipment{}, fmt.Errorf("postgres: failed to get equipment: %w", err)
	}
	return e, nil
}

// ListRentals retrieves the rental history
func (r *PostgresRepository) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	query := `
		SELECT id, equipment_id, operator_id, site_id, project_id,
			   check_out_date, check_in_date, planned_return_date,
			   engine_hours_start, engine_hours_end, fuel_usage, operating_days,
			   status, total_cost, duration_days, utilization_rate
		FROM rentals
		ORDER BY check_out_date
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query rentals: %w", err)
	}
	defer rows.Close()

	var results []domain.Rental
	for rows.Next() {
		var rt domain.Rental
		err := rows.Scan(
			&rt.ID, &rt.EquipmentID, &rt.OperatorID, &rt.SiteID, &rt.ProjectID,
			&rt.CheckOutDate, &rt.CheckInDate, &rt.PlannedReturnDate,
			&rt.EngineHoursStart, &rt.EngineHoursEnd, &rt.FuelUsage, &rt.OperatingDays,
			&rt.Status, &rt.TotalCost, &rt.Duration, &rt.UtilizationRate,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan rental row: %w", err)
		}
		results = append(results, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read rentals: %w", err)
	}
	return results, nil
}

// ListSites retrieves all construction sites
func (r *PostgresRepository) ListSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, address, lat, lng, project_manager FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query sites: %w", err)
	}
	defer rows.Close()

	var results []domain.Site
	for rows.Next() {
		var s domain.Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.Coordinates.Lat, &s.Coordinates.Lng, &s.ProjectManager); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan site row: %w", err)
		}
		s.Coordinates.Address = s.Address
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read sites: %w", err)
	}
	return results, nil
}

const projectColumns = `
	id, name, type, COALESCE(site_id, ''), start_date, duration_days,
	budget, required_capacity, priority`

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.SiteID, &p.StartDate, &p.Duration, &p.Budget, &p.RequiredCapacity, &p.Priority)
	return p, err
}

// ListProjects retrieves all projects
func (r *PostgresRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query projects: %w", err)
	}
	defer rows.Close()

	var results []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan project row: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read projects: %w", err)
	}
	return results, nil
}

// GetProject retrieves one project
func (r *PostgresRepository) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, fmt.Errorf("postgres: project %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("postgres: failed to get project: %w", err)
	}
	return p, nil
}

// ListMaintenance retrieves the maintenance history, oldest first
func (r *PostgresRepository) ListMaintenance(ctx context.Context) ([]domain.MaintenanceRecord, error) {
	query := `
		SELECT id, equipment_id, maintenance_date, maintenance_type,
			   description, cost, performed_by
		FROM maintenance_records
		ORDER BY maintenance_date, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query maintenance records: %w", err)
	}
	defer rows.Close()

	var results []domain.MaintenanceRecord
	for rows.Next() {
		var m domain.MaintenanceRecord
		err := rows.Scan(&m.ID, &m.EquipmentID, &m.MaintenanceDate, &m.MaintenanceType, &m.Description, &m.Cost, &m.PerformedBy)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan maintenance row: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read maintenance records: %w", err)
	}
	return results, nil
}

// ListUsageSnapshots retrieves stored usage aggregates
func (r *PostgresRepository) ListUsageSnapshots(ctx context.Context) ([]domain.UsageSnapshot, error) {
	query := `
		SELECT equipment_id, total_hours, idle_hours, fuel_efficiency,
			   utilization_rate, maintenance_score, recorded_at
		FROM usage_snapshots
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query usage snapshots: %w", err)
	}
	defer rows.Close()

	var results []domain.UsageSnapshot
	for rows.Next() {
		var u domain.UsageSnapshot
		err := rows.Scan(&u.EquipmentID, &u.TotalHours, &u.IdleHours, &u.FuelEfficiency, &u.UtilizationRate, &u.MaintenanceScore, &u.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan usage row: %w", err)
		}
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read usage snapshots: %w", err)
	}
	return results, nil
}

// SaveAnomalies persists one detection run in a single batch
func (r *PostgresRepository) SaveAnomalies(ctx context.Context, results []domain.AnomalyResult) error {
	if len(results) == 0 {
		return nil
	}
	query := `
		INSERT INTO anomaly_detections (
			equipment_id, anomaly_type, severity, score, description, algorithm, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, a := range results {
		batch.Queue(query, a.EquipmentID, a.AnomalyType, a.Severity, a.Score, a.Description, a.Algorithm, a.Confidence)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: failed to save anomalies: %w", err)
	}
	return nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
