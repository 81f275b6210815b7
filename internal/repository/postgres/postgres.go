package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dispatchgrid/backend/internal/domain"
)

// PostgresRepository implements domain.DispatchRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const incidentColumns = `
	id, type, priority, address, latitude, longitude, district,
	description, status, assigned_vehicles, reported_by,
	estimated_arrival, created_at, last_update
`

const vehicleColumns = `
	id, call_sign, type, status, address, latitude, longitude, district,
	heading, current_incident, eta, speed, fuel, last_update
`

// GetIncident retrieves a single incident from PostgreSQL
func (r *PostgresRepository) GetIncident(ctx context.Context, id string) (domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	var (
		inc              domain.Incident
		estimatedArrival *string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&inc.ID, &inc.Type, &inc.Priority, &inc.Location.Address,
		&inc.Location.Coordinate.Latitude, &inc.Location.Coordinate.Longitude,
		&inc.Location.District, &inc.Description, &inc.Status,
		&inc.AssignedVehicles, &inc.ReportedBy, &estimatedArrival,
		&inc.CreatedAt, &inc.LastUpdate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Incident{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Incident{}, fmt.Errorf("postgres: failed to get incident %s: %w", id, err)
	}
	if estimatedArrival != nil {
		inc.EstimatedArrival = *estimatedArrival
	}

	return inc, nil
}

// GetVehicle retrieves a single vehicle from PostgreSQL
func (r *PostgresRepository) GetVehicle(ctx context.Context, id string) (domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	v, err := scanVehicle(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("postgres: failed to get vehicle %s: %w", id, err)
	}
	return v, nil
}

// ListVehicles retrieves vehicles with optional status/type filtering
func (r *PostgresRepository) ListVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}

	query += " ORDER BY call_sign"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var results []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan vehicle row: %w", err)
		}
		results = append(results, v)
	}

	return results, rows.Err()
}

// VehiclesForIncident retrieves vehicles currently assigned to an incident
func (r *PostgresRepository) VehiclesForIncident(ctx context.Context, incidentID string) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE current_incident = $1 ORDER BY call_sign`

	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query incident vehicles: %w", err)
	}
	defer rows.Close()

	var results []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan vehicle row: %w", err)
		}
		results = append(results, v)
	}

	return results, rows.Err()
}

// UpdateVehicleStatus applies a partial status update; only the fields
// present in the update struct are written
func (r *PostgresRepository) UpdateVehicleStatus(ctx context.Context, id string, update domain.VehicleStatusUpdate) (domain.Vehicle, error) {
	set := "last_update = now()"
	args := []any{}

	if update.Status != nil {
		args = append(args, *update.Status)
		set += fmt.Sprintf(", status = $%d", len(args))
	}
	if update.Location != nil {
		args = append(args,
			update.Location.Address,
			update.Location.Coordinate.Latitude,
			update.Location.Coordinate.Longitude,
			update.Location.District,
			update.Location.Heading,
		)
		set += fmt.Sprintf(
			", address = $%d, latitude = $%d, longitude = $%d, district = $%d, heading = $%d",
			len(args)-4, len(args)-3, len(args)-2, len(args)-1, len(args),
		)
	}
	if update.IncidentID != nil {
		args = append(args, nullable(*update.IncidentID))
		set += fmt.Sprintf(", current_incident = $%d", len(args))
	} else if update.Status != nil && *update.Status == domain.VehicleAvailable {
		// a vehicle returning to available drops its assignment and ETA
		set += ", current_incident = NULL, eta = NULL"
	}
	if update.ETA != nil {
		args = append(args, *update.ETA)
		set += fmt.Sprintf(", eta = $%d", len(args))
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE vehicles SET %s WHERE id = $%d RETURNING "+vehicleColumns,
		set, len(args),
	)

	v, err := scanVehicle(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("postgres: failed to update vehicle %s: %w", id, err)
	}
	return v, nil
}

// CountIncidentsByStatus returns incident counts grouped by status
func (r *PostgresRepository) CountIncidentsByStatus(ctx context.Context) (map[domain.IncidentStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM incidents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to count incidents: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.IncidentStatus]int)
	for rows.Next() {
		var status domain.IncidentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan incident count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

// CountCriticalIncidents returns the number of unresolved critical incidents
func (r *PostgresRepository) CountCriticalIncidents(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM incidents WHERE priority = $1 AND status NOT IN ($2, $3)`,
		domain.PriorityCritical, domain.IncidentResolved, domain.IncidentCancelled,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to count critical incidents: %w", err)
	}
	return n, nil
}

// CountVehiclesByStatus returns vehicle counts grouped by status
func (r *PostgresRepository) CountVehiclesByStatus(ctx context.Context) (map[domain.VehicleStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM vehicles GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to count vehicles: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.VehicleStatus]int)
	for rows.Next() {
		var status domain.VehicleStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan vehicle count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// nullable maps an empty string to NULL for optional text columns
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanVehicle(row pgx.Row) (domain.Vehicle, error) {
	var (
		v               domain.Vehicle
		currentIncident *string
		eta             *string
	)
	err := row.Scan(
		&v.ID, &v.CallSign, &v.Type, &v.Status, &v.Location.Address,
		&v.Location.Coordinate.Latitude, &v.Location.Coordinate.Longitude,
		&v.Location.District, &v.Location.Heading, &currentIncident,
		&eta, &v.Speed, &v.Fuel, &v.LastUpdate,
	)
	if err != nil {
		return domain.Vehicle{}, err
	}
	if currentIncident != nil {
		v.CurrentIncidentID = *currentIncident
	}
	if eta != nil {
		v.ETA = *eta
	}
	return v, nil
}
