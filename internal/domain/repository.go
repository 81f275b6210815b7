package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a referenced incident or vehicle does not exist
var ErrNotFound = errors.New("not found")

// VehicleFilter narrows ListVehicles; zero values mean no filtering
type VehicleFilter struct {
	Status VehicleStatus
	Type   EmergencyType
	Limit  int
}

// DispatchRepository defines the persistence interface consumed by the
// realtime core. This follows the Dependency Inversion Principle - domain
// defines the interface
type DispatchRepository interface {
	// GetIncident retrieves a single incident by id
	GetIncident(ctx context.Context, id string) (Incident, error)

	// GetVehicle retrieves a single vehicle by id
	GetVehicle(ctx context.Context, id string) (Vehicle, error)

	// ListVehicles retrieves vehicles matching the filter
	ListVehicles(ctx context.Context, filter VehicleFilter) ([]Vehicle, error)

	// VehiclesForIncident retrieves vehicles assigned to an incident
	VehiclesForIncident(ctx context.Context, incidentID string) ([]Vehicle, error)

	// UpdateVehicleStatus applies a partial status update and returns the
	// updated vehicle
	UpdateVehicleStatus(ctx context.Context, id string, update VehicleStatusUpdate) (Vehicle, error)

	// CountIncidentsByStatus returns incident counts keyed by status
	CountIncidentsByStatus(ctx context.Context) (map[IncidentStatus]int, error)

	// CountCriticalIncidents returns the number of unresolved critical
	// incidents
	CountCriticalIncidents(ctx context.Context) (int, error)

	// CountVehiclesByStatus returns vehicle counts keyed by status
	CountVehiclesByStatus(ctx context.Context) (map[VehicleStatus]int, error)

	// Health checks database connectivity
	Health(ctx context.Context) error
}
