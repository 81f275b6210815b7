package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/dispatchgrid/backend/internal/domain"
)

// MockRepository implements domain.DispatchRepository in memory for
// testing/demo mode, seeded with a small midtown Manhattan scenario
type MockRepository struct {
	mu        sync.RWMutex
	incidents map[string]domain.Incident
	vehicles  map[string]domain.Vehicle
}

// NewMockRepository creates a seeded in-memory repository
func NewMockRepository() *MockRepository {
	now := time.Now().UTC()

	r := &MockRepository{
		incidents: make(map[string]domain.Incident),
		vehicles:  make(map[string]domain.Vehicle),
	}

	seedIncidents := []domain.Incident{
		{
			ID:       "INC-001",
			Type:     domain.EmergencyFire,
			Priority: domain.PriorityCritical,
			Location: domain.Location{
				Address:    "350 W 46th St",
				Coordinate: domain.Coordinate{Latitude: 40.7589, Longitude: -73.9851},
				District:   "Midtown Manhattan",
			},
			Description:      "Structure fire, smoke visible from street",
			Status:           domain.IncidentDispatched,
			AssignedVehicles: []string{"V-001"},
			ReportedBy:       "911 Call",
			CreatedAt:        now.Add(-12 * time.Minute),
			LastUpdate:       now,
		},
		{
			ID:       "INC-002",
			Type:     domain.EmergencyMedical,
			Priority: domain.PriorityHigh,
			Location: domain.Location{
				Address:    "20 W 34th St",
				Coordinate: domain.Coordinate{Latitude: 40.7484, Longitude: -73.9857},
				District:   "Midtown South",
			},
			Description:      "Cardiac arrest, CPR in progress",
			Status:           domain.IncidentActive,
			AssignedVehicles: []string{},
			ReportedBy:       "911 Call",
			CreatedAt:        now.Add(-3 * time.Minute),
			LastUpdate:       now,
		},
	}

	seedVehicles := []domain.Vehicle{
		{
			ID:       "V-001",
			CallSign: "Engine 54",
			Type:     domain.EmergencyFire,
			Status:   domain.VehicleEnRoute,
			Location: domain.Location{
				Address:    "782 8th Ave",
				Coordinate: domain.Coordinate{Latitude: 40.7614, Longitude: -73.9776},
				District:   "Midtown",
			},
			CurrentIncidentID: "INC-001",
			Speed:             38,
			Fuel:              82,
			LastUpdate:        now,
		},
		{
			ID:       "V-002",
			CallSign: "Ambulance 15",
			Type:     domain.EmergencyMedical,
			Status:   domain.VehicleAvailable,
			Location: domain.Location{
				Address:    "W 31st St Station",
				Coordinate: domain.Coordinate{Latitude: 40.7505, Longitude: -73.9934},
				District:   "Midtown",
			},
			Speed:      0,
			Fuel:       100,
			LastUpdate: now,
		},
		{
			ID:       "V-003",
			CallSign: "Ladder 4",
			Type:     domain.EmergencyFire,
			Status:   domain.VehicleAvailable,
			Location: domain.Location{
				Address:    "788 8th Ave",
				Coordinate: domain.Coordinate{Latitude: 40.7598, Longitude: -73.9889},
				District:   "Midtown",
			},
			Speed:      0,
			Fuel:       95,
			LastUpdate: now,
		},
	}

	for _, inc := range seedIncidents {
		r.incidents[inc.ID] = inc
	}
	for _, v := range seedVehicles {
		r.vehicles[v.ID] = v
	}

	return r
}

// GetIncident retrieves a seeded incident
func (r *MockRepository) GetIncident(ctx context.Context, id string) (domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inc, ok := r.incidents[id]
	if !ok {
		return domain.Incident{}, domain.ErrNotFound
	}
	return inc, nil
}

// GetVehicle retrieves a seeded vehicle
func (r *MockRepository) GetVehicle(ctx context.Context, id string) (domain.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[id]
	if !ok {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return v, nil
}

// ListVehicles retrieves vehicles matching the filter
func (r *MockRepository) ListVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var results []domain.Vehicle
	for _, v := range r.vehicles {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		if filter.Type != "" && v.Type != filter.Type {
			continue
		}
		results = append(results, v)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// VehiclesForIncident retrieves vehicles assigned to an incident
func (r *MockRepository) VehiclesForIncident(ctx context.Context, incidentID string) ([]domain.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []domain.Vehicle
	for _, v := range r.vehicles {
		if v.CurrentIncidentID == incidentID {
			results = append(results, v)
		}
	}
	return results, nil
}

// UpdateVehicleStatus applies a partial update to a seeded vehicle
func (r *MockRepository) UpdateVehicleStatus(ctx context.Context, id string, update domain.VehicleStatusUpdate) (domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vehicles[id]
	if !ok {
		return domain.Vehicle{}, domain.ErrNotFound
	}

	if update.Status != nil {
		v.Status = *update.Status
	}
	if update.Location != nil {
		v.Location = *update.Location
	}
	if update.IncidentID != nil {
		v.CurrentIncidentID = *update.IncidentID
	} else if update.Status != nil && *update.Status == domain.VehicleAvailable {
		v.CurrentIncidentID = ""
		v.ETA = ""
	}
	if update.ETA != nil {
		v.ETA = *update.ETA
	}
	v.LastUpdate = time.Now().UTC()

	r.vehicles[id] = v
	return v, nil
}

// CountIncidentsByStatus returns incident counts keyed by status
func (r *MockRepository) CountIncidentsByStatus(ctx context.Context) (map[domain.IncidentStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.IncidentStatus]int)
	for _, inc := range r.incidents {
		counts[inc.Status]++
	}
	return counts, nil
}

// CountCriticalIncidents returns the number of unresolved critical incidents
func (r *MockRepository) CountCriticalIncidents(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, inc := range r.incidents {
		if inc.Priority != domain.PriorityCritical {
			continue
		}
		if inc.Status == domain.IncidentResolved || inc.Status == domain.IncidentCancelled {
			continue
		}
		n++
	}
	return n, nil
}

// CountVehiclesByStatus returns vehicle counts keyed by status
func (r *MockRepository) CountVehiclesByStatus(ctx context.Context) (map[domain.VehicleStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.VehicleStatus]int)
	for _, v := range r.vehicles {
		counts[v.Status]++
	}
	return counts, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
