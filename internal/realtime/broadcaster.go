package realtime

import (
	"github.com/dispatchgrid/backend/internal/domain"
)

// Broadcaster is a thin typed facade over Registry.Broadcast: one method per
// event category, each assembling the canonical envelope for that category.
// It holds no state and makes no filtering decisions.
type Broadcaster struct {
	registry *Registry
}

// NewBroadcaster creates a broadcaster backed by the given registry
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// VehicleUpdate announces a vehicle's new location to all clients
func (b *Broadcaster) VehicleUpdate(vehicleID string, location domain.Location) {
	b.registry.Broadcast(NewEnvelope(EventVehicleLocation, map[string]any{
		"vehicle_id": vehicleID,
		"location":   location,
	}), "")
}

// IncidentUpdate announces an incident status change. Extra fields, when
// given, are merged into the payload.
func (b *Broadcaster) IncidentUpdate(incidentID string, status domain.IncidentStatus, extra map[string]any) {
	data := map[string]any{
		"incident_id": incidentID,
		"status":      status,
	}
	for k, v := range extra {
		data[k] = v
	}
	b.registry.Broadcast(NewEnvelope(EventIncidentStatus, data), "")
}

// RouteOptimization announces a recomputed route for a vehicle
func (b *Broadcaster) RouteOptimization(incidentID, vehicleID string, route domain.RouteEstimate) {
	b.registry.Broadcast(NewEnvelope(EventRouteOptimization, map[string]any{
		"incident_id": incidentID,
		"vehicle_id":  vehicleID,
		"route":       route,
	}), "")
}

// TrafficUpdate announces a traffic condition report
func (b *Broadcaster) TrafficUpdate(condition domain.TrafficCondition) {
	b.registry.Broadcast(NewEnvelope(EventTrafficUpdate, condition), "")
}

// Notification announces a system notification
func (b *Broadcaster) Notification(n domain.Notification) {
	b.registry.Broadcast(NewEnvelope(EventNotification, n), "")
}
