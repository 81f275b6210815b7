package domain

import "time"

// TrafficLevel classifies congestion along a route
type TrafficLevel string

const (
	TrafficLight    TrafficLevel = "light"
	TrafficModerate TrafficLevel = "moderate"
	TrafficHeavy    TrafficLevel = "heavy"
)

// RouteAlternative is one comparative routing option, produced fresh per
// estimate and never mutated in place
type RouteAlternative struct {
	Name            string       `json:"name"`
	DistanceMeters  float64      `json:"distance"`
	DurationSeconds int          `json:"duration"`
	Traffic         TrafficLevel `json:"traffic"`
}

// RouteEstimate is the computed route for one vehicle to one incident.
// Waypoints always start at the vehicle's coordinate and end at the
// incident's coordinate.
type RouteEstimate struct {
	VehicleID       string             `json:"vehicle_id"`
	Waypoints       []Coordinate       `json:"route"`
	DistanceMeters  float64            `json:"distance"`
	DurationSeconds int                `json:"duration"`
	Traffic         TrafficLevel       `json:"traffic"`
	Alternatives    []RouteAlternative `json:"alternatives"`
}

// OptimizationEvent records one batch of route recalculations
type OptimizationEvent struct {
	Timestamp             time.Time `json:"timestamp"`
	Action                string    `json:"action"`
	VehiclesAffected      int       `json:"vehicles_affected"`
	EstimatedSecondsSaved int       `json:"estimated_time_saved"`
}

// RouteOptimizationResult maps each responding vehicle to its route,
// with an append-only optimization history
type RouteOptimizationResult struct {
	IncidentID    string                   `json:"incident_id"`
	VehicleRoutes map[string]RouteEstimate `json:"vehicle_routes"`
	History       []OptimizationEvent      `json:"optimization_history"`
}

// TrafficCondition is a simulated traffic report for a named area
type TrafficCondition struct {
	Area                  string    `json:"area"`
	Severity              string    `json:"severity"`
	Description           string    `json:"description"`
	EstimatedDelayMinutes int       `json:"estimated_delay"`
	Timestamp             time.Time `json:"timestamp"`
}
