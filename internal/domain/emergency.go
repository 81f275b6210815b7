package domain

import (
	"fmt"
	"math"
	"time"
)

// EmergencyType categorizes incidents and the vehicles equipped for them
type EmergencyType string

const (
	EmergencyFire    EmergencyType = "fire"
	EmergencyMedical EmergencyType = "medical"
	EmergencyPolice  EmergencyType = "police"
	EmergencyRescue  EmergencyType = "rescue"
	EmergencyHazmat  EmergencyType = "hazmat"
	EmergencyTraffic EmergencyType = "traffic"
)

// Priority ranks incidents; critical incidents bypass vehicle type matching
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// IncidentStatus tracks an incident through its lifecycle
type IncidentStatus string

const (
	IncidentActive     IncidentStatus = "active"
	IncidentDispatched IncidentStatus = "dispatched"
	IncidentOnScene    IncidentStatus = "on_scene"
	IncidentResolved   IncidentStatus = "resolved"
	IncidentCancelled  IncidentStatus = "cancelled"
)

// VehicleStatus tracks a unit's availability
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "available"
	VehicleEnRoute     VehicleStatus = "en_route"
	VehicleOnScene     VehicleStatus = "on_scene"
	VehicleReturning   VehicleStatus = "returning"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleOffline     VehicleStatus = "offline"
)

// Coordinate is an immutable latitude/longitude pair
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate checks that both components are finite and within range
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) ||
		math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("coordinate: not finite: %v", c)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("coordinate: latitude %v out of range", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("coordinate: longitude %v out of range", c.Longitude)
	}
	return nil
}

// Location is a coordinate with human-readable context
type Location struct {
	Address    string     `json:"address"`
	Coordinate Coordinate `json:"coordinates"`
	District   string     `json:"district,omitempty"`
	Heading    float64    `json:"heading,omitempty"`
}

// CrewMember is one person assigned to a vehicle
type CrewMember struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Incident represents an emergency call being worked
type Incident struct {
	ID               string         `json:"id"`
	Type             EmergencyType  `json:"type"`
	Priority         Priority       `json:"priority"`
	Location         Location       `json:"location"`
	Description      string         `json:"description"`
	Status           IncidentStatus `json:"status"`
	AssignedVehicles []string       `json:"assigned_vehicles"`
	ReportedBy       string         `json:"reported_by"`
	EstimatedArrival string         `json:"estimated_arrival,omitempty"`
	CreatedAt        time.Time      `json:"timestamp"`
	LastUpdate       time.Time      `json:"last_update"`
}

// Vehicle represents an emergency response unit
type Vehicle struct {
	ID                string        `json:"id"`
	CallSign          string        `json:"call_sign"`
	Type              EmergencyType `json:"type"`
	Status            VehicleStatus `json:"status"`
	Location          Location      `json:"location"`
	Crew              []CrewMember  `json:"crew,omitempty"`
	CurrentIncidentID string        `json:"current_incident,omitempty"`
	ETA               string        `json:"eta,omitempty"`
	Speed             float64       `json:"speed"`
	Fuel              float64       `json:"fuel"`
	LastUpdate        time.Time     `json:"last_update"`
}

// VehicleStatusUpdate is a partial update; only non-nil fields are applied
type VehicleStatusUpdate struct {
	Status     *VehicleStatus `json:"status,omitempty"`
	Location   *Location      `json:"location,omitempty"`
	IncidentID *string        `json:"incident_id,omitempty"`
	ETA        *string        `json:"eta,omitempty"`
}

// NotificationPriority ranks notifications for display
type NotificationPriority string

const (
	NotificationHigh   NotificationPriority = "high"
	NotificationMedium NotificationPriority = "medium"
	NotificationLow    NotificationPriority = "low"
)

// Notification is a system message pushed to dispatch consoles
type Notification struct {
	ID         string               `json:"id,omitempty"`
	Type       string               `json:"type"`
	Message    string               `json:"message"`
	Priority   NotificationPriority `json:"priority"`
	IncidentID string               `json:"incident_id,omitempty"`
	VehicleID  string               `json:"vehicle_id,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// SystemStats aggregates fleet and incident counts for the dashboard
type SystemStats struct {
	TotalIncidents     int       `json:"total_incidents"`
	ActiveIncidents    int       `json:"active_incidents"`
	CriticalIncidents  int       `json:"critical_incidents"`
	TotalVehicles      int       `json:"total_vehicles"`
	AvailableVehicles  int       `json:"available_vehicles"`
	DispatchedVehicles int       `json:"dispatched_vehicles"`
	OnSceneVehicles    int       `json:"on_scene_vehicles"`
	SystemStatus       string    `json:"system_status"`
	Timestamp          time.Time `json:"timestamp"`
}
