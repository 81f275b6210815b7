package realtime

import "time"

// Event type tags carried in the envelope's type field. The subscription set
// is an open string set; clients may subscribe to tags not listed here.
const (
	EventConnection            = "connection"
	EventPong                  = "pong"
	EventError                 = "error"
	EventSubscriptionConfirmed = "subscription_confirmed"
	EventVehicleLocation       = "vehicle_location"
	EventIncidentStatus        = "incident_status"
	EventRouteOptimization     = "route_optimization"
	EventTrafficUpdate         = "traffic_update"
	EventNotification          = "new_notification"
)

// Envelope is the canonical unit sent over a live connection. One envelope
// per transport frame; serialized exactly once per logical send.
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnvelope assembles an envelope stamped with the current time
func NewEnvelope(eventType string, data any) Envelope {
	return Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
