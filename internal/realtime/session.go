package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/dispatchgrid/backend/internal/domain"
)

// lookupTimeout bounds repository calls made on behalf of a client
const lookupTimeout = 5 * time.Second

// VehicleLocator is the external state a session may query on a client's
// behalf
type VehicleLocator interface {
	GetVehicle(ctx context.Context, id string) (domain.Vehicle, error)
}

// controlMessage is the inbound client protocol. Unknown types are ignored
// for forward compatibility.
type controlMessage struct {
	Type       string   `json:"type"`
	Events     []string `json:"events"`
	UpdateType string   `json:"update_type"`
	VehicleID  string   `json:"vehicle_id"`
}

// Session drives the per-connection protocol: register, handle inbound
// control messages until the channel closes or errors, unregister. One
// session per connection; many run concurrently.
type Session struct {
	registry *Registry
	vehicles VehicleLocator
}

// NewSession creates a session handler bound to a registry and the vehicle
// lookup collaborator
func NewSession(registry *Registry, vehicles VehicleLocator) *Session {
	return &Session{registry: registry, vehicles: vehicles}
}

// Run blocks for the lifetime of the connection. The client may pin its own
// id via the client_id query parameter; otherwise one is generated.
func (s *Session) Run(conn *websocket.Conn) {
	clientID := s.registry.Register(conn, conn.Query("client_id"))
	defer s.registry.Unregister(clientID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			// covers both clean closes and broken connections
			log.Printf("WebSocket read ended for client %s: %v", clientID, err)
			return
		}
		s.handle(clientID, raw)
	}
}

// handle processes one inbound message. A malformed message is answered
// with an error envelope; the connection stays open.
func (s *Session) handle(clientID string, raw []byte) {
	var msg controlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.registry.SendTo(clientID, NewEnvelope(EventError, map[string]any{
			"message": "Invalid JSON format",
		}))
		return
	}

	switch msg.Type {
	case "subscribe":
		for _, tag := range msg.Events {
			s.registry.Subscribe(clientID, tag)
		}
		s.registry.SendTo(clientID, NewEnvelope(EventSubscriptionConfirmed, map[string]any{
			"events": msg.Events,
		}))

	case "unsubscribe":
		for _, tag := range msg.Events {
			s.registry.Unsubscribe(clientID, tag)
		}

	case "ping":
		s.registry.SendTo(clientID, NewEnvelope(EventPong, nil))

	case "request_update":
		s.handleUpdateRequest(clientID, msg)

	default:
		// unknown types are ignored
	}
}

func (s *Session) handleUpdateRequest(clientID string, msg controlMessage) {
	switch msg.UpdateType {
	case "vehicle_location":
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()

		vehicle, err := s.vehicles.GetVehicle(ctx, msg.VehicleID)
		if err != nil {
			s.registry.SendTo(clientID, NewEnvelope(EventError, map[string]any{
				"message": "Unknown vehicle " + msg.VehicleID,
			}))
			return
		}

		s.registry.SendTo(clientID, NewEnvelope(EventVehicleLocation, map[string]any{
			"vehicle_id": vehicle.ID,
			"location":   vehicle.Location,
		}))

	default:
		// unsupported update types are ignored
	}
}
