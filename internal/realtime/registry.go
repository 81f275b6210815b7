package realtime

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// sendBufferSize bounds how far a client may fall behind before it is
// treated as dead
const sendBufferSize = 32

// Conn is the subset of *websocket.Conn the registry writes to
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type client struct {
	id          string
	conn        Conn
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time
	subs        map[string]struct{}
}

func (c *client) signalClose() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ConnectionInfo describes one live connection for introspection
type ConnectionInfo struct {
	ClientID      string    `json:"client_id"`
	ConnectedAt   time.Time `json:"connected_at"`
	Subscriptions []string  `json:"subscriptions"`
}

// Registry owns the set of live client connections and their subscription
// state. It is the single source of truth for membership: all structural
// mutation goes through its methods, and broadcast iteration snapshots the
// membership under the read lock so that one slow client's network write
// never blocks another's.
//
// Construct one per process and inject it; tests get isolated instances.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*client)}
}

// Register accepts a connection, assigns a client id if none is given, and
// sends a connection confirmation to that client only. Returns the id.
func (r *Registry) Register(conn Conn, clientID string) string {
	if clientID == "" {
		clientID = uuid.NewString()
	}

	c := &client{
		id:          clientID,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		connectedAt: time.Now().UTC(),
		subs:        make(map[string]struct{}),
	}

	r.mu.Lock()
	prev := r.clients[clientID]
	r.clients[clientID] = c
	r.mu.Unlock()

	// a reconnect under the same id supersedes the old connection
	if prev != nil {
		prev.signalClose()
	}

	go r.writePump(c)

	log.Printf("WebSocket client %s connected", clientID)

	r.SendTo(clientID, NewEnvelope(EventConnection, map[string]any{
		"status":    "connected",
		"client_id": clientID,
	}))

	return clientID
}

// Unregister removes a connection. Idempotent; a no-op for unknown ids.
// Both the session read loop and a failed write converge here.
func (r *Registry) Unregister(clientID string) {
	r.mu.Lock()
	c, ok := r.clients[clientID]
	if ok {
		delete(r.clients, clientID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	c.signalClose()
	log.Printf("WebSocket client %s disconnected", clientID)
}

// SendTo delivers one envelope to a single client. Unknown ids are a no-op;
// a failed or saturated connection is dropped rather than reported.
func (r *Registry) SendTo(clientID string, env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to marshal %s envelope: %v", env.Type, err)
		return
	}

	r.mu.RLock()
	c, ok := r.clients[clientID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	r.push(c, msg)
}

// Broadcast delivers one envelope to every registered client except
// excludeClientID (if non-empty). Individual failures drop that client but
// never abort delivery to the rest.
func (r *Registry) Broadcast(env Envelope, excludeClientID string) {
	msg, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to marshal %s envelope: %v", env.Type, err)
		return
	}

	for _, c := range r.snapshot(excludeClientID, "") {
		r.push(c, msg)
	}
}

// BroadcastFiltered delivers one envelope to clients subscribed to category
func (r *Registry) BroadcastFiltered(env Envelope, category string) {
	msg, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to marshal %s envelope: %v", env.Type, err)
		return
	}

	for _, c := range r.snapshot("", category) {
		r.push(c, msg)
	}
}

// Subscribe adds a category tag to a client's subscription set. Empty tags
// are rejected; unknown clients are a no-op.
func (r *Registry) Subscribe(clientID, category string) {
	if category == "" {
		return
	}
	r.mu.Lock()
	if c, ok := r.clients[clientID]; ok {
		c.subs[category] = struct{}{}
	}
	r.mu.Unlock()
}

// Unsubscribe removes a category tag. Idempotent; a no-op for unknown
// clients or tags never subscribed.
func (r *Registry) Unsubscribe(clientID, category string) {
	r.mu.Lock()
	if c, ok := r.clients[clientID]; ok {
		delete(c.subs, category)
	}
	r.mu.Unlock()
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Snapshot returns introspection data for every live connection
func (r *Registry) Snapshot() []ConnectionInfo {
	r.mu.RLock()
	infos := make([]ConnectionInfo, 0, len(r.clients))
	for _, c := range r.clients {
		subs := make([]string, 0, len(c.subs))
		for tag := range c.subs {
			subs = append(subs, tag)
		}
		sort.Strings(subs)
		infos = append(infos, ConnectionInfo{
			ClientID:      c.id,
			ConnectedAt:   c.connectedAt,
			Subscriptions: subs,
		})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ClientID < infos[j].ClientID })
	return infos
}

// Close drops every connection; used during graceful shutdown
func (r *Registry) Close() {
	for _, info := range r.Snapshot() {
		r.Unregister(info.ClientID)
	}
}

// snapshot copies the current membership under the read lock so sends can
// proceed without holding it
func (r *Registry) snapshot(excludeClientID, category string) []*client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]*client, 0, len(r.clients))
	for id, c := range r.clients {
		if excludeClientID != "" && id == excludeClientID {
			continue
		}
		if category != "" {
			if _, ok := c.subs[category]; !ok {
				continue
			}
		}
		targets = append(targets, c)
	}
	return targets
}

// push hands a serialized message to the client's writer. A full buffer
// means the client has stopped draining; treat it as disconnected.
func (r *Registry) push(c *client, msg []byte) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		log.Printf("Client %s send buffer full, dropping connection", c.id)
		go r.Unregister(c.id)
	}
}

// writePump is the sole writer for one connection, preserving per-client
// delivery order. A write error is an implicit disconnect.
func (r *Registry) writePump(c *client) {
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Error sending to client %s: %v", c.id, err)
				r.Unregister(c.id)
				return
			}
		case <-c.done:
			return
		}
	}
}
