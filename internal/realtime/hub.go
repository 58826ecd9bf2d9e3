// Package realtime pushes service events to connected websocket clients.
// Clients may subscribe to individual entities (a terrain, a cache key); an
// event carrying an entity identity is delivered only to the clients
// subscribed to it, everything else is broadcast.
package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sender is the write side of a client connection. *websocket.Conn satisfies
// it; tests substitute fakes.
type Sender interface {
	WriteJSON(v interface{}) error
}

// Message is the wire format pushed to clients.
type Message struct {
	Kind      string    `json:"type"`
	EventType string    `json:"event_type,omitempty"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
}

type client struct {
	id     string
	sender Sender
	subs   map[string]struct{}

	// writeMu serializes writes to the connection; websocket connections
	// support at most one concurrent writer.
	writeMu sync.Mutex
}

func (c *client) write(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sender.WriteJSON(msg)
}

// Stats describes the hub for the operational endpoint.
type Stats struct {
	ConnectedClients   int      `json:"connected_clients"`
	TotalSubscriptions int      `json:"total_subscriptions"`
	Clients            []string `json:"clients"`
}

// Hub tracks connected clients and their entity subscriptions. All methods
// are safe for concurrent use; a failed write disconnects the client.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	log     *logrus.Entry
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     logrus.WithField("component", "realtime"),
	}
}

// Connect registers a connection and returns its client id. A welcome
// message is sent immediately so clients can learn their id.
func (h *Hub) Connect(s Sender) string {
	id := uuid.NewString()
	c := &client{id: id, sender: s, subs: make(map[string]struct{})}

	h.mu.Lock()
	h.clients[id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"client": id, "total": total}).Info("client connected")

	_ = c.write(Message{
		Kind:      "connection_established",
		Timestamp: time.Now().UTC(),
		ClientID:  id,
	})
	return id
}

// Disconnect removes a client and its subscriptions. Unknown ids are a no-op.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	_, ok := h.clients[id]
	delete(h.clients, id)
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.log.WithFields(logrus.Fields{"client": id, "remaining": total}).Info("client disconnected")
	}
}

// Subscribe adds an entity to a client's subscription set.
func (h *Hub) Subscribe(clientID, entityID string) {
	if entityID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		c.subs[entityID] = struct{}{}
	}
}

// Unsubscribe removes an entity from a client's subscription set.
func (h *Hub) Unsubscribe(clientID, entityID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		delete(c.subs, entityID)
	}
}

// Send delivers a message to a single client, serialized with any concurrent
// broadcast. Unknown ids are a no-op; a failed write disconnects the client.
func (h *Hub) Send(clientID string, msg Message) {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if err := c.write(msg); err != nil {
		h.log.WithField("client", c.id).WithError(err).Warn("write failed; dropping client")
		h.Disconnect(clientID)
	}
}

// Broadcast sends a message to every connected client. Zero clients is a
// no-op, not an error.
func (h *Hub) Broadcast(msg Message) {
	h.send(msg, func(*client) bool { return true })
}

// BroadcastScoped sends a message only to clients subscribed to entityID.
func (h *Hub) BroadcastScoped(entityID string, msg Message) {
	h.send(msg, func(c *client) bool {
		_, ok := c.subs[entityID]
		return ok
	})
}

func (h *Hub) send(msg Message, include func(*client) bool) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if include(c) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	var failed []string
	for _, c := range targets {
		if err := c.write(msg); err != nil {
			h.log.WithField("client", c.id).WithError(err).Warn("write failed; dropping client")
			failed = append(failed, c.id)
		}
	}
	for _, id := range failed {
		h.Disconnect(id)
	}
}

// Stats returns a snapshot of the hub state.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Stats{Clients: make([]string, 0, len(h.clients))}
	for id, c := range h.clients {
		s.Clients = append(s.Clients, id)
		s.TotalSubscriptions += len(c.subs)
	}
	s.ConnectedClients = len(h.clients)
	return s
}
