package ws

import (
	"encoding/json"
	"sync"
	"time"
)

// Client represents a single WebSocket connection with user context.
type Client struct {
	UserID uint
	Role   string
	Send   chan []byte
	Hub    *Hub // set so Close() can unregister
	mu     sync.Mutex
	closed bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

// Event is the envelope written to feed subscribers.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// Hub maintains the set of active clients and broadcasts to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	// role -> clients
	byRole map[string]map[*Client]struct{}
	role   string // role that receives published events
}

// NewHub returns a hub whose Publish fans out to clients holding role.
func NewHub(role string) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byRole:  make(map[string]map[*Client]struct{}),
		role:    role,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	h.clients[c] = struct{}{}
	if h.byRole[c.Role] == nil {
		h.byRole[c.Role] = make(map[*Client]struct{})
	}
	h.byRole[c.Role][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.byRole[c.Role]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byRole, c.Role)
		}
	}
}

// Publish implements service.EventPublisher. Slow clients drop messages
// instead of blocking the ledger.
func (h *Hub) Publish(eventType string, payload any) {
	h.BroadcastToRole(h.role, Event{Type: eventType, At: time.Now().UTC(), Data: payload})
}

func (h *Hub) BroadcastToRole(role string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	m := h.byRole[role]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.trySend(data)
	}
}

func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
