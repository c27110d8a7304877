// Package realtime streams live fleet updates to WebSocket subscribers.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Update kinds pushed to subscribers.
const (
	UpdateDriverLocation = "driver_location"
	UpdateRideStatus     = "ride_status"
)

// Update is one message on the live feed.
type Update struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hub manages WebSocket subscribers and fans updates out to them. Slow or
// broken connections are dropped rather than allowed to stall the feed.
type Hub struct {
	connections map[*websocket.Conn]struct{}
	Register    chan *websocket.Conn
	Unregister  chan *websocket.Conn
	broadcast   chan []byte
	done        chan struct{}
	logger      *slog.Logger
	mu          sync.Mutex
}

// NewHub constructs a Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections: make(map[*websocket.Conn]struct{}),
		Register:    make(chan *websocket.Conn),
		Unregister:  make(chan *websocket.Conn),
		broadcast:   make(chan []byte, 64),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Publish marshals an update and queues it for all subscribers. Marshal
// failures are logged and dropped; the feed is best-effort.
func (h *Hub) Publish(kind string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal realtime payload",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return
	}
	msg, err := json.Marshal(Update{Kind: kind, Timestamp: time.Now().UTC(), Payload: raw})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("realtime broadcast queue full, dropping update",
			slog.String("kind", kind))
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// Run processes register/unregister/broadcast events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.mu.Lock()
			h.connections[conn] = struct{}{}
			h.mu.Unlock()
		case conn := <-h.Unregister:
			h.mu.Lock()
			delete(h.connections, conn)
			h.mu.Unlock()
			conn.Close()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.connections {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.connections, conn)
				}
			}
			h.mu.Unlock()
		case <-h.done:
			h.mu.Lock()
			for conn := range h.connections {
				conn.Close()
				delete(h.connections, conn)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down and closes all subscriber connections.
func (h *Hub) Stop() {
	close(h.done)
}
