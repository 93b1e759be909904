package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClientNotRegistered = errors.New("websocket: client not registered")

// WebSocketHub owns all writes to its clients. gorilla/websocket allows at
// most one concurrent writer per connection, so every write path (fan-out
// broadcasts and direct replies alike) goes through the per-client mutex.
type WebSocketHub struct {
	clients map[*websocket.Conn]*sync.Mutex
	mu      sync.Mutex
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *WebSocketHub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &sync.Mutex{}
}

func (h *WebSocketHub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *WebSocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Send writes one event to a single client, serialized against any broadcast
// in flight on the same connection.
func (h *WebSocketHub) Send(conn *websocket.Conn, event WebSocketEvent) error {
	h.mu.Lock()
	writeMu, ok := h.clients[conn]
	h.mu.Unlock()
	if !ok {
		return ErrClientNotRegistered
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(1 * time.Second))
	return conn.WriteJSON(event)
}

func (h *WebSocketHub) Broadcast(event WebSocketEvent) {
	type client struct {
		conn    *websocket.Conn
		writeMu *sync.Mutex
	}

	h.mu.Lock()
	clients := make([]client, 0, len(h.clients))
	for conn, writeMu := range h.clients {
		clients = append(clients, client{conn, writeMu})
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	var failedClients []*websocket.Conn
	var failedMu sync.Mutex

	for _, c := range clients {
		wg.Add(1)
		go func(c client) {
			defer wg.Done()

			c.writeMu.Lock()
			defer c.writeMu.Unlock()

			// Slow clients must not hold up the rest of the broadcast.
			c.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
			if err := c.conn.WriteJSON(event); err != nil {
				failedMu.Lock()
				failedClients = append(failedClients, c.conn)
				failedMu.Unlock()
			}
		}(c)
	}

	wg.Wait()

	if len(failedClients) > 0 {
		h.mu.Lock()
		for _, conn := range failedClients {
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		}
		h.mu.Unlock()
	}
}
