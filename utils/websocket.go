package utils

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a slow client can stall a broadcast.
const writeWait = 100 * time.Millisecond

// WebSocketHub fans bridge events out to connected /ws clients.
type WebSocketHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients: make(map[*websocket.Conn]bool),
	}
}

func (h *WebSocketHub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *WebSocketHub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends event to every connected client. Clients that fail the
// write are dropped from the hub.
func (h *WebSocketHub) Broadcast(event WebSocketEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	var dead []*websocket.Conn
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(event); err != nil {
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		h.RemoveClient(conn)
	}
	if len(dead) > 0 {
		log.Printf("WS: dropped %d dead client(s)", len(dead))
	}
}
