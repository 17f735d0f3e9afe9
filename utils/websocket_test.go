package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewWebSocketHub()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.AddClient(conn)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	// The upgrade handler runs on the server goroutine; wait for
	// registration.
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", hub.ClientCount())
	}

	hub.Broadcast(WebSocketEvent{Type: "light/state", Payload: map[string]int{"r": 255}})

	client.SetReadDeadline(time.Now().Add(time.Second))
	var event WebSocketEvent
	if err := client.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.Type != "light/state" {
		t.Errorf("event type = %q, want light/state", event.Type)
	}
}

func TestHubDropsDeadClients(t *testing.T) {
	hub := NewWebSocketHub()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddClient(conn)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	client.Close()

	// The first broadcast after the close may still land in OS buffers;
	// repeated broadcasts must eventually detect the dead peer.
	deadline = time.Now().Add(time.Second)
	for hub.ClientCount() > 0 && time.Now().Before(deadline) {
		hub.Broadcast(WebSocketEvent{Type: "ping"})
		time.Sleep(10 * time.Millisecond)
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("client count = %d after close, want 0", n)
	}
}
