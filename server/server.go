package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/niks-yad/BLE-HomeKit-Bridge/bluetooth"
	"github.com/niks-yad/BLE-HomeKit-Bridge/utils"
)

// discoverWindow is how long /discover scans for nearby strips.
const discoverWindow = 5 * time.Second

// Scanner is the one-shot discovery capability behind /discover.
type Scanner interface {
	Scan(window time.Duration) ([]utils.DiscoveredDevice, error)
}

// Server is the HTTP adapter in front of the bridge core: it validates
// input, updates the desired state and enqueues encoded commands. It never
// blocks on link health.
type Server struct {
	link     *bluetooth.LinkManager
	queue    *bluetooth.CommandQueue
	encoder  *bluetooth.Encoder
	state    *utils.StateStore
	scanner  Scanner
	hub      *utils.WebSocketHub
	upgrader websocket.Upgrader
	router   *http.ServeMux
	server   *http.Server
	started  time.Time
}

func New(link *bluetooth.LinkManager, queue *bluetooth.CommandQueue, encoder *bluetooth.Encoder, state *utils.StateStore, scanner Scanner, hub *utils.WebSocketHub) *Server {
	s := &Server{
		link:    link,
		queue:   queue,
		encoder: encoder,
		state:   state,
		scanner: scanner,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		router:  http.NewServeMux(),
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/status", s.methodHandler("GET", s.handleStatus))
	s.router.HandleFunc("/hex_status", s.methodHandler("GET", s.handleHexStatus))
	s.router.HandleFunc("/health", s.methodHandler("GET", s.handleHealth))
	s.router.HandleFunc("/on", s.multiMethodHandler([]string{"GET", "POST"}, s.handleOn))
	s.router.HandleFunc("/off", s.multiMethodHandler([]string{"GET", "POST"}, s.handleOff))
	s.router.HandleFunc("/discover", s.methodHandler("GET", s.handleDiscover))
	s.router.HandleFunc("/set_device", s.methodHandler("POST", s.handleSetDevice))
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Start runs the HTTP server until Shutdown is called or the listener
// fails.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: corsMiddleware(s.router),
	}
	log.Printf("HTTP: listening on %s", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) methodHandler(method string, next http.HandlerFunc) http.HandlerFunc {
	return s.multiMethodHandler([]string{method}, next)
}

func (s *Server) multiMethodHandler(methods []string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				next(w, r)
				return
			}
		}
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("HTTP: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
