package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/niks-yad/BLE-HomeKit-Bridge/bluetooth"
	"github.com/niks-yad/BLE-HomeKit-Bridge/utils"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status     string `json:"status"`
	Power      bool   `json:"power"`
	R          int    `json:"r"`
	G          int    `json:"g"`
	B          int    `json:"b"`
	Brightness int    `json:"brightness"`
	DeviceMAC  string `json:"device_mac"`
	Connected  bool   `json:"is_connected"`
}

type OnResponse struct {
	Status     string `json:"status"`
	R          int    `json:"r"`
	G          int    `json:"g"`
	B          int    `json:"b"`
	Brightness int    `json:"brightness"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	QueueDepth    int    `json:"queue_depth"`
	Connected     bool   `json:"is_connected"`
	WSClients     int    `json:"ws_clients"`
}

type DiscoverResponse struct {
	Devices []utils.DiscoveredDevice `json:"devices"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.state.Snapshot()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:     "ok",
		Power:      st.Power,
		R:          st.R,
		G:          st.G,
		B:          st.B,
		Brightness: st.Brightness,
		DeviceMAC:  s.link.Target(),
		Connected:  s.link.IsConnected(),
	})
}

// handleHexStatus reports the current color as a bare rrggbb string, the
// shape the Homebridge plugin polls for. Off reads as black.
func (s *Server) handleHexStatus(w http.ResponseWriter, r *http.Request) {
	st := s.state.Snapshot()
	w.Header().Set("Content-Type", "text/plain")
	if !st.Power {
		io.WriteString(w, "000000")
		return
	}
	fmt.Fprintf(w, "%02x%02x%02x", st.R, st.G, st.B)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		QueueDepth:    s.queue.Len(),
		Connected:     s.link.IsConnected(),
		WSClients:     s.hub.ClientCount(),
	})
}

// handleOn turns the strip on, optionally changing color (hex, rgb or
// hue/sat form, in that order of precedence) and brightness. Inputs are
// clamped here; the encoder downstream accepts raw bytes.
func (s *Server) handleOn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	power := true
	update := utils.StateUpdate{Power: &power}

	if v := q.Get("brightness"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid brightness")
			return
		}
		update.Brightness = &n
	}

	switch {
	case q.Get("hex") != "":
		hexVal := strings.TrimPrefix(q.Get("hex"), "#")
		c, err := colorful.Hex("#" + hexVal)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid hex color")
			return
		}
		cr, cg, cb := c.RGB255()
		red, green, blue := int(cr), int(cg), int(cb)
		update.R, update.G, update.B = &red, &green, &blue

	case q.Get("r") != "" || q.Get("g") != "" || q.Get("b") != "":
		red, err1 := strconv.Atoi(q.Get("r"))
		green, err2 := strconv.Atoi(q.Get("g"))
		blue, err3 := strconv.Atoi(q.Get("b"))
		if err1 != nil || err2 != nil || err3 != nil {
			writeError(w, http.StatusBadRequest, "r, g and b must all be integers")
			return
		}
		update.R, update.G, update.B = &red, &green, &blue

	case q.Get("hue") != "" && q.Get("sat") != "":
		hue, err1 := strconv.ParseFloat(q.Get("hue"), 64)
		sat, err2 := strconv.ParseFloat(q.Get("sat"), 64)
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "invalid hue or sat")
			return
		}
		// Value tracks the brightness being committed so a hue change at
		// 30% stays dim.
		value := s.state.Snapshot().Brightness
		if update.Brightness != nil {
			value = clampInt(*update.Brightness, 0, 100)
		}
		c := colorful.Hsv(hue, sat/100, float64(value)/100)
		cr, cg, cb := c.RGB255()
		red, green, blue := int(cr), int(cg), int(cb)
		update.R, update.G, update.B = &red, &green, &blue
	}

	committed := s.state.Apply(update)
	cmd := s.encoder.EncodeColor(
		byte(committed.R),
		byte(committed.G),
		byte(committed.B),
		byte(committed.Brightness),
		bluetooth.DefaultSpeed,
	)
	s.queue.Enqueue(cmd)
	s.hub.Broadcast(utils.WebSocketEvent{Type: "light/state", Payload: committed})

	writeJSON(w, http.StatusOK, OnResponse{
		Status:     "success",
		R:          committed.R,
		G:          committed.G,
		B:          committed.B,
		Brightness: committed.Brightness,
	})
}

func (s *Server) handleOff(w http.ResponseWriter, r *http.Request) {
	power := false
	committed := s.state.Apply(utils.StateUpdate{Power: &power})

	s.queue.Enqueue(s.encoder.EncodeOff(0, bluetooth.DefaultSpeed))
	s.hub.Broadcast(utils.WebSocketEvent{Type: "light/state", Payload: committed})

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	devices, err := s.scanner.Scan(discoverWindow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if devices == nil {
		devices = []utils.DiscoveredDevice{}
	}
	s.hub.Broadcast(utils.WebSocketEvent{Type: "bluetooth/discovery", Payload: devices})
	writeJSON(w, http.StatusOK, DiscoverResponse{Devices: devices})
}

func (s *Server) handleSetDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MAC string `json:"mac"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MAC == "" {
		writeError(w, http.StatusBadRequest, "MAC address required")
		return
	}
	mac := strings.ToUpper(req.MAC)
	s.link.SetTarget(mac)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "mac": mac})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("HTTP: websocket upgrade: %v", err)
		return
	}
	s.hub.AddClient(conn)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
