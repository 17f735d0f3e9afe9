package utils

import "sync"

// LightState is a consistent snapshot of the intended strip state. It
// records what the strip should look like, independent of whether the last
// command actually reached the device.
type LightState struct {
	R          int  `json:"r"`
	G          int  `json:"g"`
	B          int  `json:"b"`
	Brightness int  `json:"brightness"`
	Power      bool `json:"power"`
}

// StateUpdate carries a partial update. Nil fields keep their previous
// value.
type StateUpdate struct {
	R          *int
	G          *int
	B          *int
	Brightness *int
	Power      *bool
}

// StateStore holds the last intended light state. Writers are serialized;
// readers never observe a half-written combination of fields.
type StateStore struct {
	mu    sync.Mutex
	state LightState
}

func NewStateStore() *StateStore {
	return &StateStore{
		state: LightState{R: 255, G: 255, B: 255, Brightness: 100, Power: true},
	}
}

// Apply merges the provided fields into the stored state, clamping color
// channels to 0-255 and brightness to 0-100, and returns the committed
// state.
func (s *StateStore) Apply(u StateUpdate) LightState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.R != nil {
		s.state.R = clamp(*u.R, 0, 255)
	}
	if u.G != nil {
		s.state.G = clamp(*u.G, 0, 255)
	}
	if u.B != nil {
		s.state.B = clamp(*u.B, 0, 255)
	}
	if u.Brightness != nil {
		s.state.Brightness = clamp(*u.Brightness, 0, 100)
	}
	if u.Power != nil {
		s.state.Power = *u.Power
	}
	return s.state
}

// Snapshot returns a copy of the current state.
func (s *StateStore) Snapshot() LightState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
