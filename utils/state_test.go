package utils

import (
	"sync"
	"testing"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func TestStateDefaults(t *testing.T) {
	s := NewStateStore()
	got := s.Snapshot()
	want := LightState{R: 255, G: 255, B: 255, Brightness: 100, Power: true}
	if got != want {
		t.Errorf("defaults = %+v, want %+v", got, want)
	}
}

func TestApplyMergesOnlyProvidedFields(t *testing.T) {
	s := NewStateStore()
	s.Apply(StateUpdate{R: intp(10), G: intp(20), B: intp(30), Brightness: intp(40)})

	got := s.Apply(StateUpdate{Brightness: intp(75)})
	want := LightState{R: 10, G: 20, B: 30, Brightness: 75, Power: true}
	if got != want {
		t.Errorf("after partial update = %+v, want %+v", got, want)
	}
}

func TestApplyClamps(t *testing.T) {
	s := NewStateStore()
	got := s.Apply(StateUpdate{
		R:          intp(300),
		G:          intp(-5),
		B:          intp(128),
		Brightness: intp(150),
	})
	if got.R != 255 || got.G != 0 || got.B != 128 || got.Brightness != 100 {
		t.Errorf("clamped state = %+v", got)
	}
}

func TestApplyPowerOff(t *testing.T) {
	s := NewStateStore()
	got := s.Apply(StateUpdate{Power: boolp(false)})
	if got.Power {
		t.Error("power still on")
	}
	// Color is retained while off.
	if got.R != 255 || got.Brightness != 100 {
		t.Errorf("off cleared other fields: %+v", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStateStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(v int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Apply(StateUpdate{R: intp(v), G: intp(v), B: intp(v)})
			}
		}(i * 30)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				st := s.Snapshot()
				if st.R != st.G || st.G != st.B {
					t.Error("torn read: channels differ")
					return
				}
			}
		}()
	}
	wg.Wait()
}
