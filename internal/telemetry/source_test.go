package telemetry

import (
	"errors"
	"strings"
	"testing"
)

type fieldSource struct {
	values  Snapshot
	failing string
}

func (s *fieldSource) get(name string, v float64) (float64, error) {
	if s.failing == name {
		return 0, errors.New("stream stale")
	}
	return v, nil
}

func (s *fieldSource) Altitude() (float64, error)  { return s.get("altitude", s.values.Altitude) }
func (s *fieldSource) Apoapsis() (float64, error)  { return s.get("apoapsis", s.values.Apoapsis) }
func (s *fieldSource) Periapsis() (float64, error) { return s.get("periapsis", s.values.Periapsis) }
func (s *fieldSource) VerticalSpeed() (float64, error) {
	return s.get("vertical_speed", s.values.VerticalSpeed)
}
func (s *fieldSource) HorizontalSpeed() (float64, error) {
	return s.get("horizontal_speed", s.values.HorizontalSpeed)
}
func (s *fieldSource) Speed() (float64, error)    { return s.get("speed", s.values.Speed) }
func (s *fieldSource) Pitch() (float64, error)    { return s.get("pitch", s.values.Pitch) }
func (s *fieldSource) Heading() (float64, error)  { return s.get("heading", s.values.Heading) }
func (s *fieldSource) Fuel() (float64, error)     { return s.get("fuel", s.values.Fuel) }
func (s *fieldSource) Oxidizer() (float64, error) { return s.get("oxidizer", s.values.Oxidizer) }

func TestCollect(t *testing.T) {
	want := Snapshot{
		Altitude: 12000, Apoapsis: 45000, Periapsis: -30000,
		VerticalSpeed: 240, HorizontalSpeed: 80, Speed: 253,
		Pitch: 68, Heading: 90, Fuel: 1100, Oxidizer: 1350,
	}
	got, err := Collect(&fieldSource{values: want})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got != want {
		t.Errorf("Collect = %+v, want %+v", got, want)
	}
}

func TestCollectFailsWholesale(t *testing.T) {
	src := &fieldSource{values: Snapshot{Altitude: 12000, Fuel: 1100}, failing: "fuel"}
	got, err := Collect(src)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "fuel") {
		t.Errorf("error should name the failed field: %v", err)
	}
	if got != (Snapshot{}) {
		t.Errorf("failed Collect should return a zero snapshot, got %+v", got)
	}
}
