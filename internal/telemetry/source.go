package telemetry

import "fmt"

// Source exposes current-value accessors over the vessel telemetry link.
// Implementations acquire their remote handles once at mission start and keep
// them for the process lifetime.
type Source interface {
	Altitude() (float64, error)
	Apoapsis() (float64, error)
	Periapsis() (float64, error)
	VerticalSpeed() (float64, error)
	HorizontalSpeed() (float64, error)
	Speed() (float64, error)
	Pitch() (float64, error)
	Heading() (float64, error)
	Fuel() (float64, error)
	Oxidizer() (float64, error)
}

// Collect gathers a full Snapshot from src. A failure reading any single
// field fails the whole snapshot; callers that log tabular rows skip the row
// wholesale rather than emit a partial one.
func Collect(src Source) (Snapshot, error) {
	var snap Snapshot
	fields := []struct {
		name string
		read func() (float64, error)
		dst  *float64
	}{
		{"altitude", src.Altitude, &snap.Altitude},
		{"apoapsis", src.Apoapsis, &snap.Apoapsis},
		{"periapsis", src.Periapsis, &snap.Periapsis},
		{"vertical_speed", src.VerticalSpeed, &snap.VerticalSpeed},
		{"horizontal_speed", src.HorizontalSpeed, &snap.HorizontalSpeed},
		{"speed", src.Speed, &snap.Speed},
		{"pitch", src.Pitch, &snap.Pitch},
		{"heading", src.Heading, &snap.Heading},
		{"fuel", src.Fuel, &snap.Fuel},
		{"oxidizer", src.Oxidizer, &snap.Oxidizer},
	}
	for _, f := range fields {
		v, err := f.read()
		if err != nil {
			return Snapshot{}, fmt.Errorf("read %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return snap, nil
}
