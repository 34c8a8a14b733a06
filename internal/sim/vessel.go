// Package sim provides a simulated vessel so the full mission can run
// without a game process: dry runs, demos, and the end-to-end tests.
package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"ksp-autopilot/internal/control"
)

// Kerbin-like constants. The model is physics-lite: it only has to produce a
// plausible, monotonic ascent profile, not a correct trajectory.
const (
	bodyRadius   = 600_000.0
	surfaceG     = 9.5
	thrustAccel  = 28.0 // m/s^2 at full throttle
	fuelRate     = 4.0  // units/s at full throttle
	oxidizerRate = 4.9
	orbitalSpeed = 2280.0 // horizontal speed for a circular low orbit
	// periapsis rises this many meters per m/s of horizontal speed gained
	// toward orbital speed.
	periPerSpeed = 400.0
)

// Vessel is a simulated rocket implementing both the telemetry source and
// the actuator sink. State advances lazily: every accessor first integrates
// the model forward to the current clock reading.
type Vessel struct {
	mu    sync.Mutex
	now   func() time.Time
	last  time.Time
	scale float64

	name string
	body string

	altitude    float64
	vSpeed      float64
	hSpeed      float64
	pitch       float64
	heading     float64
	fuel        float64
	oxidizer    float64
	maxFuel     float64
	maxOxidizer float64

	throttle float64
	staged   bool
	sas      bool
	sasMode  control.Mode

	apHold    bool
	apPitch   float64
	apHeading float64

	panels []*simPanel
}

// VesselOption configures the simulated vessel.
type VesselOption func(*Vessel)

// WithPropellant overrides the initial propellant load. Used to simulate
// running dry during the circularization burn.
func WithPropellant(fuel, oxidizer float64) VesselOption {
	return func(v *Vessel) {
		v.fuel = fuel
		v.oxidizer = oxidizer
	}
}

// WithClock injects the time source for deterministic tests.
func WithClock(now func() time.Time) VesselOption {
	return func(v *Vessel) { v.now = now }
}

// WithTimeScale accelerates simulated time by factor k, so a dry run does
// not take real mission minutes.
func WithTimeScale(k float64) VesselOption {
	return func(v *Vessel) {
		if k > 0 {
			v.scale = k
		}
	}
}

// NewVessel creates a vessel on the pad, pointed straight up.
func NewVessel(opts ...VesselOption) *Vessel {
	v := &Vessel{
		now:      time.Now,
		scale:    1,
		name:     "Simulated Vessel",
		body:     "Kerbin",
		pitch:    90,
		heading:  90,
		fuel:     1440,
		oxidizer: 1760,
		panels: []*simPanel{
			{name: "solarPanel-1", deployable: true},
			{name: "solarPanel-2", deployable: true},
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	v.maxFuel = v.fuel
	v.maxOxidizer = v.oxidizer
	v.last = v.now()
	return v
}

// Name returns the vessel name.
func (v *Vessel) Name() string { return v.name }

// Body returns the reference body name.
func (v *Vessel) Body() string { return v.body }

// advance integrates the model from the last step to now. Callers hold mu.
func (v *Vessel) advance() {
	t := v.now()
	dt := t.Sub(v.last).Seconds() * v.scale
	v.last = t
	// Integrate in small steps so coarse polling cadences stay stable.
	for dt > 0 {
		step := math.Min(dt, 0.1)
		v.step(step)
		dt -= step
	}
}

func (v *Vessel) step(dt float64) {
	// Attitude: autopilot hold wins, then prograde SAS, else hold current.
	switch {
	case v.apHold:
		v.pitch = v.apPitch
		v.heading = v.apHeading
	case v.sas && v.sasMode == control.SASPrograde:
		v.pitch = math.Atan2(v.vSpeed, math.Max(v.hSpeed, 1)) * 180 / math.Pi
	}

	accel := 0.0
	if v.staged && v.throttle > 0 && v.fuel > 0 && v.oxidizer > 0 {
		accel = thrustAccel * v.throttle
		v.fuel = math.Max(0, v.fuel-fuelRate*v.throttle*dt)
		v.oxidizer = math.Max(0, v.oxidizer-oxidizerRate*v.throttle*dt)
	}

	rad := v.pitch * math.Pi / 180
	centrifugal := v.hSpeed * v.hSpeed / (bodyRadius + v.altitude)
	v.vSpeed += (accel*math.Sin(rad) - v.gravity() + centrifugal) * dt
	v.hSpeed += accel * math.Cos(rad) * dt
	if v.hSpeed < 0 {
		v.hSpeed = 0
	}
	v.altitude += v.vSpeed * dt
	if v.altitude <= 0 {
		v.altitude = 0
		if v.vSpeed < 0 {
			v.vSpeed = 0
		}
	}
}

// gravity decays weakly with altitude; enough to let a coasting vessel
// actually reach its apoapsis.
func (v *Vessel) gravity() float64 {
	r := bodyRadius / (bodyRadius + v.altitude)
	return surfaceG * r * r
}

// apoapsis projects the ballistic peak from current altitude and vertical
// speed.
func (v *Vessel) apoapsis() float64 {
	if v.vSpeed <= 0 {
		return v.altitude
	}
	return v.altitude + v.vSpeed*v.vSpeed/(2*v.gravity())
}

// periapsis approximates how far the low side of the orbit has been raised
// by horizontal speed; negative means suborbital.
func (v *Vessel) periapsis() float64 {
	return v.apoapsis() - (orbitalSpeed-v.hSpeed)*periPerSpeed
}

func (v *Vessel) read(f func() float64) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advance()
	return f(), nil
}

// Telemetry source.

func (v *Vessel) Altitude() (float64, error)  { return v.read(func() float64 { return v.altitude }) }
func (v *Vessel) Apoapsis() (float64, error)  { return v.read(v.apoapsis) }
func (v *Vessel) Periapsis() (float64, error) { return v.read(v.periapsis) }
func (v *Vessel) VerticalSpeed() (float64, error) {
	return v.read(func() float64 { return v.vSpeed })
}
func (v *Vessel) HorizontalSpeed() (float64, error) {
	return v.read(func() float64 { return v.hSpeed })
}
func (v *Vessel) Speed() (float64, error) {
	return v.read(func() float64 { return math.Hypot(v.vSpeed, v.hSpeed) })
}
func (v *Vessel) Pitch() (float64, error)    { return v.read(func() float64 { return v.pitch }) }
func (v *Vessel) Heading() (float64, error)  { return v.read(func() float64 { return v.heading }) }
func (v *Vessel) Fuel() (float64, error)     { return v.read(func() float64 { return v.fuel }) }
func (v *Vessel) Oxidizer() (float64, error) { return v.read(func() float64 { return v.oxidizer }) }

// MaxFuel reports the fuel capacity, for the preflight report.
func (v *Vessel) MaxFuel() (float64, error) { return v.maxFuel, nil }

// MaxOxidizer reports the oxidizer capacity.
func (v *Vessel) MaxOxidizer() (float64, error) { return v.maxOxidizer, nil }

// Eccentricity derives from the projected apsides.
func (v *Vessel) Eccentricity() (float64, error) {
	return v.read(func() float64 {
		ra := bodyRadius + v.apoapsis()
		rp := bodyRadius + math.Max(v.periapsis(), -bodyRadius)
		return (ra - rp) / (ra + rp)
	})
}

// Actuator sink.

func (v *Vessel) SetThrottle(level float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advance()
	v.throttle = math.Max(0, math.Min(1, level))
	return nil
}

// Throttle reports the commanded throttle (test hook).
func (v *Vessel) Throttle() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.throttle
}

func (v *Vessel) Stage() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advance()
	v.staged = true
	return nil
}

func (v *Vessel) SetSAS(enabled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advance()
	v.sas = enabled
	return nil
}

func (v *Vessel) SetSASMode(mode control.Mode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advance()
	if !v.sas {
		return fmt.Errorf("SAS is not enabled")
	}
	v.sasMode = mode
	return nil
}

func (v *Vessel) AutoPilot() control.AutoPilot { return (*simAutoPilot)(v) }

func (v *Vessel) Panels() ([]control.Panel, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]control.Panel, len(v.panels))
	for i, p := range v.panels {
		out[i] = p
	}
	return out, nil
}

// simAutoPilot implements control.AutoPilot over the vessel state.
type simAutoPilot Vessel

func (a *simAutoPilot) vessel() *Vessel { return (*Vessel)(a) }

func (a *simAutoPilot) Engage() error {
	v := a.vessel()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advance()
	v.apHold = true
	v.apPitch = v.pitch
	v.apHeading = v.heading
	return nil
}

func (a *simAutoPilot) TargetPitchHeading(pitch, heading float64) error {
	v := a.vessel()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advance()
	v.apPitch = pitch
	v.apHeading = heading
	return nil
}

// Wait settles instantly; the model has no attitude dynamics.
func (a *simAutoPilot) Wait() error {
	v := a.vessel()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advance()
	v.pitch = v.apPitch
	v.heading = v.apHeading
	return nil
}

func (a *simAutoPilot) Disengage() error {
	v := a.vessel()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.advance()
	v.apHold = false
	return nil
}

type simPanel struct {
	name       string
	deployable bool
	deployed   bool
	failWith   error
}

func (p *simPanel) Name() string               { return p.name }
func (p *simPanel) Deployable() (bool, error)  { return p.deployable, nil }
func (p *simPanel) Deploy() error {
	if p.failWith != nil {
		return p.failWith
	}
	p.deployed = true
	return nil
}
