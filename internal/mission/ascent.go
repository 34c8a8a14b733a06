package mission

import (
	"fmt"
	"log/slog"
	"time"

	"ksp-autopilot/internal/config"
	"ksp-autopilot/internal/control"
	"ksp-autopilot/internal/flightlog"
	"ksp-autopilot/internal/telemetry"
)

// EccentricitySource is an optional upgrade on telemetry.Source for backends
// that can report orbital eccentricity for the mission summary.
type EccentricitySource interface {
	Eccentricity() (float64, error)
}

// AscentDeps wires the ascent profile to its collaborators.
type AscentDeps struct {
	Source   telemetry.Source
	Actuator control.Actuator
	Events   *flightlog.EventLogger
	Recorder *flightlog.Recorder
	Log      *slog.Logger
	// Now and Sleep are injectable for tests; nil means real time.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// AscentProfile builds the fixed ascent-to-orbit phase sequence:
// ignition, gravity turn, powered ascent to target apoapsis, coast, and the
// circularization burn. State shared across phase closures (ramp target
// pitch, advisory edge triggers, burn statistics) lives here.
type AscentProfile struct {
	cfg  *config.MissionConfig
	deps AscentDeps

	targetPitch   float64
	fuelWarnIdx   int
	burnStarted   bool
	burnStart     time.Time
	burnStartFuel float64
}

// NewAscentProfile constructs the profile.
func NewAscentProfile(cfg *config.MissionConfig, deps AscentDeps) *AscentProfile {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	return &AscentProfile{cfg: cfg, deps: deps}
}

// Phases returns the ordered phase list for the sequencer.
func (p *AscentProfile) Phases() []Phase {
	return []Phase{
		p.ignition(),
		p.gravityTurn(),
		p.poweredAscent(),
		p.coast(),
		p.circularization(),
	}
}

func (p *AscentProfile) ignition() Phase {
	ev := p.deps.Events
	act := p.deps.Actuator
	return Phase{
		Name: "ignition",
		Entry: func() error {
			if err := ev.Section("Phase 1: Ignition"); err != nil {
				return err
			}
			for i := p.cfg.Ascent.CountdownS; i > 0; i-- {
				if err := ev.Logf("Launch in %d...", i); err != nil {
					return err
				}
				p.deps.Sleep(time.Second)
			}
			if err := ev.Log("LAUNCH! Full throttle"); err != nil {
				return err
			}
			if err := act.SetThrottle(1.0); err != nil {
				return fmt.Errorf("set throttle: %w", err)
			}
			if err := act.Stage(); err != nil {
				return fmt.Errorf("stage: %w", err)
			}
			if p.deps.Recorder != nil {
				p.deps.Recorder.Annotate("LIFTOFF - FULL THROTTLE")
			}
			p.deps.Sleep(time.Second)

			if err := ev.Log("Enabling SAS: radial out"); err != nil {
				return err
			}
			if err := act.SetSAS(true); err != nil {
				return fmt.Errorf("enable SAS: %w", err)
			}
			p.deps.Sleep(500 * time.Millisecond)
			// Radial hold is a nice-to-have; some probe cores lack the mode.
			if err := act.SetSASMode(control.SASRadial); err != nil {
				p.deps.Log.Warn("SAS radial unavailable", "err", err)
				return ev.Logf("  SAS radial unavailable: %v", err)
			}
			return ev.Log("  SAS set to radial out")
		},
	}
}

func (p *AscentProfile) gravityTurn() Phase {
	ev := p.deps.Events
	act := p.deps.Actuator
	turnAlt := p.cfg.Ascent.TurnStartAltitudeM
	return Phase{
		Name: "gravity_turn",
		Entry: func() error {
			if err := ev.Section("Phase 2: Gravity turn"); err != nil {
				return err
			}
			return ev.Logf("Waiting for altitude %.0f m...", turnAlt)
		},
		Exit: func(snap telemetry.Snapshot) bool {
			return snap.Altitude >= turnAlt
		},
		Report: func(snap telemetry.Snapshot) string {
			return fmt.Sprintf("  Altitude: %.1f km | V: %.0f m/s | H: %.0f m/s | Fuel: %.0f",
				snap.Altitude/1000, snap.VerticalSpeed, snap.HorizontalSpeed, snap.Fuel)
		},
		Leave: func(snap telemetry.Snapshot, aborted bool) error {
			if err := ev.Logf("Altitude %.1f km reached, pitching over %.0f degrees",
				snap.Altitude/1000, p.cfg.Ascent.TurnPitchOffsetDeg); err != nil {
				return err
			}
			if p.deps.Recorder != nil {
				p.deps.Recorder.Annotate(fmt.Sprintf("REACHED %.0f M - GRAVITY TURN", turnAlt))
			}
			if err := act.SetSAS(false); err != nil {
				return fmt.Errorf("disable SAS: %w", err)
			}
			p.deps.Sleep(500 * time.Millisecond)

			p.targetPitch = 90 - p.cfg.Ascent.TurnPitchOffsetDeg
			ap := act.AutoPilot()
			if err := ap.Engage(); err != nil {
				return fmt.Errorf("engage autopilot: %w", err)
			}
			if err := ap.TargetPitchHeading(p.targetPitch, 90); err != nil {
				return fmt.Errorf("command pitch-over: %w", err)
			}
			if err := ap.Wait(); err != nil {
				return fmt.Errorf("wait for pitch-over: %w", err)
			}
			if err := ap.Disengage(); err != nil {
				return fmt.Errorf("disengage autopilot: %w", err)
			}
			return ev.Log("  Pitch-over complete")
		},
		Cadence: p.cfg.Cadences.GravityTurn,
	}
}

func (p *AscentProfile) poweredAscent() Phase {
	ev := p.deps.Events
	act := p.deps.Actuator
	a := p.cfg.Ascent
	return Phase{
		Name: "powered_ascent",
		Entry: func() error {
			if err := ev.Section("Phase 3: Powered ascent"); err != nil {
				return err
			}
			return ev.Logf("Burning until apoapsis reaches %.0f m...", a.TargetApoapsisM)
		},
		Tick: func(snap telemetry.Snapshot) {
			// Closed-loop gravity-turn shaping: walk the hold target down a
			// fixed decrement per iteration while the nose is above the floor.
			if snap.Pitch > a.PitchFloorDeg {
				ap := act.AutoPilot()
				if err := ap.Engage(); err != nil {
					p.deps.Log.Warn("pitch ramp engage failed", "err", err)
					return
				}
				p.targetPitch -= a.PitchDecrementDeg
				if err := ap.TargetPitchHeading(p.targetPitch, snap.Heading); err != nil {
					p.deps.Log.Warn("pitch ramp command failed", "err", err)
				}
				p.deps.Log.Debug("pitch ramp", "pitch", snap.Pitch, "target", p.targetPitch)
			}

			// Low-propellant advisories are edge-triggered: each level fires
			// exactly once, at most one per iteration.
			if p.fuelWarnIdx < len(a.FuelAdvisoryLevels) && snap.Fuel < a.FuelAdvisoryLevels[p.fuelWarnIdx] {
				severity := "Low"
				if p.fuelWarnIdx > 0 {
					severity = "Very low"
				}
				_ = ev.Logf("  %s propellant: %.0f units remaining", severity, snap.Fuel)
				p.fuelWarnIdx++
			}
		},
		Exit: func(snap telemetry.Snapshot) bool {
			return snap.Apoapsis >= a.TargetApoapsisM
		},
		Report: func(snap telemetry.Snapshot) string {
			progress := snap.Apoapsis / a.TargetApoapsisM * 100
			return fmt.Sprintf("  Apoapsis: %.1f km (%.0f%%) | Altitude: %.1f km | Fuel: %.0f",
				snap.Apoapsis/1000, progress, snap.Altitude/1000, snap.Fuel)
		},
		Leave: func(snap telemetry.Snapshot, aborted bool) error {
			if err := ev.Logf("Apoapsis %.1f km reached", snap.Apoapsis/1000); err != nil {
				return err
			}
			if err := ev.Log("ENGINE CUTOFF"); err != nil {
				return err
			}
			if err := act.SetThrottle(0); err != nil {
				return fmt.Errorf("cut throttle: %w", err)
			}
			if err := act.AutoPilot().Disengage(); err != nil {
				p.deps.Log.Warn("autopilot disengage failed", "err", err)
			}
			if p.deps.Recorder != nil {
				p.deps.Recorder.Annotate(fmt.Sprintf("APOAPSIS %.1f KM - ENGINE CUTOFF", snap.Apoapsis/1000))
			}
			return ev.Logf("  Propellant after ascent: fuel %.1f | oxidizer %.1f", snap.Fuel, snap.Oxidizer)
		},
		Cadence: p.cfg.Cadences.PoweredAscent,
	}
}

func (p *AscentProfile) coast() Phase {
	ev := p.deps.Events
	coastAlt := p.cfg.Ascent.CoastAltitudeM
	return Phase{
		Name: "coast",
		Entry: func() error {
			if err := ev.Section("Phase 4: Coast to apoapsis"); err != nil {
				return err
			}
			p.deployPanels()
			return ev.Logf("Coasting until altitude %.0f m...", coastAlt)
		},
		Exit: func(snap telemetry.Snapshot) bool {
			return snap.Altitude >= coastAlt
		},
		Report: func(snap telemetry.Snapshot) string {
			remaining := coastAlt - snap.Altitude
			if remaining >= 5000 {
				return ""
			}
			return fmt.Sprintf("  To target: %.1f km | Altitude: %.1f km | Fuel: %.1f",
				remaining/1000, snap.Altitude/1000, snap.Fuel)
		},
		Leave: func(snap telemetry.Snapshot, aborted bool) error {
			return ev.Logf("Altitude %.1f km reached", snap.Altitude/1000)
		},
		Cadence: p.cfg.Cadences.Coast,
	}
}

// deployPanels deploys every deployable panel part, best-effort. One failing
// panel never blocks the others; all failures are advisory.
func (p *AscentProfile) deployPanels() {
	ev := p.deps.Events
	_ = ev.Log("Deploying solar panels")
	panels, err := p.deps.Actuator.Panels()
	if err != nil {
		p.deps.Log.Warn("panel enumeration failed", "err", err)
		_ = ev.Logf("  Panel enumeration failed: %v", err)
		return
	}
	deployed := 0
	for _, panel := range panels {
		ok, err := panel.Deployable()
		if err != nil {
			_ = ev.Logf("  Panel %s: %v", panel.Name(), err)
			continue
		}
		if !ok {
			continue
		}
		if err := panel.Deploy(); err != nil {
			_ = ev.Logf("  Panel %s deploy failed: %v", panel.Name(), err)
			continue
		}
		deployed++
	}
	if deployed > 0 {
		_ = ev.Logf("  Deployed %d solar panel(s)", deployed)
	} else {
		_ = ev.Log("  No deployable solar panels found")
	}
	if p.deps.Recorder != nil {
		p.deps.Recorder.Annotate("SOLAR PANEL DEPLOYMENT")
	}
}

func (p *AscentProfile) circularization() Phase {
	ev := p.deps.Events
	act := p.deps.Actuator
	a := p.cfg.Ascent
	return Phase{
		Name: "circularization",
		Entry: func() error {
			if err := ev.Section("Phase 5: Circularization burn"); err != nil {
				return err
			}
			if err := ev.Log("Enabling SAS: prograde"); err != nil {
				return err
			}
			if err := act.SetSAS(true); err != nil {
				return fmt.Errorf("enable SAS: %w", err)
			}
			p.deps.Sleep(500 * time.Millisecond)
			if err := act.SetSASMode(control.SASPrograde); err != nil {
				p.deps.Log.Warn("SAS prograde unavailable", "err", err)
				if err := ev.Logf("  SAS prograde unavailable: %v", err); err != nil {
					return err
				}
			} else if err := ev.Log("  SAS set to prograde"); err != nil {
				return err
			}

			if err := ev.Log("ENGINE IGNITION"); err != nil {
				return err
			}
			if err := act.SetThrottle(1.0); err != nil {
				return fmt.Errorf("set throttle: %w", err)
			}
			if p.deps.Recorder != nil {
				p.deps.Recorder.Annotate("CIRCULARIZATION BURN START")
			}

			p.burnStarted = true
			p.burnStart = p.deps.Now()
			if fuel, err := p.deps.Source.Fuel(); err == nil {
				p.burnStartFuel = fuel
			} else {
				p.deps.Log.Warn("burn start fuel read failed", "err", err)
			}
			return ev.Logf("Target periapsis: %.0f m", a.TargetPeriapsisM)
		},
		Abort: func(snap telemetry.Snapshot) bool {
			return snap.Fuel <= a.AbortPropellantUnit || snap.Oxidizer <= a.AbortPropellantUnit
		},
		Exit: func(snap telemetry.Snapshot) bool {
			return snap.Periapsis >= a.TargetPeriapsisM
		},
		Report: func(snap telemetry.Snapshot) string {
			progress := 0.0
			if snap.Periapsis > 0 {
				progress = snap.Periapsis / a.TargetPeriapsisM * 100
			}
			return fmt.Sprintf("  Periapsis: %.1f km (%.0f%%) | Fuel: %.1f | Used: %.1f | Burn: %.0fs",
				snap.Periapsis/1000, progress, snap.Fuel,
				p.burnStartFuel-snap.Fuel, p.deps.Now().Sub(p.burnStart).Seconds())
		},
		Leave: func(snap telemetry.Snapshot, aborted bool) error {
			// Throttle goes to zero on exit either way.
			if err := act.SetThrottle(0); err != nil {
				return fmt.Errorf("cut throttle: %w", err)
			}
			if aborted {
				if err := ev.Log("PROPELLANT EXHAUSTED - burn aborted"); err != nil {
					return err
				}
				if p.deps.Recorder != nil {
					p.deps.Recorder.Annotate("ABORTED - PROPELLANT EXHAUSTED")
				}
				return nil
			}
			if err := ev.Log("Engine off"); err != nil {
				return err
			}
			if p.deps.Recorder != nil {
				p.deps.Recorder.Annotate(fmt.Sprintf("BURN COMPLETE - PERIAPSIS %.1f KM", snap.Periapsis/1000))
			}
			return nil
		},
		Cadence: p.cfg.Cadences.Circularization,
	}
}

// Summary writes the mission-results section, classifies the outcome, and
// finalizes the flight recorder. It performs no actuation.
func (p *AscentProfile) Summary(res *Result) (Outcome, error) {
	ev := p.deps.Events
	if err := ev.Section("Mission results"); err != nil {
		return 0, err
	}

	if err := ev.Log("ORBIT PARAMETERS:"); err != nil {
		return 0, err
	}
	if err := ev.Logf("  Apoapsis: %.2f km", res.Final.Apoapsis/1000); err != nil {
		return 0, err
	}
	if err := ev.Logf("  Periapsis: %.2f km", res.Final.Periapsis/1000); err != nil {
		return 0, err
	}
	if es, ok := p.deps.Source.(EccentricitySource); ok {
		if ecc, err := es.Eccentricity(); err == nil {
			if err := ev.Logf("  Eccentricity: %.4f", ecc); err != nil {
				return 0, err
			}
		} else {
			p.deps.Log.Warn("eccentricity read failed", "err", err)
		}
	}

	if err := ev.Log("PROPELLANT REMAINING:"); err != nil {
		return 0, err
	}
	if err := ev.Logf("  Fuel: %.1f | Oxidizer: %.1f", res.Final.Fuel, res.Final.Oxidizer); err != nil {
		return 0, err
	}
	if p.burnStarted {
		if err := ev.Logf("  Burn fuel used: %.1f | Burn time: %.1fs",
			p.burnStartFuel-res.Final.Fuel, p.deps.Now().Sub(p.burnStart).Seconds()); err != nil {
			return 0, err
		}
	}
	if err := ev.Logf("  Total mission time: %.1fs", res.Elapsed.Seconds()); err != nil {
		return 0, err
	}

	outcome := res.Outcome()
	if err := ev.Log("RESULT: " + outcome.String()); err != nil {
		return 0, err
	}
	for _, hint := range outcomeHints(outcome, res.Final.Periapsis) {
		if err := ev.Log("  " + hint); err != nil {
			return 0, err
		}
	}

	if p.deps.Recorder != nil {
		p.deps.Recorder.Annotate("MISSION COMPLETE")
		if err := p.deps.Recorder.Finalize(); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func outcomeHints(o Outcome, periapsis float64) []string {
	switch o {
	case SuccessHighPrecision:
		return []string{"Periapsis inside the target band."}
	case SuccessAcceptable:
		return []string{fmt.Sprintf("Orbit is stable but off target (%.1f km).", periapsis/1000)}
	case PartialSuccess:
		return []string{fmt.Sprintf("Periapsis %.1f km needs a correction burn.", periapsis/1000)}
	case PartialFailure:
		return []string{
			fmt.Sprintf("Ran dry at periapsis %.1f km.", periapsis/1000),
			"Carry more propellant or lower the target orbit.",
		}
	case CriticalFailureDry:
		return []string{
			"Periapsis below the surface; propellant exhausted before orbit.",
			"The vehicle cannot reach orbit on this profile.",
		}
	default:
		return []string{
			"Suborbital trajectory; the vehicle will reenter.",
			"Revisit the vehicle design or the ascent profile.",
		}
	}
}
