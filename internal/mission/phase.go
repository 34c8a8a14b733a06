// Package mission runs the scripted ascent as an ordered sequence of phases
// with telemetry-driven transitions.
package mission

import (
	"ksp-autopilot/internal/config"
	"ksp-autopilot/internal/telemetry"
)

// Phase is one mission phase. Entry fires once at the phase boundary; the
// sequencer then polls telemetry until Exit reports true, running Tick every
// iteration and Report on the report cadence. Leave fires when the phase
// ends, whether it exited nominally or through an abort.
//
// A phase with a nil Exit performs its Entry and ends immediately.
type Phase struct {
	Name string

	// Entry performs the phase-boundary actuation. Errors are fatal.
	Entry func() error

	// Tick runs once per polling iteration with a fresh snapshot. Used for
	// closed-loop shaping such as the gravity-turn pitch ramp.
	Tick func(snap telemetry.Snapshot)

	// Exit is the transition predicate.
	Exit func(snap telemetry.Snapshot) bool

	// Abort reports a failure condition (propellant exhaustion) that ends
	// the mission from inside this phase.
	Abort func(snap telemetry.Snapshot) bool

	// Report renders the periodic progress line, or "" to skip this beat.
	Report func(snap telemetry.Snapshot) string

	// Leave runs after the polling loop with the last snapshot. Errors are
	// fatal: leave actions are actuation (cutting throttle, attitude
	// maneuvers) that the rest of the mission depends on.
	Leave func(snap telemetry.Snapshot, aborted bool) error

	Cadence config.Cadence
}
