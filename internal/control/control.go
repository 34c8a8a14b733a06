// Package control defines the actuator surface the mission sequencer drives.
package control

// Mode selects an SAS autopilot mode.
type Mode int

const (
	SASStabilityAssist Mode = iota
	SASPrograde
	SASRadial
)

func (m Mode) String() string {
	switch m {
	case SASPrograde:
		return "prograde"
	case SASRadial:
		return "radial"
	default:
		return "stability_assist"
	}
}

// Actuator is the command sink for the vessel. Implementations report remote
// failures as errors; the sequencer decides per call site whether a failure
// is fatal or logged and ignored.
type Actuator interface {
	// SetThrottle commands the throttle, clamped to [0, 1].
	SetThrottle(level float64) error
	// Stage triggers the next staging event.
	Stage() error
	// SetSAS enables or disables the stability assist system.
	SetSAS(enabled bool) error
	// SetSASMode selects the SAS mode. Unsupported modes return an error.
	SetSASMode(mode Mode) error
	// AutoPilot returns the attitude-hold interface.
	AutoPilot() AutoPilot
	// Panels enumerates deployable panel-type parts.
	Panels() ([]Panel, error)
}

// AutoPilot drives vessel orientation toward a commanded pitch/heading target.
type AutoPilot interface {
	Engage() error
	TargetPitchHeading(pitch, heading float64) error
	// Wait blocks until the vehicle has settled on the commanded attitude.
	Wait() error
	Disengage() error
}

// Panel is one deployable part. Deployment failures are isolated per part:
// one failing panel never blocks the others.
type Panel interface {
	Name() string
	Deployable() (bool, error)
	Deploy() error
}
