// Package krpc adapts the kRPC remote procedure link to the telemetry source
// and actuator sink the mission sequencer consumes.
package krpc

import (
	"context"
	"fmt"
	"strconv"

	krpcgo "github.com/atburke/krpc-go"
	"github.com/atburke/krpc-go/spacecenter"

	"ksp-autopilot/internal/config"
	"ksp-autopilot/internal/control"
)

// Client wraps one kRPC connection and the remote handles for the active
// vessel. All handles are resolved once at connect time and live for the
// process lifetime.
type Client struct {
	conn   *krpcgo.KRPCClient
	vessel *spacecenter.Vessel
	ctrl   *spacecenter.Control
	orbit  *spacecenter.Orbit
	// surface-frame flight for altitude and attitude, body-frame flight for
	// the velocity components.
	surfaceFlight *spacecenter.Flight
	bodyFlight    *spacecenter.Flight
	resources     *spacecenter.Resources
	autopilot     *spacecenter.AutoPilot

	vesselName string
	bodyName   string
}

// Connect dials the kRPC server and resolves all remote handles. A failure
// here is fatal to the mission; the caller prints the remediation steps.
func Connect(ctx context.Context, cfg config.Connection) (*Client, error) {
	conn := krpcgo.DefaultKRPCClient()
	conn.Host = cfg.Address
	conn.RPCPort = strconv.Itoa(cfg.RPCPort)
	conn.StreamPort = strconv.Itoa(cfg.StreamPort)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to kRPC server at %s:%d: %w", cfg.Address, cfg.RPCPort, err)
	}

	c := &Client{conn: conn}
	if err := c.resolve(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) resolve() error {
	sc := spacecenter.New(c.conn)
	vessel, err := sc.ActiveVessel()
	if err != nil {
		return fmt.Errorf("resolve active vessel: %w", err)
	}
	c.vessel = vessel

	if c.vesselName, err = vessel.Name(); err != nil {
		return fmt.Errorf("read vessel name: %w", err)
	}
	if c.ctrl, err = vessel.Control(); err != nil {
		return fmt.Errorf("resolve vessel control: %w", err)
	}
	if c.orbit, err = vessel.Orbit(); err != nil {
		return fmt.Errorf("resolve orbit: %w", err)
	}
	body, err := c.orbit.Body()
	if err != nil {
		return fmt.Errorf("resolve orbited body: %w", err)
	}
	if c.bodyName, err = body.Name(); err != nil {
		return fmt.Errorf("read body name: %w", err)
	}
	bodyFrame, err := body.ReferenceFrame()
	if err != nil {
		return fmt.Errorf("resolve body reference frame: %w", err)
	}
	if c.bodyFlight, err = vessel.Flight(bodyFrame); err != nil {
		return fmt.Errorf("resolve body-frame flight: %w", err)
	}
	surfaceFrame, err := vessel.SurfaceReferenceFrame()
	if err != nil {
		return fmt.Errorf("resolve surface reference frame: %w", err)
	}
	if c.surfaceFlight, err = vessel.Flight(surfaceFrame); err != nil {
		return fmt.Errorf("resolve surface-frame flight: %w", err)
	}
	if c.resources, err = vessel.Resources(); err != nil {
		return fmt.Errorf("resolve resources: %w", err)
	}
	if c.autopilot, err = vessel.AutoPilot(); err != nil {
		return fmt.Errorf("resolve autopilot: %w", err)
	}
	if err := c.autopilot.SetReferenceFrame(surfaceFrame); err != nil {
		return fmt.Errorf("set autopilot reference frame: %w", err)
	}
	return nil
}

// VesselName returns the active vessel's name.
func (c *Client) VesselName() string { return c.vesselName }

// BodyName returns the orbited body's name.
func (c *Client) BodyName() string { return c.bodyName }

// Close releases the remote connection. Called exactly once at shutdown.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Telemetry source.

func (c *Client) Altitude() (float64, error) {
	v, err := c.surfaceFlight.MeanAltitude()
	return float64(v), err
}

func (c *Client) Apoapsis() (float64, error) {
	v, err := c.orbit.ApoapsisAltitude()
	return float64(v), err
}

func (c *Client) Periapsis() (float64, error) {
	v, err := c.orbit.PeriapsisAltitude()
	return float64(v), err
}

func (c *Client) VerticalSpeed() (float64, error) {
	v, err := c.bodyFlight.VerticalSpeed()
	return float64(v), err
}

func (c *Client) HorizontalSpeed() (float64, error) {
	v, err := c.bodyFlight.HorizontalSpeed()
	return float64(v), err
}

func (c *Client) Speed() (float64, error) {
	v, err := c.bodyFlight.Speed()
	return float64(v), err
}

func (c *Client) Pitch() (float64, error) {
	v, err := c.surfaceFlight.Pitch()
	return float64(v), err
}

func (c *Client) Heading() (float64, error) {
	v, err := c.surfaceFlight.Heading()
	return float64(v), err
}

func (c *Client) Fuel() (float64, error) {
	v, err := c.resources.Amount("LiquidFuel")
	return float64(v), err
}

func (c *Client) Oxidizer() (float64, error) {
	v, err := c.resources.Amount("Oxidizer")
	return float64(v), err
}

// MaxFuel returns the vessel's liquid fuel capacity, for the preflight report.
func (c *Client) MaxFuel() (float64, error) {
	v, err := c.resources.Max("LiquidFuel")
	return float64(v), err
}

// MaxOxidizer returns the oxidizer capacity.
func (c *Client) MaxOxidizer() (float64, error) {
	v, err := c.resources.Max("Oxidizer")
	return float64(v), err
}

// Eccentricity reports the current orbital eccentricity for the summary.
func (c *Client) Eccentricity() (float64, error) {
	v, err := c.orbit.Eccentricity()
	return float64(v), err
}

// Actuator sink.

func (c *Client) SetThrottle(level float64) error {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	return c.ctrl.SetThrottle(float32(level))
}

func (c *Client) Stage() error {
	_, err := c.ctrl.ActivateNextStage()
	return err
}

func (c *Client) SetSAS(enabled bool) error {
	return c.ctrl.SetSAS(enabled)
}

func (c *Client) SetSASMode(mode control.Mode) error {
	var m spacecenter.SASMode
	switch mode {
	case control.SASPrograde:
		m = spacecenter.SASMode_Prograde
	case control.SASRadial:
		m = spacecenter.SASMode_Radial
	default:
		m = spacecenter.SASMode_StabilityAssist
	}
	return c.ctrl.SetSASMode(m)
}

func (c *Client) AutoPilot() control.AutoPilot {
	return &autoPilot{ap: c.autopilot}
}

func (c *Client) Panels() ([]control.Panel, error) {
	parts, err := c.vessel.Parts()
	if err != nil {
		return nil, fmt.Errorf("resolve parts: %w", err)
	}
	solar, err := parts.SolarPanels()
	if err != nil {
		return nil, fmt.Errorf("enumerate solar panels: %w", err)
	}
	out := make([]control.Panel, len(solar))
	for i, p := range solar {
		out[i] = &panel{sp: p, name: fmt.Sprintf("solar panel %d", i+1)}
	}
	return out, nil
}

type autoPilot struct {
	ap *spacecenter.AutoPilot
}

func (a *autoPilot) Engage() error { return a.ap.Engage() }

func (a *autoPilot) TargetPitchHeading(pitch, heading float64) error {
	return a.ap.TargetPitchAndHeading(float32(pitch), float32(heading))
}

func (a *autoPilot) Wait() error { return a.ap.Wait() }

func (a *autoPilot) Disengage() error { return a.ap.Disengage() }

type panel struct {
	sp   *spacecenter.SolarPanel
	name string
}

func (p *panel) Name() string { return p.name }

func (p *panel) Deployable() (bool, error) { return p.sp.Deployable() }

func (p *panel) Deploy() error { return p.sp.SetDeployed(true) }
