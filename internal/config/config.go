// YAML mission config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so cadences can be written as "500ms" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Connection holds kRPC server coordinates.
type Connection struct {
	Name       string `yaml:"name"`
	Address    string `yaml:"address"`
	RPCPort    int    `yaml:"rpc_port"`
	StreamPort int    `yaml:"stream_port"`
}

// Logs holds output file paths. Both files are truncated at mission start.
type Logs struct {
	EventFile      string `yaml:"event_file"`
	FlightDataFile string `yaml:"flight_data_file"`
}

// Ascent holds the fixed ascent-profile thresholds.
type Ascent struct {
	CountdownS          int       `yaml:"countdown_s"`
	TurnStartAltitudeM  float64   `yaml:"turn_start_altitude_m"`
	TurnPitchOffsetDeg  float64   `yaml:"turn_pitch_offset_deg"`
	PitchFloorDeg       float64   `yaml:"pitch_floor_deg"`
	PitchDecrementDeg   float64   `yaml:"pitch_decrement_deg"`
	TargetApoapsisM     float64   `yaml:"target_apoapsis_m"`
	CoastAltitudeM      float64   `yaml:"coast_altitude_m"`
	TargetPeriapsisM    float64   `yaml:"target_periapsis_m"`
	FuelAdvisoryLevels  []float64 `yaml:"fuel_advisory_levels"`
	AbortPropellantUnit float64   `yaml:"abort_propellant_units"`
}

// Cadence bounds one phase's polling loop: read spacing, report and data-log
// intervals, and an overall timeout. The original script had no timeouts; an
// exit condition that never fires would loop forever, so every phase here
// carries one.
type Cadence struct {
	Poll    Duration `yaml:"poll"`
	Report  Duration `yaml:"report"`
	Data    Duration `yaml:"data"`
	Timeout Duration `yaml:"timeout"`
}

// Cadences holds the per-phase loop cadences.
type Cadences struct {
	GravityTurn     Cadence `yaml:"gravity_turn"`
	PoweredAscent   Cadence `yaml:"powered_ascent"`
	Coast           Cadence `yaml:"coast"`
	Circularization Cadence `yaml:"circularization"`
}

// MissionConfig is the root configuration for one flight.
type MissionConfig struct {
	Connection Connection `yaml:"connection"`
	Logs       Logs       `yaml:"logs"`
	Ascent     Ascent     `yaml:"ascent"`
	Cadences   Cadences   `yaml:"cadences"`
}

// Load reads a YAML mission config, validates it against the CUE schema, and
// applies defaults for anything left unset.
func Load(configPath, cueSchemaPath string) (*MissionConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg MissionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the stock ascent profile without reading any file.
func Default() *MissionConfig {
	cfg := &MissionConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *MissionConfig) applyDefaults() {
	if c.Connection.Name == "" {
		c.Connection.Name = "ksp-autopilot"
	}
	if c.Connection.Address == "" {
		c.Connection.Address = "localhost"
	}
	if c.Connection.RPCPort == 0 {
		c.Connection.RPCPort = 50000
	}
	if c.Connection.StreamPort == 0 {
		c.Connection.StreamPort = 50001
	}
	if c.Logs.EventFile == "" {
		c.Logs.EventFile = "ksp.txt"
	}
	if c.Logs.FlightDataFile == "" {
		c.Logs.FlightDataFile = "inf.txt"
	}

	a := &c.Ascent
	if a.CountdownS == 0 {
		a.CountdownS = 3
	}
	if a.TurnStartAltitudeM == 0 {
		a.TurnStartAltitudeM = 10000
	}
	if a.TurnPitchOffsetDeg == 0 {
		a.TurnPitchOffsetDeg = 20
	}
	if a.PitchFloorDeg == 0 {
		a.PitchFloorDeg = 15
	}
	if a.PitchDecrementDeg == 0 {
		a.PitchDecrementDeg = 0.3
	}
	if a.TargetApoapsisM == 0 {
		a.TargetApoapsisM = 80000
	}
	if a.CoastAltitudeM == 0 {
		a.CoastAltitudeM = 78000
	}
	if a.TargetPeriapsisM == 0 {
		a.TargetPeriapsisM = 75000
	}
	if len(a.FuelAdvisoryLevels) == 0 {
		a.FuelAdvisoryLevels = []float64{100, 50}
	}
	if a.AbortPropellantUnit == 0 {
		a.AbortPropellantUnit = 0.1
	}

	defCadence := func(c *Cadence, poll, report, data, timeout time.Duration) {
		if c.Poll == 0 {
			c.Poll = Duration(poll)
		}
		if c.Report == 0 {
			c.Report = Duration(report)
		}
		if c.Data == 0 {
			c.Data = Duration(data)
		}
		if c.Timeout == 0 {
			c.Timeout = Duration(timeout)
		}
	}
	defCadence(&c.Cadences.GravityTurn, 100*time.Millisecond, 2*time.Second, 500*time.Millisecond, 10*time.Minute)
	defCadence(&c.Cadences.PoweredAscent, 200*time.Millisecond, 3*time.Second, 500*time.Millisecond, 15*time.Minute)
	defCadence(&c.Cadences.Coast, 500*time.Millisecond, time.Second, time.Second, 20*time.Minute)
	defCadence(&c.Cadences.Circularization, 200*time.Millisecond, 2*time.Second, 300*time.Millisecond, 15*time.Minute)
}
