// CUE schema validation and semantic checks
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

// ValidateWithCue validates a YAML configuration file using a CUE schema file.
func ValidateWithCue(configFile, cueFile string) error {
	ctx := cuecontext.New()

	yamlBytes, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("cannot read YAML config: %w", err)
	}
	file, err := yaml.Extract(configFile, yamlBytes)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)
	if configVal.Err() != nil {
		return fmt.Errorf("cannot build YAML config: %w", configVal.Err())
	}

	schemaBytes, err := os.ReadFile(cueFile)
	if err != nil {
		return fmt.Errorf("cannot read CUE schema: %w", err)
	}
	schemaVal := ctx.CompileBytes(schemaBytes)
	if schemaVal.Err() != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", schemaVal.Err())
	}

	final := configVal.Unify(schemaVal)
	if final.Err() != nil {
		return fmt.Errorf("schema unify failed: %w", final.Err())
	}
	if err := final.Validate(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// Validate checks threshold ordering the CUE schema cannot express across
// fields. The profile only works if the coast trigger sits below the target
// apoapsis and the target periapsis does not exceed it.
func (c *MissionConfig) Validate() error {
	a := c.Ascent
	if a.TurnStartAltitudeM >= a.CoastAltitudeM {
		return fmt.Errorf("turn_start_altitude_m (%.0f) must be below coast_altitude_m (%.0f)", a.TurnStartAltitudeM, a.CoastAltitudeM)
	}
	if a.CoastAltitudeM > a.TargetApoapsisM {
		return fmt.Errorf("coast_altitude_m (%.0f) must not exceed target_apoapsis_m (%.0f)", a.CoastAltitudeM, a.TargetApoapsisM)
	}
	if a.TargetPeriapsisM > a.TargetApoapsisM {
		return fmt.Errorf("target_periapsis_m (%.0f) must not exceed target_apoapsis_m (%.0f)", a.TargetPeriapsisM, a.TargetApoapsisM)
	}
	for i := 1; i < len(a.FuelAdvisoryLevels); i++ {
		if a.FuelAdvisoryLevels[i] >= a.FuelAdvisoryLevels[i-1] {
			return fmt.Errorf("fuel_advisory_levels must be strictly decreasing, got %v", a.FuelAdvisoryLevels)
		}
	}
	return nil
}
