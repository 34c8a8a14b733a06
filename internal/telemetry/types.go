// Telemetry types shared by the mission sequencer and the flight recorder.
package telemetry

import (
	"os"
	"time"
)

// Snapshot is one immutable read of the vessel and orbit state. All distances
// are meters, speeds m/s, angles degrees, propellant in resource units.
type Snapshot struct {
	Altitude        float64
	Apoapsis        float64
	Periapsis       float64
	VerticalSpeed   float64
	HorizontalSpeed float64
	Speed           float64
	Pitch           float64
	Heading         float64
	Fuel            float64
	Oxidizer        float64
}

// FlightSample is one exportable telemetry record: a Snapshot stamped with
// flight identity and mission context.
type FlightSample struct {
	FlightID        string    `json:"flight_id"` // TAG
	Vessel          string    `json:"vessel"`    // TAG
	Body            string    `json:"body"`      // TAG
	Phase           string    `json:"phase"`
	ElapsedS        float64   `json:"elapsed_s"`
	Altitude        float64   `json:"altitude"`
	Apoapsis        float64   `json:"apoapsis"`
	Periapsis       float64   `json:"periapsis"`
	VerticalSpeed   float64   `json:"vertical_speed"`
	HorizontalSpeed float64   `json:"horizontal_speed"`
	Speed           float64   `json:"speed"`
	Pitch           float64   `json:"pitch"`
	Heading         float64   `json:"heading"`
	Fuel            float64   `json:"fuel"`
	Oxidizer        float64   `json:"oxidizer"`
	Timestamp       time.Time `json:"ts"` // TIME INDEX
}

// FlightTableName holds the table name used when writing samples to a
// time-series store. It defaults to "flight_telemetry" but can be overridden
// via the FLIGHT_TABLE environment variable.
var FlightTableName = func() string {
	if env := os.Getenv("FLIGHT_TABLE"); env != "" {
		return env
	}
	return "flight_telemetry"
}()

func (FlightSample) TableName() string {
	return FlightTableName
}

// NewSample stamps a Snapshot into a FlightSample.
func NewSample(snap Snapshot, flightID, vessel, body, phase string, elapsed time.Duration, ts time.Time) FlightSample {
	return FlightSample{
		FlightID:        flightID,
		Vessel:          vessel,
		Body:            body,
		Phase:           phase,
		ElapsedS:        elapsed.Seconds(),
		Altitude:        snap.Altitude,
		Apoapsis:        snap.Apoapsis,
		Periapsis:       snap.Periapsis,
		VerticalSpeed:   snap.VerticalSpeed,
		HorizontalSpeed: snap.HorizontalSpeed,
		Speed:           snap.Speed,
		Pitch:           snap.Pitch,
		Heading:         snap.Heading,
		Fuel:            snap.Fuel,
		Oxidizer:        snap.Oxidizer,
		Timestamp:       ts,
	}
}
