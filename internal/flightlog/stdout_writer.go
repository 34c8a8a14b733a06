// Writer implementation printing flight samples to STDOUT
package flightlog

import (
	"encoding/json"
	"fmt"

	"ksp-autopilot/internal/telemetry"
)

// StdoutWriter prints flight samples to STDOUT as JSON lines.
type StdoutWriter struct{}

// WriteSample outputs a single sample.
func (w *StdoutWriter) WriteSample(row telemetry.FlightSample) error {
	data, _ := json.Marshal(row)
	fmt.Println(string(data))
	return nil
}

// WriteSamples outputs multiple samples.
func (w *StdoutWriter) WriteSamples(rows []telemetry.FlightSample) error {
	for _, r := range rows {
		_ = w.WriteSample(r)
	}
	return nil
}
