package flightlog

import "ksp-autopilot/internal/telemetry"

// SampleWriter is an interface to support different flight-sample sinks.
type SampleWriter interface {
	WriteSample(telemetry.FlightSample) error
}

// Optional: writers can also support batch mode.
type batchSampleWriter interface {
	WriteSamples([]telemetry.FlightSample) error
}

// MultiWriter fans a sample out to multiple writers.
type MultiWriter struct {
	writers []SampleWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...SampleWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// WriteSample sends a sample to all writers.
func (mw *MultiWriter) WriteSample(row telemetry.FlightSample) error {
	for _, w := range mw.writers {
		if err := w.WriteSample(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteSamples sends multiple samples to all writers, using batch if supported.
func (mw *MultiWriter) WriteSamples(rows []telemetry.FlightSample) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchSampleWriter); ok {
			if err := bw.WriteSamples(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteSample(r); err != nil {
				return err
			}
		}
	}
	return nil
}
