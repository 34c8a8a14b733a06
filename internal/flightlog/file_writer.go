package flightlog

import (
	"encoding/json"
	"os"

	"ksp-autopilot/internal/telemetry"
)

// FileWriter exports flight samples to a JSONL file, one sample per line.
// This is the machine-readable companion to the fixed-width flight-data
// table and the input format for replay.
type FileWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates (truncating) the sample log at path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// WriteSample logs a single flight sample.
func (f *FileWriter) WriteSample(row telemetry.FlightSample) error {
	return f.enc.Encode(row)
}

// WriteSamples logs multiple flight samples.
func (f *FileWriter) WriteSamples(rows []telemetry.FlightSample) error {
	for _, r := range rows {
		if err := f.WriteSample(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	return f.file.Close()
}
