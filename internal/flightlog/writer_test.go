package flightlog

import (
	"path/filepath"
	"testing"
	"time"

	"ksp-autopilot/internal/telemetry"
)

type mockWriter struct {
	rows []telemetry.FlightSample
}

func (m *mockWriter) WriteSample(row telemetry.FlightSample) error {
	m.rows = append(m.rows, row)
	return nil
}

type mockBatchWriter struct {
	mockWriter
	batches int
}

func (m *mockBatchWriter) WriteSamples(rows []telemetry.FlightSample) error {
	m.batches++
	m.rows = append(m.rows, rows...)
	return nil
}

func sampleAt(phase string, elapsed time.Duration, ts time.Time) telemetry.FlightSample {
	snap := telemetry.Snapshot{Altitude: 1000 * elapsed.Seconds(), Fuel: 1440}
	return telemetry.NewSample(snap, "f1", "Test Vessel", "Kerbin", phase, elapsed, ts)
}

func TestFileWriterReplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.jsonl")
	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	want := []telemetry.FlightSample{
		sampleAt("ignition", 0, base),
		sampleAt("gravity_turn", 5*time.Second, base.Add(5*time.Second)),
		sampleAt("powered_ascent", 40*time.Second, base.Add(40*time.Second)),
	}
	for _, row := range want {
		if err := fw.WriteSample(row); err != nil {
			t.Fatalf("WriteSample: %v", err)
		}
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sink := &mockWriter{}
	if err := ReplayFile(path, sink, 0); err != nil {
		t.Fatalf("ReplayFile: %v", err)
	}
	if len(sink.rows) != len(want) {
		t.Fatalf("replayed %d rows, want %d", len(sink.rows), len(want))
	}
	for i, row := range sink.rows {
		if row.Phase != want[i].Phase {
			t.Errorf("row %d phase = %q, want %q", i, row.Phase, want[i].Phase)
		}
		if !row.Timestamp.Equal(want[i].Timestamp) {
			t.Errorf("row %d ts = %v, want %v", i, row.Timestamp, want[i].Timestamp)
		}
		if row.Altitude != want[i].Altitude {
			t.Errorf("row %d altitude = %v, want %v", i, row.Altitude, want[i].Altitude)
		}
	}
}

func TestMultiWriterFansOut(t *testing.T) {
	a := &mockWriter{}
	b := &mockWriter{}
	mw := NewMultiWriter(a, b)

	row := sampleAt("coast", time.Minute, time.Now())
	if err := mw.WriteSample(row); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if len(a.rows) != 1 || len(b.rows) != 1 {
		t.Errorf("fan-out rows = %d/%d, want 1/1", len(a.rows), len(b.rows))
	}
}

func TestMultiWriterUsesBatchWhenSupported(t *testing.T) {
	plain := &mockWriter{}
	batch := &mockBatchWriter{}
	mw := NewMultiWriter(plain, batch)

	rows := []telemetry.FlightSample{
		sampleAt("coast", time.Minute, time.Now()),
		sampleAt("coast", time.Minute+time.Second, time.Now()),
	}
	if err := mw.WriteSamples(rows); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if len(plain.rows) != 2 {
		t.Errorf("plain writer rows = %d, want 2", len(plain.rows))
	}
	if batch.batches != 1 || len(batch.rows) != 2 {
		t.Errorf("batch writer batches = %d rows = %d, want 1/2", batch.batches, len(batch.rows))
	}
}
