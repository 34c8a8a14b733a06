package flightlog

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"ksp-autopilot/internal/telemetry"
)

// Columns of the flight-data table, written once at file creation. Record
// emits fields in exactly this order.
var dataColumns = []string{
	"Time(s)",
	"Alt(km)",
	"Speed(m/s)",
	"VSpeed(m/s)",
	"HSpeed(m/s)",
	"Apo(km)",
	"Peri(km)",
	"Pitch(deg)",
	"Heading(deg)",
	"Fuel",
	"Oxidizer",
}

// Meta identifies the flight being recorded.
type Meta struct {
	FlightID string
	Vessel   string
	Body     string
}

// Recorder appends fixed-width pipe-delimited telemetry rows to the
// flight-data file. Row failures are logged and skipped, never propagated:
// losing one sample must not abort a mission.
type Recorder struct {
	src       telemetry.Source
	file      *os.File
	meta      Meta
	log       *slog.Logger
	now       func() time.Time
	start     time.Time
	finalized bool
}

// NewRecorder truncates path and writes the header block and column titles.
func NewRecorder(path string, src telemetry.Source, meta Meta, log *slog.Logger) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create flight-data file: %w", err)
	}
	r := &Recorder{src: src, file: f, meta: meta, log: log, now: time.Now}
	r.start = r.now()

	var b strings.Builder
	border := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\nFLIGHT DATA - CONTINUOUS RECORD\n", border)
	fmt.Fprintf(&b, "Flight ID: %s\n", meta.FlightID)
	fmt.Fprintf(&b, "Started: %s\n", r.start.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Vessel: %s\nBody: %s\n%s\n\n", meta.Vessel, meta.Body, border)
	b.WriteString(strings.Join(dataColumns, " | ") + "\n")
	b.WriteString(strings.Repeat("-", 120) + "\n")
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return nil, fmt.Errorf("write flight-data header: %w", err)
	}
	return r, nil
}

// Record takes a fresh snapshot and appends one row. A failure reading any
// telemetry field skips the row wholesale so the table never contains a
// malformed line.
func (r *Recorder) Record() {
	snap, err := telemetry.Collect(r.src)
	if err != nil {
		r.log.Warn("flight-data sample skipped", "err", err)
		return
	}
	r.RecordSnapshot(snap)
}

// RecordSnapshot appends one row for an already-collected snapshot.
func (r *Recorder) RecordSnapshot(snap telemetry.Snapshot) {
	elapsed := r.now().Sub(r.start).Seconds()
	fields := []string{
		fmt.Sprintf("%6.1f", elapsed),
		fmt.Sprintf("%8.2f", snap.Altitude/1000),
		fmt.Sprintf("%8.1f", snap.Speed),
		fmt.Sprintf("%8.1f", snap.VerticalSpeed),
		fmt.Sprintf("%8.1f", snap.HorizontalSpeed),
		fmt.Sprintf("%8.2f", snap.Apoapsis/1000),
		fmt.Sprintf("%8.2f", snap.Periapsis/1000),
		fmt.Sprintf("%8.1f", snap.Pitch),
		fmt.Sprintf("%8.1f", snap.Heading),
		fmt.Sprintf("%8.1f", snap.Fuel),
		fmt.Sprintf("%8.1f", snap.Oxidizer),
	}
	if _, err := r.file.WriteString(strings.Join(fields, " | ") + "\n"); err != nil {
		r.log.Warn("flight-data row write failed", "err", err)
	}
}

// Annotate appends a free-text timestamped status line between table rows.
// Used at phase boundaries.
func (r *Recorder) Annotate(status string) {
	line := fmt.Sprintf("\n[%s] %s\n", r.now().Format("15:04:05"), status)
	if _, err := r.file.WriteString(line); err != nil {
		r.log.Warn("flight-data annotation failed", "err", err)
	}
}

// Finalize appends the elapsed-time summary and closes the file. Safe to call
// more than once; only the first call writes and closes.
func (r *Recorder) Finalize() error {
	if r.finalized {
		return nil
	}
	r.finalized = true
	elapsed := r.now().Sub(r.start).Seconds()
	border := strings.Repeat("=", 60)
	summary := fmt.Sprintf("\n%s\nRECORD SUMMARY\nTotal flight time: %.1f s\nEnded: %s\n%s\n",
		border, elapsed, r.now().Format("2006-01-02 15:04:05"), border)
	if _, err := r.file.WriteString(summary); err != nil {
		r.file.Close()
		return fmt.Errorf("write flight-data summary: %w", err)
	}
	return r.file.Close()
}
