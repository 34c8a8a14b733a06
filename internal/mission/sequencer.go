package mission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ksp-autopilot/internal/flightlog"
	"ksp-autopilot/internal/logging"
	"ksp-autopilot/internal/telemetry"
)

// PhaseSink is notified of phase transitions (implemented by the TUI writer).
type PhaseSink interface {
	SetPhase(name string)
}

// Sequencer drives the phases in order, reading the telemetry source inside
// each phase's polling loop and pushing lines to the event logger and rows to
// the flight recorder on their cadences. It is strictly sequential; the only
// concurrency is in the writers behind it.
type Sequencer struct {
	src      telemetry.Source
	events   *flightlog.EventLogger
	recorder *flightlog.Recorder
	samples  flightlog.SampleWriter
	phases   PhaseSink
	meta     flightlog.Meta

	now   func() time.Time
	sleep func(time.Duration)
}

// Result is the terminal mission state handed to the summary reporter.
type Result struct {
	FuelEmpty bool
	Final     telemetry.Snapshot
	Elapsed   time.Duration
	// Visited lists phase names in traversal order, ending with
	// "mission_summary" or "aborted".
	Visited []string
}

// Outcome classifies the result. See Classify.
func (r *Result) Outcome() Outcome {
	return Classify(r.FuelEmpty, r.Final.Periapsis)
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithSampleWriter attaches an exportable flight-sample sink, fed on each
// phase's data cadence alongside the recorder.
func WithSampleWriter(w flightlog.SampleWriter) Option {
	return func(s *Sequencer) { s.samples = w }
}

// WithPhaseSink attaches a phase-transition listener.
func WithPhaseSink(p PhaseSink) Option {
	return func(s *Sequencer) { s.phases = p }
}

// WithClock injects time functions for tests.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(s *Sequencer) {
		s.now = now
		s.sleep = sleep
	}
}

// NewSequencer wires the sequencer to its telemetry source and log channels.
func NewSequencer(src telemetry.Source, events *flightlog.EventLogger, rec *flightlog.Recorder, meta flightlog.Meta, opts ...Option) *Sequencer {
	s := &Sequencer{
		src:      src,
		events:   events,
		recorder: rec,
		meta:     meta,
		now:      time.Now,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the phases strictly in order. It returns a Result once every
// phase has exited or an abort condition fired; any error is fatal to the
// mission (entry actuation failure, logging failure, phase timeout, context
// cancellation).
func (s *Sequencer) Run(ctx context.Context, phases []Phase) (*Result, error) {
	log := logging.FromContext(ctx)
	start := s.now()
	res := &Result{}

	for _, ph := range phases {
		res.Visited = append(res.Visited, ph.Name)
		if s.phases != nil {
			s.phases.SetPhase(ph.Name)
		}
		if s.recorder != nil {
			s.recorder.Annotate("PHASE: " + strings.ToUpper(ph.Name))
		}
		if ph.Entry != nil {
			if err := ph.Entry(); err != nil {
				return nil, fmt.Errorf("phase %s entry: %w", ph.Name, err)
			}
		}
		if ph.Exit == nil {
			continue
		}

		last, aborted, err := s.poll(ctx, ph, start)
		if err != nil {
			return nil, err
		}
		res.Final = last
		if ph.Leave != nil {
			if err := ph.Leave(last, aborted); err != nil {
				return nil, fmt.Errorf("phase %s leave: %w", ph.Name, err)
			}
		}
		if aborted {
			log.Warn("mission aborted", "phase", ph.Name)
			res.FuelEmpty = true
			break
		}
	}

	// Terminal state: read the final orbit once more so the summary reflects
	// post-cutoff values. A failed read keeps the last in-loop snapshot.
	if snap, err := telemetry.Collect(s.src); err == nil {
		res.Final = snap
	} else {
		log.Warn("final telemetry read failed", "err", err)
	}
	if res.FuelEmpty {
		res.Visited = append(res.Visited, "aborted")
	} else {
		res.Visited = append(res.Visited, "mission_summary")
	}
	res.Elapsed = s.now().Sub(start)
	return res, nil
}

// poll runs one phase's polling loop. It returns the last good snapshot and
// whether the abort predicate fired.
func (s *Sequencer) poll(ctx context.Context, ph Phase, missionStart time.Time) (telemetry.Snapshot, bool, error) {
	log := logging.FromContext(ctx)
	deadline := s.now().Add(ph.Cadence.Timeout.Std())
	var lastReport, lastData time.Time
	var last telemetry.Snapshot

	for {
		if err := ctx.Err(); err != nil {
			return last, false, err
		}
		// Checked before the read so a source that fails on every poll still
		// ends the phase.
		if s.now().After(deadline) {
			return last, false, fmt.Errorf("phase %s: exit condition not met within %s", ph.Name, ph.Cadence.Timeout.Std())
		}

		snap, err := telemetry.Collect(s.src)
		if err != nil {
			// Transient telemetry failure: keep flying on stale data.
			log.Warn("telemetry read failed", "phase", ph.Name, "err", err)
			s.sleep(ph.Cadence.Poll.Std())
			continue
		}
		last = snap

		// Abort is checked before anything else so the first reading at or
		// below the threshold ends the phase.
		if ph.Abort != nil && ph.Abort(snap) {
			return snap, true, nil
		}

		now := s.now()
		if now.Sub(lastData) >= ph.Cadence.Data.Std() {
			s.recordSample(ctx, ph.Name, snap, now, missionStart)
			lastData = now
		}
		if ph.Report != nil && now.Sub(lastReport) >= ph.Cadence.Report.Std() {
			if line := ph.Report(snap); line != "" {
				if err := s.events.Log(line); err != nil {
					return snap, false, err
				}
			}
			lastReport = now
		}
		if ph.Tick != nil {
			ph.Tick(snap)
		}
		if ph.Exit(snap) {
			return snap, false, nil
		}
		s.sleep(ph.Cadence.Poll.Std())
	}
}

func (s *Sequencer) recordSample(ctx context.Context, phase string, snap telemetry.Snapshot, now, missionStart time.Time) {
	if s.recorder != nil {
		s.recorder.RecordSnapshot(snap)
	}
	if s.samples != nil {
		sample := telemetry.NewSample(snap, s.meta.FlightID, s.meta.Vessel, s.meta.Body, phase, now.Sub(missionStart), now)
		if err := s.samples.WriteSample(sample); err != nil {
			logging.FromContext(ctx).Warn("sample write failed", "phase", phase, "err", err)
		}
	}
}
