package mission

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ksp-autopilot/internal/config"
	"ksp-autopilot/internal/control"
	"ksp-autopilot/internal/flightlog"
	"ksp-autopilot/internal/logging"
	"ksp-autopilot/internal/telemetry"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time        { return c.t }
func (c *fakeClock) Sleep(d time.Duration) { c.t = c.t.Add(d) }

// scriptedSource serves a fixed sequence of snapshots; the sequencer's sleep
// hook advances to the next one, and the last repeats forever.
type scriptedSource struct {
	snaps []telemetry.Snapshot
	idx   int
}

func (s *scriptedSource) cur() telemetry.Snapshot {
	i := s.idx
	if i >= len(s.snaps) {
		i = len(s.snaps) - 1
	}
	return s.snaps[i]
}

func (s *scriptedSource) advance() { s.idx++ }

func (s *scriptedSource) Altitude() (float64, error)        { return s.cur().Altitude, nil }
func (s *scriptedSource) Apoapsis() (float64, error)        { return s.cur().Apoapsis, nil }
func (s *scriptedSource) Periapsis() (float64, error)       { return s.cur().Periapsis, nil }
func (s *scriptedSource) VerticalSpeed() (float64, error)   { return s.cur().VerticalSpeed, nil }
func (s *scriptedSource) HorizontalSpeed() (float64, error) { return s.cur().HorizontalSpeed, nil }
func (s *scriptedSource) Speed() (float64, error)           { return s.cur().Speed, nil }
func (s *scriptedSource) Pitch() (float64, error)           { return s.cur().Pitch, nil }
func (s *scriptedSource) Heading() (float64, error)         { return s.cur().Heading, nil }
func (s *scriptedSource) Fuel() (float64, error)            { return s.cur().Fuel, nil }
func (s *scriptedSource) Oxidizer() (float64, error)        { return s.cur().Oxidizer, nil }

type fakeAutoPilot struct {
	engaged    int
	disengaged int
	waited     int
	targets    [][2]float64
}

func (a *fakeAutoPilot) Engage() error { a.engaged++; return nil }
func (a *fakeAutoPilot) TargetPitchHeading(pitch, heading float64) error {
	a.targets = append(a.targets, [2]float64{pitch, heading})
	return nil
}
func (a *fakeAutoPilot) Wait() error      { a.waited++; return nil }
func (a *fakeAutoPilot) Disengage() error { a.disengaged++; return nil }

type fakePanel struct {
	name       string
	deployable bool
	deployed   bool
	failWith   error
}

func (p *fakePanel) Name() string              { return p.name }
func (p *fakePanel) Deployable() (bool, error) { return p.deployable, nil }
func (p *fakePanel) Deploy() error {
	if p.failWith != nil {
		return p.failWith
	}
	p.deployed = true
	return nil
}

type fakeActuator struct {
	throttles  []float64
	staged     int
	sas        []bool
	sasModes   []control.Mode
	sasModeErr error
	ap         fakeAutoPilot
	panels     []control.Panel
}

func (a *fakeActuator) SetThrottle(level float64) error { a.throttles = append(a.throttles, level); return nil }
func (a *fakeActuator) Stage() error                    { a.staged++; return nil }
func (a *fakeActuator) SetSAS(enabled bool) error       { a.sas = append(a.sas, enabled); return nil }
func (a *fakeActuator) SetSASMode(mode control.Mode) error {
	if a.sasModeErr != nil {
		return a.sasModeErr
	}
	a.sasModes = append(a.sasModes, mode)
	return nil
}
func (a *fakeActuator) AutoPilot() control.AutoPilot     { return &a.ap }
func (a *fakeActuator) Panels() ([]control.Panel, error) { return a.panels, nil }

func (a *fakeActuator) lastThrottle() float64 {
	if len(a.throttles) == 0 {
		return -1
	}
	return a.throttles[len(a.throttles)-1]
}

// harness wires a profile and sequencer over scripted telemetry.
type harness struct {
	clk     *fakeClock
	src     *scriptedSource
	act     *fakeActuator
	events  *flightlog.EventLogger
	logPath string
	profile *AscentProfile
	seq     *Sequencer
}

func newHarness(t *testing.T, snaps []telemetry.Snapshot) *harness {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "events.txt")
	events, err := flightlog.NewEventLogger(logPath)
	if err != nil {
		t.Fatalf("NewEventLogger: %v", err)
	}
	t.Cleanup(func() { events.Close() })

	clk := &fakeClock{t: time.Unix(1000, 0)}
	src := &scriptedSource{snaps: snaps}
	act := &fakeActuator{panels: []control.Panel{
		&fakePanel{name: "p1", deployable: true},
		&fakePanel{name: "p2", deployable: true},
	}}
	cfg := config.Default()
	profile := NewAscentProfile(cfg, AscentDeps{
		Source:   src,
		Actuator: act,
		Events:   events,
		Log:      slog.New(slog.DiscardHandler),
		Now:      clk.Now,
		Sleep:    clk.Sleep,
	})
	seq := NewSequencer(src, events, nil, flightlog.Meta{FlightID: "test"},
		WithClock(clk.Now, func(d time.Duration) {
			clk.Sleep(d)
			src.advance()
		}))
	return &harness{clk: clk, src: src, act: act, events: events, logPath: logPath, profile: profile, seq: seq}
}

func (h *harness) eventLog(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(h.logPath)
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	return string(data)
}

func snapsFromAltitudes(alts ...float64) []telemetry.Snapshot {
	snaps := make([]telemetry.Snapshot, len(alts))
	for i, a := range alts {
		snaps[i] = telemetry.Snapshot{Altitude: a, Fuel: 1000, Oxidizer: 1000, Pitch: 90, Heading: 90}
	}
	return snaps
}

func TestGravityTurnExitsAtThreshold(t *testing.T) {
	h := newHarness(t, snapsFromAltitudes(0, 5000, 9999, 10000, 20000))

	phases := h.profile.Phases()
	turn := phases[1]
	res, err := h.seq.Run(context.Background(), []Phase{turn})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The loop must exit on the first reading at exactly the threshold, not
	// on the later larger one.
	if res.Final.Altitude != 10000 {
		t.Errorf("exit altitude = %v, want 10000", res.Final.Altitude)
	}
	// Leave performs the one-shot pitch-over: SAS off, engage, target, wait,
	// disengage.
	if len(h.act.sas) == 0 || h.act.sas[len(h.act.sas)-1] != false {
		t.Errorf("expected SAS disabled on leave, got %v", h.act.sas)
	}
	if h.act.ap.engaged != 1 || h.act.ap.waited != 1 || h.act.ap.disengaged != 1 {
		t.Errorf("autopilot calls = engage %d wait %d disengage %d, want 1/1/1",
			h.act.ap.engaged, h.act.ap.waited, h.act.ap.disengaged)
	}
	if len(h.act.ap.targets) != 1 || h.act.ap.targets[0] != [2]float64{70, 90} {
		t.Errorf("pitch-over target = %v, want [70 90]", h.act.ap.targets)
	}
}

func TestFuelAdvisoriesEdgeTriggered(t *testing.T) {
	snaps := []telemetry.Snapshot{
		{Apoapsis: 10000, Fuel: 150, Oxidizer: 1000, Pitch: 10},
		{Apoapsis: 20000, Fuel: 90, Oxidizer: 1000, Pitch: 10},
		{Apoapsis: 40000, Fuel: 40, Oxidizer: 1000, Pitch: 10},
		{Apoapsis: 50000, Fuel: 35, Oxidizer: 1000, Pitch: 10},
		{Apoapsis: 60000, Fuel: 30, Oxidizer: 1000, Pitch: 10},
		{Apoapsis: 85000, Fuel: 25, Oxidizer: 1000, Pitch: 10},
	}
	h := newHarness(t, snaps)

	ascent := h.profile.Phases()[2]
	if _, err := h.seq.Run(context.Background(), []Phase{ascent}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	log := h.eventLog(t)
	low := strings.Count(log, "Low propellant")
	veryLow := strings.Count(log, "Very low propellant")
	if low != 1 || veryLow != 1 {
		t.Fatalf("advisories low=%d veryLow=%d, want exactly 1 each\nlog:\n%s", low, veryLow, log)
	}
	if strings.Index(log, "Low propellant") > strings.Index(log, "Very low propellant") {
		t.Errorf("advisories out of order:\n%s", log)
	}
}

func TestCircularizationAbortOnFirstLowReading(t *testing.T) {
	snaps := []telemetry.Snapshot{
		{Periapsis: -50000, Fuel: 5, Oxidizer: 1000},
		{Periapsis: -20000, Fuel: 0.1, Oxidizer: 1000},
		{Periapsis: 10000, Fuel: 0, Oxidizer: 1000},
	}
	h := newHarness(t, snaps)

	burn := h.profile.Phases()[4]
	res, err := h.seq.Run(context.Background(), []Phase{burn})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.FuelEmpty {
		t.Fatal("expected FuelEmpty after abort")
	}
	// Abort fires on the first <=0.1 reading, before the 0.0 one is served.
	if res.Final.Fuel != 0.1 {
		t.Errorf("abort snapshot fuel = %v, want 0.1", res.Final.Fuel)
	}
	if got := h.act.lastThrottle(); got != 0 {
		t.Errorf("throttle on abort = %v, want 0", got)
	}
	if res.Visited[len(res.Visited)-1] != "aborted" {
		t.Errorf("visited = %v, want terminal aborted", res.Visited)
	}
}

func TestCircularizationNominalCutoff(t *testing.T) {
	snaps := []telemetry.Snapshot{
		{Periapsis: 10000, Fuel: 500, Oxidizer: 600},
		{Periapsis: 40000, Fuel: 450, Oxidizer: 540},
		{Periapsis: 74999, Fuel: 400, Oxidizer: 480},
		{Periapsis: 75000, Fuel: 390, Oxidizer: 470},
	}
	h := newHarness(t, snaps)

	burn := h.profile.Phases()[4]
	res, err := h.seq.Run(context.Background(), []Phase{burn})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FuelEmpty {
		t.Fatal("unexpected FuelEmpty")
	}
	if res.Final.Periapsis != 75000 {
		t.Errorf("exit periapsis = %v, want 75000", res.Final.Periapsis)
	}
	if got := h.act.lastThrottle(); got != 0 {
		t.Errorf("throttle after cutoff = %v, want 0", got)
	}
}

func TestPanelDeploymentIsolatesFailures(t *testing.T) {
	h := newHarness(t, snapsFromAltitudes(0, 50000, 78000))
	broken := &fakePanel{name: "stuck", deployable: true, failWith: errors.New("jammed")}
	good := &fakePanel{name: "good", deployable: true}
	h.act.panels = []control.Panel{broken, good}

	coast := h.profile.Phases()[3]
	if _, err := h.seq.Run(context.Background(), []Phase{coast}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !good.deployed {
		t.Error("good panel should deploy despite the broken one")
	}
	log := h.eventLog(t)
	if !strings.Contains(log, "Deployed 1 solar panel(s)") {
		t.Errorf("expected deploy count in log:\n%s", log)
	}
	if !strings.Contains(log, "stuck") {
		t.Errorf("expected per-panel failure in log:\n%s", log)
	}
}

func TestPhaseTimeout(t *testing.T) {
	h := newHarness(t, snapsFromAltitudes(100))
	ph := Phase{
		Name: "stuck",
		Exit: func(telemetry.Snapshot) bool { return false },
		Cadence: config.Cadence{
			Poll:    config.Duration(100 * time.Millisecond),
			Report:  config.Duration(time.Hour),
			Data:    config.Duration(time.Hour),
			Timeout: config.Duration(2 * time.Second),
		},
	}
	_, err := h.seq.Run(context.Background(), []Phase{ph})
	if err == nil || !strings.Contains(err.Error(), "exit condition not met") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

// failingSource errors on every read.
type failingSource struct{}

func (failingSource) Altitude() (float64, error)        { return 0, errors.New("no signal") }
func (failingSource) Apoapsis() (float64, error)        { return 0, errors.New("no signal") }
func (failingSource) Periapsis() (float64, error)       { return 0, errors.New("no signal") }
func (failingSource) VerticalSpeed() (float64, error)   { return 0, errors.New("no signal") }
func (failingSource) HorizontalSpeed() (float64, error) { return 0, errors.New("no signal") }
func (failingSource) Speed() (float64, error)           { return 0, errors.New("no signal") }
func (failingSource) Pitch() (float64, error)           { return 0, errors.New("no signal") }
func (failingSource) Heading() (float64, error)         { return 0, errors.New("no signal") }
func (failingSource) Fuel() (float64, error)            { return 0, errors.New("no signal") }
func (failingSource) Oxidizer() (float64, error)        { return 0, errors.New("no signal") }

func TestPhaseTimeoutWithFailingTelemetry(t *testing.T) {
	events, err := flightlog.NewEventLogger(filepath.Join(t.TempDir(), "events.txt"))
	if err != nil {
		t.Fatalf("NewEventLogger: %v", err)
	}
	defer events.Close()

	clk := &fakeClock{t: time.Unix(1000, 0)}
	polls := 0
	seq := NewSequencer(failingSource{}, events, nil, flightlog.Meta{FlightID: "test"},
		WithClock(clk.Now, func(d time.Duration) {
			polls++
			clk.Sleep(d)
		}))
	ph := Phase{
		Name: "stuck",
		Exit: func(telemetry.Snapshot) bool { return true },
		Cadence: config.Cadence{
			Poll:    config.Duration(100 * time.Millisecond),
			Report:  config.Duration(time.Hour),
			Data:    config.Duration(time.Hour),
			Timeout: config.Duration(2 * time.Second),
		},
	}
	ctx := logging.NewContext(context.Background(), slog.New(slog.DiscardHandler))
	_, err = seq.Run(ctx, []Phase{ph})
	if err == nil || !strings.Contains(err.Error(), "exit condition not met") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	// Exit never sees a snapshot, so the loop must stop at the deadline
	// instead of spinning on the error path.
	if polls > 25 {
		t.Errorf("polled %d times before the deadline, want about 21", polls)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := newHarness(t, snapsFromAltitudes(100))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ph := Phase{
		Name:    "stuck",
		Exit:    func(telemetry.Snapshot) bool { return false },
		Cadence: config.Default().Cadences.Coast,
	}
	if _, err := h.seq.Run(ctx, []Phase{ph}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
