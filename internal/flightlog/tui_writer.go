package flightlog

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"ksp-autopilot/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// eventMsg carries an event-log line for the viewport.
type eventMsg struct{ line string }

// sampleMsg carries the latest flight sample.
type sampleMsg struct{ telemetry.FlightSample }

// phaseMsg reports a phase transition.
type phaseMsg struct{ name string }

const maxEventLines = 500

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	tuiPhaseStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	tuiDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TUIWriter renders the mission live: a telemetry readout table on top and
// the scrolling event log underneath. It implements SampleWriter and
// EventSink so the sequencer needs no TUI awareness.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(vessel, body string) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(vessel, body)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_ = p.Start()
		close(w.done)
		if w.sendSignal.Load() {
			// User quit the TUI; interrupt the mission loop too.
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteSample implements SampleWriter.
func (w *TUIWriter) WriteSample(row telemetry.FlightSample) error {
	w.program.Send(sampleMsg{row})
	return nil
}

// WriteSamples sends multiple samples.
func (w *TUIWriter) WriteSamples(rows []telemetry.FlightSample) error {
	for _, r := range rows {
		_ = w.WriteSample(r)
	}
	return nil
}

// Event implements EventSink.
func (w *TUIWriter) Event(line string) {
	w.program.Send(eventMsg{line: line})
}

// SetPhase updates the phase indicator in the header.
func (w *TUIWriter) SetPhase(name string) {
	w.program.Send(phaseMsg{name: name})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	vessel string
	body   string
	phase  string
	table  table.Model
	vp     viewport.Model
	logs   []string
	sample telemetry.FlightSample
	width  int
	height int
	ready  bool
}

func newTUIModel(vessel, body string) tuiModel {
	cols := []table.Column{
		{Title: "Alt km", Width: 9},
		{Title: "Apo km", Width: 9},
		{Title: "Peri km", Width: 9},
		{Title: "Spd m/s", Width: 9},
		{Title: "VSpd", Width: 8},
		{Title: "HSpd", Width: 8},
		{Title: "Pitch", Width: 7},
		{Title: "Hdg", Width: 7},
		{Title: "Fuel", Width: 8},
		{Title: "Oxid", Width: 8},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(2))
	return tuiModel{vessel: vessel, body: body, phase: "prelaunch", table: t, vp: viewport.New(0, 0)}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.vp.Height = msg.Height - lipgloss.Height(m.headerView())
		m.ready = true
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.vp.LineUp(1)
		case "down", "j":
			m.vp.LineDown(1)
		case "pgup":
			m.vp.HalfViewUp()
		case "pgdown":
			m.vp.HalfViewDown()
		}
	case eventMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxEventLines {
			m.logs = m.logs[len(m.logs)-maxEventLines:]
		}
		m.refreshViewport()
	case sampleMsg:
		m.sample = msg.FlightSample
		m.table.SetRows([]table.Row{{
			fmt.Sprintf("%.2f", m.sample.Altitude/1000),
			fmt.Sprintf("%.2f", m.sample.Apoapsis/1000),
			fmt.Sprintf("%.2f", m.sample.Periapsis/1000),
			fmt.Sprintf("%.1f", m.sample.Speed),
			fmt.Sprintf("%.1f", m.sample.VerticalSpeed),
			fmt.Sprintf("%.1f", m.sample.HorizontalSpeed),
			fmt.Sprintf("%.1f", m.sample.Pitch),
			fmt.Sprintf("%.1f", m.sample.Heading),
			fmt.Sprintf("%.1f", m.sample.Fuel),
			fmt.Sprintf("%.1f", m.sample.Oxidizer),
		}})
	case phaseMsg:
		m.phase = msg.name
	}
	return m, nil
}

func (m *tuiModel) refreshViewport() {
	if !m.ready {
		return
	}
	var content string
	for _, l := range m.logs {
		content += wordwrap.String(l, m.width) + "\n"
	}
	m.vp.SetContent(content)
	m.vp.GotoBottom()
}

func (m tuiModel) headerView() string {
	title := tuiTitleStyle.Render(fmt.Sprintf("%s @ %s", m.vessel, m.body))
	phase := tuiPhaseStyle.Render("phase: " + m.phase)
	elapsed := tuiDimStyle.Render(fmt.Sprintf("T+%.1fs", m.sample.ElapsedS))
	ts := tuiDimStyle.Render(m.sample.Timestamp.Format(time.TimeOnly))
	line := lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", phase, "  ", elapsed, "  ", ts)
	return lipgloss.JoinVertical(lipgloss.Left, line, m.table.View())
}

func (m tuiModel) View() string {
	if !m.ready {
		return "starting..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.vp.View())
}
