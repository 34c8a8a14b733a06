// Package flightlog owns the two mission output streams: the timestamped
// event log and the tabular flight-data file.
package flightlog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// EventSink receives every event line as it is logged, in addition to the
// console and the file. Used to feed the live TUI.
type EventSink interface {
	Event(line string)
}

// EventLogger mirrors timestamped mission events to the console and an append
// file. The file is truncated at construction and every write goes straight
// to the OS so content survives a crash of the sequencer. Logging failures
// are surfaced to the caller; the mission treats them as fatal.
type EventLogger struct {
	file *os.File
	sink EventSink
	now  func() time.Time

	timeStyle *color.Color
	bannerSty *color.Color
}

// NewEventLogger truncates path and writes the log header.
func NewEventLogger(path string) (*EventLogger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create event log: %w", err)
	}
	l := &EventLogger{
		file:      f,
		now:       time.Now,
		timeStyle: color.New(color.FgHiBlack),
		bannerSty: color.New(color.FgCyan, color.Bold),
	}
	header := fmt.Sprintf("=== KSP AUTOPILOT LOG ===\nStarted: %s\n%s\n\n",
		l.now().Format("2006-01-02 15:04:05"), strings.Repeat("=", 40))
	if _, err := f.WriteString(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write event log header: %w", err)
	}
	return l, nil
}

// SetSink registers a sink that receives every line. Pass nil to detach.
func (l *EventLogger) SetSink(sink EventSink) { l.sink = sink }

// Log writes a timestamped message to console and file.
func (l *EventLogger) Log(message string) error {
	ts := l.now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", ts, message)
	if l.sink != nil {
		l.sink.Event(line)
	} else {
		l.timeStyle.Printf("[%s] ", ts)
		fmt.Println(message)
	}
	if _, err := l.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append event log: %w", err)
	}
	return nil
}

// Logf is Log with formatting.
func (l *EventLogger) Logf(format string, args ...any) error {
	return l.Log(fmt.Sprintf(format, args...))
}

// Raw writes a message without a timestamp.
func (l *EventLogger) Raw(message string) error {
	if l.sink != nil {
		l.sink.Event(message)
	} else {
		fmt.Println(message)
	}
	if _, err := l.file.WriteString(message + "\n"); err != nil {
		return fmt.Errorf("append event log: %w", err)
	}
	return nil
}

// Section writes a bordered upper-cased banner without timestamps.
func (l *EventLogger) Section(title string) error {
	border := strings.Repeat("=", 50)
	for _, line := range []string{border, strings.ToUpper(title), border} {
		if l.sink != nil {
			l.sink.Event(line)
		} else {
			l.bannerSty.Println(line)
		}
		if _, err := l.file.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("append event log: %w", err)
		}
	}
	return nil
}

// Close closes the underlying file. Called exactly once at mission end.
func (l *EventLogger) Close() error {
	return l.file.Close()
}
