package main

import (
	"log/slog"
	"os"

	"ksp-autopilot/internal/flightlog"
)

// newSampleWriters assembles the optional flight-sample sinks from flags and
// env vars. It returns the fan-out writer (nil when no sink is enabled), the
// TUI writer if one was started, and a cleanup function closing all
// resources.
func newSampleWriters(logFile, sqlitePath string, tui bool, vessel, body string, log *slog.Logger) (flightlog.SampleWriter, *flightlog.TUIWriter, func(), error) {
	var writers []flightlog.SampleWriter
	var closers []func()

	if logFile != "" {
		fw, err := flightlog.NewFileWriter(logFile)
		if err != nil {
			return nil, nil, nil, err
		}
		writers = append(writers, fw)
		closers = append(closers, func() { fw.Close() })
	}
	if sqlitePath != "" {
		sw, err := flightlog.NewSQLiteWriter(sqlitePath)
		if err != nil {
			runClosers(closers)
			return nil, nil, nil, err
		}
		writers = append(writers, sw)
		closers = append(closers, func() { sw.Close() })
	}
	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		gw, err := flightlog.NewGreptimeDBWriter(endpoint, "public", log)
		if err != nil {
			runClosers(closers)
			return nil, nil, nil, err
		}
		writers = append(writers, gw)
	}

	var tuiWriter *flightlog.TUIWriter
	if tui {
		tuiWriter = flightlog.NewTUIWriter(vessel, body)
		writers = append(writers, tuiWriter)
		closers = append(closers, func() { tuiWriter.Close() })
	}

	cleanup := func() { runClosers(closers) }
	if len(writers) == 0 {
		return nil, nil, cleanup, nil
	}
	if len(writers) == 1 {
		return writers[0], tuiWriter, cleanup, nil
	}
	return flightlog.NewMultiWriter(writers...), tuiWriter, cleanup, nil
}

func runClosers(closers []func()) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
