package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ksp-autopilot/internal/config"
	"ksp-autopilot/internal/control"
	"ksp-autopilot/internal/flightlog"
	"ksp-autopilot/internal/krpc"
	"ksp-autopilot/internal/logging"
	"ksp-autopilot/internal/mission"
	"ksp-autopilot/internal/sim"
	"ksp-autopilot/internal/telemetry"
)

var (
	flyConfigPath string
	flySchemaPath string
	flySim        bool
	flyTimeScale  float64
	flyLogFile    string
	flySQLitePath string
	flyTUI        bool
	flyYes        bool
	flyVerbose    bool
)

// vesselLink is what a backend must provide: telemetry in, commands out.
type vesselLink interface {
	telemetry.Source
	control.Actuator
}

// capacitySource is an optional backend upgrade for the preflight report.
type capacitySource interface {
	MaxFuel() (float64, error)
	MaxOxidizer() (float64, error)
}

var flyCmd = &cobra.Command{
	Use:   "fly",
	Short: "Fly the ascent profile on the active vessel",
	Long:  "fly connects to the kRPC server (or a simulated vessel with --sim), runs the ascent-to-orbit sequence, and writes the event log and flight-data file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if flyVerbose {
			level = slog.LevelDebug
		}
		log := logging.New(os.Stderr, level)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		cfg, err := loadConfig(cmd, log)
		if err != nil {
			return err
		}

		if !term.IsTerminal(int(os.Stdout.Fd())) {
			color.NoColor = true
		}

		// Backend selection: a failed kRPC connection is fatal before any
		// actuation, with remediation steps for the operator.
		var link vesselLink
		var vesselName, bodyName string
		if flySim {
			vessel := sim.NewVessel(sim.WithTimeScale(flyTimeScale))
			link = vessel
			vesselName = vessel.Name()
			bodyName = vessel.Body()
			log.Info("using simulated vessel", "time_scale", flyTimeScale)
		} else {
			client, err := krpc.Connect(ctx, cfg.Connection)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Could not reach the kRPC server. Check that:")
				fmt.Fprintln(os.Stderr, "  1. KSP is running")
				fmt.Fprintln(os.Stderr, "  2. the kRPC server is started (Esc > Settings > kRPC > Start Server)")
				fmt.Fprintf(os.Stderr, "  3. it listens on %s:%d\n", cfg.Connection.Address, cfg.Connection.RPCPort)
				return err
			}
			defer client.Close()
			link = client
			vesselName = client.VesselName()
			bodyName = client.BodyName()
		}

		events, err := flightlog.NewEventLogger(cfg.Logs.EventFile)
		if err != nil {
			return err
		}
		defer events.Close()

		meta := flightlog.Meta{
			FlightID: uuid.New().String()[:8],
			Vessel:   vesselName,
			Body:     bodyName,
		}
		recorder, err := flightlog.NewRecorder(cfg.Logs.FlightDataFile, link, meta, log)
		if err != nil {
			// The mission can fly without the data file; the event log is the
			// one mandatory artifact.
			log.Warn("flight-data recorder unavailable", "err", err)
		}

		samples, tui, cleanup, err := newSampleWriters(flyLogFile, flySQLitePath, flyTUI, vesselName, bodyName, log)
		if err != nil {
			return err
		}
		defer cleanup()
		if tui != nil {
			events.SetSink(tui)
		}

		if err := preflight(events, link, meta); err != nil {
			return err
		}
		if recorder != nil {
			recorder.Annotate("MISSION START - VEHICLE ON PAD")
		}

		if !flyYes && tui == nil && term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Print("\nPress Enter to launch (make sure the vessel is on the pad)... ")
			bufio.NewReader(os.Stdin).ReadString('\n')
		}

		opts := []mission.Option{}
		if samples != nil {
			opts = append(opts, mission.WithSampleWriter(samples))
		}
		if tui != nil {
			opts = append(opts, mission.WithPhaseSink(tui))
		}
		seq := mission.NewSequencer(link, events, recorder, meta, opts...)
		profile := mission.NewAscentProfile(cfg, mission.AscentDeps{
			Source:   link,
			Actuator: link,
			Events:   events,
			Recorder: recorder,
			Log:      log,
		})

		res, err := seq.Run(ctx, profile.Phases())
		if err != nil {
			if recorder != nil {
				recorder.Annotate("MISSION INTERRUPTED")
				if ferr := recorder.Finalize(); ferr != nil {
					log.Warn("flight-data finalize failed", "err", ferr)
				}
			}
			return err
		}

		outcome, err := profile.Summary(res)
		if err != nil {
			return err
		}
		if err := closingBanner(events, cfg); err != nil {
			return err
		}
		if !outcome.Success() {
			return fmt.Errorf("mission failed: %s", outcome)
		}
		return nil
	},
}

// loadConfig reads the mission config, falling back to built-in defaults when
// the default config path does not exist and none was given explicitly.
func loadConfig(cmd *cobra.Command, log *slog.Logger) (*config.MissionConfig, error) {
	if _, err := os.Stat(flyConfigPath); err != nil {
		if os.IsNotExist(err) && !flagChanged(cmd, "config") {
			log.Info("no config file, using built-in mission profile")
			return config.Default(), nil
		}
		return nil, err
	}
	return config.Load(flyConfigPath, flySchemaPath)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// preflight writes the vessel-info section to the event log.
func preflight(events *flightlog.EventLogger, link vesselLink, meta flightlog.Meta) error {
	for _, line := range []string{strings.Repeat("=", 50), "KSP AUTOPILOT", strings.Repeat("=", 50)} {
		if err := events.Raw(line); err != nil {
			return err
		}
	}
	if err := events.Section("Vessel info"); err != nil {
		return err
	}
	if err := events.Logf("Flight: %s", meta.FlightID); err != nil {
		return err
	}
	if err := events.Logf("Vessel: %s", meta.Vessel); err != nil {
		return err
	}
	if err := events.Logf("Body: %s", meta.Body); err != nil {
		return err
	}

	fuel, ferr := link.Fuel()
	ox, oerr := link.Oxidizer()
	if ferr != nil || oerr != nil {
		return events.Log("Propellant: unreadable")
	}
	if caps, ok := link.(capacitySource); ok {
		maxFuel, e1 := caps.MaxFuel()
		maxOx, e2 := caps.MaxOxidizer()
		if e1 == nil && e2 == nil {
			if err := events.Logf("Fuel: %.1f / %.1f", fuel, maxFuel); err != nil {
				return err
			}
			return events.Logf("Oxidizer: %.1f / %.1f", ox, maxOx)
		}
	}
	if err := events.Logf("Fuel: %.1f", fuel); err != nil {
		return err
	}
	return events.Logf("Oxidizer: %.1f", ox)
}

func closingBanner(events *flightlog.EventLogger, cfg *config.MissionConfig) error {
	eventPath, _ := filepath.Abs(cfg.Logs.EventFile)
	dataPath, _ := filepath.Abs(cfg.Logs.FlightDataFile)
	if err := events.Raw("\n" + strings.Repeat("=", 50)); err != nil {
		return err
	}
	if err := events.Raw("Event log: " + eventPath); err != nil {
		return err
	}
	if err := events.Raw("Flight data: " + dataPath); err != nil {
		return err
	}
	return events.Raw(strings.Repeat("=", 50))
}

func init() {
	flyCmd.Flags().StringVar(&flyConfigPath, "config", "config/mission.yaml", "Path to mission configuration YAML")
	flyCmd.Flags().StringVar(&flySchemaPath, "schema", "schemas/mission.cue", "Path to CUE schema file")
	flyCmd.Flags().BoolVar(&flySim, "sim", false, "Fly a simulated vessel instead of connecting to KSP")
	flyCmd.Flags().Float64Var(&flyTimeScale, "time-scale", 1, "Simulated time acceleration (with --sim)")
	flyCmd.Flags().StringVar(&flyLogFile, "log-file", "", "Path to export flight samples (JSONL)")
	flyCmd.Flags().StringVar(&flySQLitePath, "sqlite", "", "Path to a SQLite flight archive")
	flyCmd.Flags().BoolVar(&flyTUI, "tui", false, "Render the mission in a live TUI")
	flyCmd.Flags().BoolVar(&flyYes, "yes", false, "Skip the launch confirmation prompt")
	flyCmd.Flags().BoolVar(&flyVerbose, "verbose", false, "Enable debug logging")
}
