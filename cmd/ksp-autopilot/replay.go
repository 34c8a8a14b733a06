package main

import (
	"github.com/spf13/cobra"

	"ksp-autopilot/internal/flightlog"
)

var replaySpeed float64

var replayCmd = &cobra.Command{
	Use:   "replay <sample-log>",
	Short: "Replay a recorded flight-sample log to STDOUT",
	Long:  "replay reads a JSONL sample log written by 'fly --log-file' and re-emits it, honoring the recorded timing.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return flightlog.ReplayFile(args[0], &flightlog.StdoutWriter{}, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1, "Playback speed factor (0 disables delays)")
}
