package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "ksp-autopilot",
	Short:         "Scripted ascent-to-orbit autopilot for KSP over kRPC",
	Long:          "ksp-autopilot flies a fixed ascent profile (ignition, gravity turn, coast, circularization) on the active vessel, logging events and flight data.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(flyCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
}
