package main

import (
	"github.com/spf13/cobra"

	"ksp-autopilot/internal/dashboard"
)

var dashboardOutDir string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard for the GreptimeDB flight telemetry",
	Long:  "dashboard renders grafana-flight-dashboard.json from its template, substituting the datasource UID from GREPTIMEDB_DATASOURCE_UID.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboard.Render(dashboardOutDir)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOutDir, "out", "build", "Output directory for rendered dashboards")
}
