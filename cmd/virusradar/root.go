package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "virusradar",
	Short: "VirusRadar - German virus surveillance dashboard",
	Long: `VirusRadar aggregates, predicts and visualizes virus infections in
Germany, based on the RKI GrippeWeb and AMELAG wastewater datasets.
It serves a dashboard with regional infection levels and forecasts,
keeps the datasets updated on a schedule, and ships a container
entrypoint that supervises the OS cron daemon.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(entrypointCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(geocodeCmd)
}
