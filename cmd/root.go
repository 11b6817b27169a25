// Package cmd wires the CLI commands for the diawise server.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "diawise",
	Short: "Diabetes risk assessment service",
	Long: `diawise serves a JSON API for diabetes risk assessment: a random
forest risk model, personalized recommendations, per-user prediction
history, CSV import of health data, and PDF report generation.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
