package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "warroom",
	Short: "Multi-agent pipeline orchestrator",
	Long: `War Room runs a task through a panel of AI personas: parallel
ideation, a synthesis build, parallel review, and bounded fix-up
iterations until the reviewers pass the result.

Pipeline state is persisted after every step, so a crash or reload
never loses progress.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
