package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warroomlabs/warroom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		apiKey := "(unset)"
		if cfg.Anthropic.APIKey != "" {
			apiKey = "****"
		}
		fmt.Printf("anthropic.model:          %s\n", cfg.Anthropic.Model)
		fmt.Printf("anthropic.api_key:        %s\n", apiKey)
		fmt.Printf("anthropic.use_bedrock:    %v\n", cfg.Anthropic.UseBedrock)
		if cfg.Anthropic.UseBedrock {
			fmt.Printf("anthropic.aws_region:     %s\n", cfg.Anthropic.AWSRegion)
			fmt.Printf("anthropic.aws_profile:    %s\n", cfg.Anthropic.AWSProfile)
		}
		fmt.Printf("defaults.max_iterations:  %d\n", cfg.Defaults.MaxIterations)
		fmt.Printf("defaults.personas_dir:    %s\n", cfg.Defaults.PersonasDir)
		fmt.Printf("storage.data_dir:         %s\n", cfg.Storage.DataDir)
		fmt.Printf("tui.refresh_rate:         %s\n", cfg.TUI.RefreshRate)
		fmt.Printf("watchdog.interval:        %s\n", cfg.Watchdog.Interval)
		fmt.Printf("watchdog.silence_timeout: %s\n", cfg.Watchdog.SilenceTimeout)
		return nil
	},
}
