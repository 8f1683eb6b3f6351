package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/warroomlabs/warroom/internal/config"
	"github.com/warroomlabs/warroom/internal/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the persona panel",
	Long: `List the personas that will drive the next pipeline run.

Personas are loaded from the configured personas directory; when none
is configured (or the directory is empty), the built-in panel is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		personas, err := persona.Load(cfg.Defaults.PersonasDir)
		if err != nil {
			return fmt.Errorf("load personas: %w", err)
		}

		bold := color.New(color.Bold).SprintFunc()
		dim := color.New(color.Faint).SprintFunc()
		for _, p := range personas {
			name := p.Name
			if p.Icon != "" {
				name = p.Icon + " " + name
			}
			fmt.Printf("%s %s\n", bold(name), dim("("+p.ID+")"))
			if p.Role != "" {
				fmt.Printf("  role:    %s\n", p.Role)
			}
			fmt.Printf("  mindset: %s\n", p.Mindset)
			if p.Model != "" {
				fmt.Printf("  model:   %s\n", p.Model)
			}
			fmt.Println()
		}
		return nil
	},
}
