package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/warroomlabs/warroom/internal/config"
	"github.com/warroomlabs/warroom/internal/store"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List recorded projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		st, err := store.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		projects, err := st.ListProjects()
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		if len(projects) == 0 {
			fmt.Println("No projects recorded yet.")
			return nil
		}

		bold := color.New(color.Bold).SprintFunc()
		for _, p := range projects {
			pipelines, _ := st.ListPipelines(p.ID)
			fmt.Printf("%s  pipelines=%d", bold(p.ID), len(pipelines))
			if p.Description != "" {
				fmt.Printf("  %s", p.Description)
			}
			fmt.Println()
		}
		return nil
	},
}
