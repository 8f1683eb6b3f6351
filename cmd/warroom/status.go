package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/warroomlabs/warroom/internal/config"
	"github.com/warroomlabs/warroom/internal/state"
	"github.com/warroomlabs/warroom/internal/store"
	"github.com/warroomlabs/warroom/pkg/models"
)

var (
	statusProject string
	statusWatch   bool
	statusLimit   int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent pipeline executions",
	Long: `Display recent pipeline executions from the history index.

With --project, lists that project's pipeline records instead; add
--watch to follow record changes live (useful while a pipeline runs in
another terminal).`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusProject, "project", "p", "", "List pipelines of one project")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Follow pipeline record changes (requires --project)")
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of executions to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if statusProject != "" {
		return showProjectPipelines(cfg.Storage.DataDir, statusProject)
	}

	dbPath := state.DefaultDBPath(cfg.Storage.DataDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No pipeline history yet. Run 'warroom run <task>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}

	executions, err := db.ListRecent(statusLimit)
	if err != nil {
		return fmt.Errorf("list executions: %w", err)
	}
	if len(executions) == 0 {
		fmt.Println("No pipeline history yet. Run 'warroom run <task>' to start.")
		return nil
	}

	for _, e := range executions {
		fmt.Printf("%s  %-9s  %s  iter=%d  tokens=%d  $%.4f\n",
			e.StartedAt.Format("2006-01-02 15:04"),
			statusColored(e.Status),
			truncateTask(e.Task, 48),
			e.Iterations,
			e.TotalTokens,
			e.CostUSD,
		)
	}
	return nil
}

func showProjectPipelines(dataDir, projectID string) error {
	st, err := store.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	printAll := func() error {
		pipelines, err := st.ListPipelines(projectID)
		if err != nil {
			return err
		}
		if len(pipelines) == 0 {
			fmt.Printf("No pipelines recorded for project %s.\n", projectID)
			return nil
		}
		for _, p := range pipelines {
			fmt.Printf("%s  %-9s  %s  phases=%d  tokens=%d\n",
				p.ID, statusColored(p.Status), truncateTask(p.Task, 48),
				len(p.Phases), p.Usage.Total())
		}
		return nil
	}
	if err := printAll(); err != nil {
		return err
	}
	if !statusWatch {
		return nil
	}

	watcher, err := st.WatchPipelines(projectID)
	if err != nil {
		return fmt.Errorf("watch pipelines: %w", err)
	}
	defer watcher.Close()

	fmt.Println("\nwatching for changes (ctrl-c to stop)...")
	for id := range watcher.Changes() {
		p, err := st.GetPipeline(projectID, id)
		if err != nil {
			continue
		}
		fmt.Printf("%s  %s  %-9s  phases=%d  tokens=%d\n",
			time.Now().Format("15:04:05"), p.ID, statusColored(p.Status),
			len(p.Phases), p.Usage.Total())
	}
	return nil
}

func statusColored(s models.PipelineStatus) string {
	switch s {
	case models.PipelineStatusCompleted:
		return color.GreenString(string(s))
	case models.PipelineStatusFailed:
		return color.RedString(string(s))
	case models.PipelineStatusCancelled:
		return color.YellowString(string(s))
	default:
		return color.CyanString(string(s))
	}
}

func truncateTask(task string, max int) string {
	runes := []rune(task)
	if len(runes) <= max {
		return task
	}
	return string(runes[:max-1]) + "…"
}
