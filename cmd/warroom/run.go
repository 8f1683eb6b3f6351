package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/warroomlabs/warroom/internal/agent"
	"github.com/warroomlabs/warroom/internal/config"
	"github.com/warroomlabs/warroom/internal/orchestrator"
	"github.com/warroomlabs/warroom/internal/persona"
	"github.com/warroomlabs/warroom/internal/state"
	"github.com/warroomlabs/warroom/internal/store"
	"github.com/warroomlabs/warroom/internal/tui"
	"github.com/warroomlabs/warroom/pkg/models"
)

var (
	runProject       string
	runMaxIterations int
	runPersonasDir   string
	runModel         string
	runHeadless      bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a task through the persona pipeline",
	Long: `Run a task through the full War Room pipeline: every persona
analyzes the task in parallel, a builder synthesizes their perspectives
into one deliverable, and the personas review it. Reviews flagging
blocking problems trigger fix-up iterations until the reviews pass or
the iteration budget runs out.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runProject, "project", "p", "default", "Project to record the pipeline under")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", -1, "Fix-up iteration budget (overrides config)")
	runCmd.Flags().StringVar(&runPersonasDir, "personas-dir", "", "Directory of persona YAML files (overrides config)")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model for all runs (overrides config)")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Log events to stdout instead of the dashboard")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runMaxIterations >= 0 {
		cfg.Defaults.MaxIterations = runMaxIterations
	}
	if runPersonasDir != "" {
		cfg.Defaults.PersonasDir = runPersonasDir
	}
	if runModel != "" {
		cfg.Anthropic.Model = runModel
	}

	personas, err := persona.Load(cfg.Defaults.PersonasDir)
	if err != nil {
		return fmt.Errorf("load personas: %w", err)
	}

	st, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	project, err := loadOrCreateProject(st, runProject)
	if err != nil {
		return err
	}

	history, err := openHistory(cfg.Storage.DataDir)
	if err != nil {
		log.Printf("[warroom] history index unavailable: %v", err)
	} else {
		defer history.Close()
	}

	client, err := agent.NewClient(agent.ClientConfig{
		Model:         cfg.Anthropic.Model,
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return err
	}
	runner := agent.NewAnthropicRunner(client)

	engine := orchestrator.New(runner, st, orchestrator.Options{
		Aggregator: agent.AggregatorOptions{
			Throttle:         cfg.TUI.RefreshRate,
			WatchdogInterval: cfg.Watchdog.Interval,
			SilenceTimeout:   cfg.Watchdog.SilenceTimeout,
		},
		History: history,
	})

	pipeline := models.NewPipeline(newPipelineID(), project.ID, task, cfg.Defaults.MaxIterations)
	token := orchestrator.NewCancelToken()

	// Ctrl-C cancels the pipeline; a second Ctrl-C force-exits.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		token.Cancel()
		<-sigCh
		os.Exit(1)
	}()

	req := orchestrator.Request{
		Project:  project,
		Personas: personas,
		Pipeline: pipeline,
		Token:    token,
	}

	type runOutcome struct {
		pipeline *models.Pipeline
		err      error
	}
	outcome := make(chan runOutcome, 1)
	go func() {
		p, err := engine.Run(context.Background(), req)
		engine.Close()
		outcome <- runOutcome{pipeline: p, err: err}
	}()

	if runHeadless {
		logEvents(engine.Events())
	} else {
		if err := tui.Run(task, engine.Events(), token.Cancel); err != nil {
			return err
		}
	}

	result := <-outcome
	if result.err != nil {
		return result.err
	}
	printSummary(result.pipeline)
	if result.pipeline.Status == models.PipelineStatusFailed {
		os.Exit(1)
	}
	return nil
}

func newPipelineID() string {
	return "pl-" + uuid.New().String()[:8]
}

func loadOrCreateProject(st *store.Store, name string) (*models.Project, error) {
	project, err := st.GetProject(name)
	if err == nil {
		return project, nil
	}
	now := time.Now()
	project = &models.Project{
		ID:        name,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.SaveProject(project); err != nil {
		return nil, fmt.Errorf("create project %s: %w", name, err)
	}
	return project, nil
}

func openHistory(dataDir string) (*state.DB, error) {
	db, err := state.Open(state.DefaultDBPath(dataDir))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// logEvents prints pipeline events as log lines for headless runs.
// Progress snapshots are skipped; they are dashboard material.
func logEvents(events <-chan orchestrator.Event) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	for ev := range events {
		switch ev.Type {
		case orchestrator.EventPipelineStarted:
			fmt.Printf("%s pipeline %s\n", cyan("▶"), ev.PipelineID)
		case orchestrator.EventPhaseStarted:
			fmt.Printf("%s phase %d: %s\n", cyan("▶"), ev.PhaseIndex, ev.PhaseType)
		case orchestrator.EventAgentStarted:
			fmt.Printf("  %s %s started\n", cyan("·"), ev.PersonaName)
		case orchestrator.EventAgentCompleted:
			fmt.Printf("  %s run %s completed (%d tokens)\n", green("✓"), ev.AgentRunID, ev.Usage.Total())
		case orchestrator.EventAgentFailed:
			fmt.Printf("  %s run %s failed: %s\n", red("✗"), ev.AgentRunID, ev.Error)
		case orchestrator.EventPhaseCompleted:
			fmt.Printf("%s phase %d done\n", green("✓"), ev.PhaseIndex)
		case orchestrator.EventPipelineCompleted:
			fmt.Printf("%s pipeline completed: %d tokens, $%.4f\n", green("✓"), ev.TotalTokens, ev.TotalCostUSD)
		case orchestrator.EventPipelineError:
			fmt.Printf("%s pipeline failed: %s\n", red("✗"), ev.Error)
		case orchestrator.EventPipelineCancelled:
			fmt.Printf("%s pipeline cancelled\n", red("⊘"))
		}
	}
}

func printSummary(p *models.Pipeline) {
	if p == nil {
		return
	}
	fmt.Println()
	switch p.Status {
	case models.PipelineStatusCompleted:
		color.Green("Pipeline %s completed", p.ID)
		if out := finalOutput(p); out != "" {
			fmt.Println()
			fmt.Println(out)
		}
	case models.PipelineStatusCancelled:
		color.Yellow("Pipeline %s cancelled", p.ID)
	default:
		color.Red("Pipeline %s failed: %s", p.ID, p.Error)
	}
	fmt.Printf("\ntokens: %d  cost: $%.4f  iterations: %d\n", p.Usage.Total(), p.CostUSD, p.Iteration)
}

// finalOutput returns the last successful build output.
func finalOutput(p *models.Pipeline) string {
	for i := len(p.Phases) - 1; i >= 0; i-- {
		ph := p.Phases[i]
		if ph.Type != models.PhaseBuild && ph.Type != models.PhaseIterate {
			continue
		}
		if runs := ph.CompletedRuns(); len(runs) > 0 {
			return runs[0].Output
		}
	}
	return ""
}
