// Package tui provides the live terminal dashboard for a running
// War Room pipeline.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/warroomlabs/warroom/internal/orchestrator"
	"github.com/warroomlabs/warroom/pkg/models"
)

// PipelineEventMsg wraps an orchestrator event for the TUI.
type PipelineEventMsg struct {
	Event orchestrator.Event
}

// EventsClosedMsg signals that the orchestrator event stream ended.
type EventsClosedMsg struct{}

// runView is the TUI's projection of one agent run.
type runView struct {
	id          string
	personaName string
	personaIcon string
	phaseIndex  int
	status      models.RunStatus
	progress    string
	activeTool  string
	toolCalls   int
	errMsg      string
}

// App is the bubbletea model for one pipeline execution.
type App struct {
	task   string
	status models.PipelineStatus

	phaseLabel string
	phaseType  models.PhaseType
	phaseIndex int

	runs  map[string]*runView
	order []string

	totalTokens int64
	totalCost   float64
	finalError  string

	spinner    spinner.Model
	width      int
	height     int
	done       bool
	cancelling bool
	quitting   bool

	// cancel fires the pipeline's cancellation token.
	cancel func()
}

// New creates the dashboard model. cancel is invoked when the user
// requests cancellation; it must be safe to call more than once.
func New(task string, cancel func()) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &App{
		task:    task,
		status:  models.PipelineStatusPending,
		runs:    make(map[string]*runView),
		spinner: sp,
		cancel:  cancel,
		width:   100,
		height:  30,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if a.done {
				a.quitting = true
				return a, tea.Quit
			}
			// First press cancels the pipeline; the terminal event
			// will mark the model done.
			a.cancelling = true
			a.cancel()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case PipelineEventMsg:
		a.handleEvent(msg.Event)

	case EventsClosedMsg:
		// Stream interrupted without a terminal event is inconclusive,
		// not success.
		if !a.done {
			a.done = true
			if a.finalError == "" {
				a.finalError = "event stream ended unexpectedly"
			}
		}
	}
	return a, nil
}

// handleEvent folds one pipeline event into the view state.
func (a *App) handleEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventPipelineStarted:
		a.status = models.PipelineStatusThinking

	case orchestrator.EventPhaseStarted:
		a.phaseType = ev.PhaseType
		a.phaseIndex = ev.PhaseIndex
		a.phaseLabel = phaseLabel(ev.PhaseType)
		// A new phase gets a fresh card row; prior runs collapse into
		// the totals line.
		a.runs = make(map[string]*runView)
		a.order = nil

	case orchestrator.EventAgentStarted:
		run := &runView{
			id:          ev.AgentRunID,
			personaName: ev.PersonaName,
			personaIcon: ev.PersonaIcon,
			phaseIndex:  ev.PhaseIndex,
			status:      models.RunStatusRunning,
		}
		a.runs[ev.AgentRunID] = run
		a.order = append(a.order, ev.AgentRunID)

	case orchestrator.EventAgentProgress:
		if run, ok := a.runs[ev.AgentRunID]; ok {
			run.progress = ev.Text
			run.activeTool = ev.ActiveTool
			run.toolCalls = ev.ToolCalls
		}

	case orchestrator.EventAgentCompleted:
		if run, ok := a.runs[ev.AgentRunID]; ok {
			run.status = models.RunStatusCompleted
		}
		a.totalTokens += ev.Usage.Total()

	case orchestrator.EventAgentFailed:
		if run, ok := a.runs[ev.AgentRunID]; ok {
			run.status = models.RunStatusFailed
			run.errMsg = ev.Error
		}

	case orchestrator.EventPipelineCompleted:
		a.done = true
		a.status = ev.Status
		a.totalTokens = ev.TotalTokens
		a.totalCost = ev.TotalCostUSD

	case orchestrator.EventPipelineError:
		a.done = true
		a.status = models.PipelineStatusFailed
		a.finalError = ev.Error

	case orchestrator.EventPipelineCancelled:
		a.done = true
		a.status = models.PipelineStatusCancelled
		a.finalError = ev.Error
	}
}

func phaseLabel(t models.PhaseType) string {
	switch t {
	case models.PhaseThink:
		return "Thinking"
	case models.PhaseBuild:
		return "Building"
	case models.PhaseReview:
		return "Reviewing"
	case models.PhaseIterate:
		return "Iterating"
	default:
		return string(t)
	}
}

func shorten(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// Run starts the dashboard and pumps orchestrator events into it.
// It blocks until the user exits.
func Run(task string, events <-chan orchestrator.Event, cancel func()) error {
	app := New(task, cancel)
	program := tea.NewProgram(app, tea.WithAltScreen())

	go func() {
		for ev := range events {
			program.Send(PipelineEventMsg{Event: ev})
		}
		program.Send(EventsClosedMsg{})
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
