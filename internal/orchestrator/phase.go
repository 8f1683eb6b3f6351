package orchestrator

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/warroomlabs/warroom/internal/agent"
	"github.com/warroomlabs/warroom/pkg/models"
)

// newID returns a short unique identifier, enough for records scoped
// to one pipeline document.
func newID() string {
	return uuid.New().String()[:8]
}

// runSpec describes one agent run inside a phase.
type runSpec struct {
	persona *models.Persona
	system  string
	prompt  string
}

// runPhase executes all runs of one phase under the phase type's
// concurrency mode and returns once every started run has settled.
// One run's failure never terminates its siblings; the only errors
// returned are infrastructure errors (a persistence write failing),
// which abort the pipeline outright.
func (e *Engine) runPhase(ctx context.Context, p *models.Pipeline, phase *models.Phase, phaseIndex int, specs []runSpec, token *CancelToken) error {
	if !phase.Type.Parallel() {
		for _, spec := range specs {
			if err := e.executeRun(ctx, p, phase, phaseIndex, spec, token); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, spec := range specs {
		wg.Add(1)
		go func(spec runSpec) {
			defer wg.Done()
			if err := e.executeRun(ctx, p, phase, phaseIndex, spec, token); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(spec)
	}
	wg.Wait()

	return firstErr
}

// executeRun drives one agent run from start to terminal state,
// persisting and emitting each observable transition. A run that is
// never started because cancellation already fired leaves no record.
func (e *Engine) executeRun(ctx context.Context, p *models.Pipeline, phase *models.Phase, phaseIndex int, spec runSpec, token *CancelToken) error {
	if token.Cancelled() {
		return nil
	}

	run := models.NewAgentRun(newID(), spec.persona)
	now := e.now()
	run.Status = models.RunStatusRunning
	run.StartedAt = &now
	if err := e.apply(p, func() {
		phase.Runs = append(phase.Runs, run)
	}); err != nil {
		return err
	}
	e.emit(Event{
		Type:        EventAgentStarted,
		PipelineID:  p.ID,
		PhaseIndex:  phaseIndex,
		AgentRunID:  run.ID,
		PersonaID:   run.PersonaID,
		PersonaName: run.PersonaName,
		PersonaIcon: run.PersonaIcon,
	})

	events, handle, err := e.runner.Start(ctx, agent.Request{
		RunID:  run.ID,
		System: spec.system,
		Prompt: spec.prompt,
		Model:  spec.persona.Model,
	})
	if err != nil {
		return e.failRun(p, phaseIndex, run, err.Error())
	}
	unregister := token.Register(handle)
	defer unregister()

	agg := agent.NewAggregator(run.ID, e.aggOpts)
	result, err := agg.Run(ctx, events, handle, func(prog agent.Progress) {
		e.emit(Event{
			Type:       EventAgentProgress,
			PipelineID: p.ID,
			PhaseIndex: phaseIndex,
			AgentRunID: run.ID,
			PersonaID:  run.PersonaID,
			Text:       prog.Text,
			ActiveTool: prog.ActiveTool,
			ToolCalls:  prog.ToolCalls,
		})
	})
	if err != nil {
		return e.failRun(p, phaseIndex, run, err.Error())
	}
	if result.Output == "" {
		return e.failRun(p, phaseIndex, run, agent.ErrNoOutput.Error())
	}

	doneAt := e.now()
	if err := e.apply(p, func() {
		run.Status = models.RunStatusCompleted
		run.Output = result.Output
		run.Usage = result.Usage
		run.CostUSD = result.CostUSD
		run.CompletedAt = &doneAt
		p.AddUsage(result.Usage, result.CostUSD)
	}); err != nil {
		return err
	}
	e.emit(Event{
		Type:       EventAgentCompleted,
		PipelineID: p.ID,
		PhaseIndex: phaseIndex,
		AgentRunID: run.ID,
		PersonaID:  run.PersonaID,
		Output:     result.Output,
		Usage:      result.Usage,
	})
	return nil
}

// failRun records a per-run failure. Isolated: the phase and its
// sibling runs continue.
func (e *Engine) failRun(p *models.Pipeline, phaseIndex int, run *models.AgentRun, msg string) error {
	log.Printf("[orchestrator] run %s (%s) failed: %s", run.ID, run.PersonaName, msg)
	doneAt := e.now()
	if err := e.apply(p, func() {
		run.Status = models.RunStatusFailed
		run.Error = msg
		run.CompletedAt = &doneAt
	}); err != nil {
		return err
	}
	e.emit(Event{
		Type:       EventAgentFailed,
		PipelineID: p.ID,
		PhaseIndex: phaseIndex,
		AgentRunID: run.ID,
		PersonaID:  run.PersonaID,
		Error:      msg,
	})
	return nil
}
