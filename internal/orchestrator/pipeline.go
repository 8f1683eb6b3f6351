package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warroomlabs/warroom/internal/agent"
	"github.com/warroomlabs/warroom/internal/state"
	"github.com/warroomlabs/warroom/pkg/models"
)

// PipelineStore persists pipeline records. Writes are whole-document
// overwrites; a failed write is an infrastructure error, not a
// pipeline-domain outcome.
type PipelineStore interface {
	SavePipeline(p *models.Pipeline) error
}

// Options configures an Engine.
type Options struct {
	// Aggregator configures the per-run streaming aggregator.
	Aggregator agent.AggregatorOptions
	// EventBuffer sizes the event channel. Zero means 256.
	EventBuffer int
	// History optionally records terminal pipeline outcomes in the
	// execution history index. Best-effort; failures are logged.
	History state.HistoryStore
	// Now replaces time.Now when non-nil, for tests.
	Now func() time.Time
}

// Engine is the pipeline state machine. It owns pipeline mutation:
// every state change goes through one serialized apply step that
// persists the record before the next mutation is attempted, so an
// observer re-reading storage mid-run always sees a consistent,
// monotonically advancing snapshot.
type Engine struct {
	runner  agent.Runner
	store   PipelineStore
	emitter *EventEmitter
	history state.HistoryStore
	aggOpts agent.AggregatorOptions
	now     func() time.Time

	// mu serializes pipeline mutations from concurrent runs.
	mu sync.Mutex
}

// New creates an engine using the given runner and store.
func New(runner agent.Runner, store PipelineStore, opts Options) *Engine {
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		runner:  runner,
		store:   store,
		emitter: NewEventEmitter(buffer),
		history: opts.History,
		aggOpts: opts.Aggregator,
		now:     now,
	}
}

// Events returns the engine's event stream. Subscribers must drain it;
// the emitter drops events rather than block a pipeline mutation.
func (e *Engine) Events() <-chan Event {
	return e.emitter.Events()
}

// Close releases the event channel. Call after the last Run returns.
func (e *Engine) Close() {
	e.emitter.Close()
}

// Request carries the frozen inputs for one pipeline execution. The
// persona set is snapshotted here and never re-fetched mid-run.
type Request struct {
	Project  *models.Project
	Personas []*models.Persona
	Pipeline *models.Pipeline
	// Token carries the cancellation signal. Nil means the pipeline
	// is only cancellable through the context.
	Token *CancelToken
}

// Run drives the pipeline to a terminal state. Expected failure modes
// (agent failures, cancellation) never surface as errors; they are
// captured in the returned pipeline's status and error fields. The
// error return is reserved for infrastructure failures such as a
// persistence write failing.
func (e *Engine) Run(ctx context.Context, req Request) (*models.Pipeline, error) {
	p := req.Pipeline
	token := req.Token
	if token == nil {
		token = NewCancelToken()
	}
	if len(req.Personas) == 0 {
		return nil, fmt.Errorf("pipeline %s: no personas", p.ID)
	}

	// Bridge context cancellation into the token so both paths abort
	// in-flight runs the same way.
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			token.Cancel()
		case <-token.Done():
		case <-finished:
		}
	}()

	log.Printf("[orchestrator] pipeline %s started: %d personas, max %d iterations", p.ID, len(req.Personas), p.MaxIterations)
	e.emit(Event{Type: EventPipelineStarted, PipelineID: p.ID})

	// THINK: one run per persona, in parallel. A single persona
	// failing does not abort the phase.
	if token.Cancelled() {
		return p, e.finishCancelled(p)
	}
	thinkPhase, thinkIndex, err := e.startPhase(p, models.PhaseThink, "Thinking", models.PipelineStatusThinking)
	if err != nil {
		return nil, err
	}
	specs := make([]runSpec, 0, len(req.Personas))
	for _, persona := range req.Personas {
		specs = append(specs, runSpec{
			persona: persona,
			system:  ThinkSystemPrompt(persona),
			prompt:  ThinkPrompt(req.Project, p.Task),
		})
	}
	if err := e.runPhase(ctx, p, thinkPhase, thinkIndex, specs, token); err != nil {
		return nil, err
	}
	if token.Cancelled() {
		return p, e.finishCancelled(p)
	}

	thinkOK := thinkPhase.CompletedRuns()
	if len(thinkOK) == 0 {
		if err := e.completePhase(p, thinkPhase, thinkIndex, models.PhaseStatusFailed); err != nil {
			return nil, err
		}
		return p, e.finishFailed(p, "no viable input to build phase: all think runs failed")
	}
	if err := e.completePhase(p, thinkPhase, thinkIndex, models.PhaseStatusCompleted); err != nil {
		return nil, err
	}

	// BUILD/REVIEW loop, iteration 0 through MaxIterations inclusive.
	builder := builderPersona()
	var buildOutput string
	var feedback []*models.AgentRun

	for iteration := 0; ; iteration++ {
		if token.Cancelled() {
			return p, e.finishCancelled(p)
		}

		phaseType := models.PhaseBuild
		status := models.PipelineStatusBuilding
		label := "Building"
		prompt := BuildPrompt(req.Project, p.Task, thinkOK)
		if iteration > 0 {
			phaseType = models.PhaseIterate
			status = models.PipelineStatusIterating
			label = fmt.Sprintf("Iteration %d", iteration)
			prompt = IteratePrompt(req.Project, p.Task, buildOutput, feedback)
		}

		if err := e.apply(p, func() { p.Iteration = iteration }); err != nil {
			return nil, err
		}
		buildPhase, buildIndex, err := e.startPhase(p, phaseType, label, status)
		if err != nil {
			return nil, err
		}
		spec := runSpec{persona: builder, system: BuildSystemPrompt, prompt: prompt}
		if err := e.runPhase(ctx, p, buildPhase, buildIndex, []runSpec{spec}, token); err != nil {
			return nil, err
		}
		if token.Cancelled() {
			return p, e.finishCancelled(p)
		}

		// The sole build run failing is fatal: there is no partial
		// success path and no further review phase.
		built := buildPhase.CompletedRuns()
		if len(built) == 0 {
			msg := "build run failed"
			if failed := buildPhase.FailedRuns(); len(failed) > 0 && failed[0].Error != "" {
				msg = "build run failed: " + failed[0].Error
			}
			if err := e.completePhase(p, buildPhase, buildIndex, models.PhaseStatusFailed); err != nil {
				return nil, err
			}
			return p, e.finishFailed(p, msg)
		}
		buildOutput = built[0].Output
		if err := e.completePhase(p, buildPhase, buildIndex, models.PhaseStatusCompleted); err != nil {
			return nil, err
		}

		// REVIEW: one run per persona, in parallel.
		if token.Cancelled() {
			return p, e.finishCancelled(p)
		}
		reviewPhase, reviewIndex, err := e.startPhase(p, models.PhaseReview, "Reviewing", models.PipelineStatusReviewing)
		if err != nil {
			return nil, err
		}
		specs = specs[:0]
		for _, persona := range req.Personas {
			specs = append(specs, runSpec{
				persona: persona,
				system:  ReviewSystemPrompt(persona),
				prompt:  ReviewPrompt(req.Project, p.Task, buildOutput),
			})
		}
		if err := e.runPhase(ctx, p, reviewPhase, reviewIndex, specs, token); err != nil {
			return nil, err
		}
		if token.Cancelled() {
			return p, e.finishCancelled(p)
		}
		if err := e.completePhase(p, reviewPhase, reviewIndex, models.PhaseStatusCompleted); err != nil {
			return nil, err
		}

		reviews := reviewPhase.CompletedRuns()
		if !HasMajorIssues(reviews) {
			log.Printf("[orchestrator] pipeline %s: reviews passed at iteration %d", p.ID, iteration)
			break
		}
		if iteration >= p.MaxIterations {
			log.Printf("[orchestrator] pipeline %s: iteration budget exhausted (%d), accepting as-is", p.ID, p.MaxIterations)
			break
		}
		feedback = reviews
	}

	return p, e.finishCompleted(p)
}

// apply runs one pipeline mutation under the single-writer lock and
// persists the record before returning. Concurrent run completions
// serialize here, so near-simultaneous updates never lose writes.
func (e *Engine) apply(p *models.Pipeline, mutate func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	mutate()
	p.UpdatedAt = e.now()
	if err := e.store.SavePipeline(p); err != nil {
		return fmt.Errorf("persist pipeline %s: %w", p.ID, err)
	}
	return nil
}

func (e *Engine) emit(event Event) {
	event.Timestamp = e.now()
	e.emitter.Emit(event)
}

// startPhase appends a running phase and transitions the pipeline
// status in a single persisted mutation.
func (e *Engine) startPhase(p *models.Pipeline, t models.PhaseType, label string, status models.PipelineStatus) (*models.Phase, int, error) {
	startedAt := e.now()
	phase := &models.Phase{
		ID:        newID(),
		Type:      t,
		Label:     label,
		Status:    models.PhaseStatusRunning,
		Runs:      []*models.AgentRun{},
		StartedAt: &startedAt,
	}
	var index int
	if err := e.apply(p, func() {
		p.Status = status
		p.Phases = append(p.Phases, phase)
		index = len(p.Phases) - 1
	}); err != nil {
		return nil, 0, err
	}
	e.emit(Event{
		Type:       EventPhaseStarted,
		PipelineID: p.ID,
		PhaseID:    phase.ID,
		PhaseType:  t,
		PhaseIndex: index,
	})
	return phase, index, nil
}

// completePhase records the phase's terminal status. The completion
// event is only emitted for phases that actually completed.
func (e *Engine) completePhase(p *models.Pipeline, phase *models.Phase, index int, status models.PhaseStatus) error {
	doneAt := e.now()
	if err := e.apply(p, func() {
		phase.Status = status
		phase.CompletedAt = &doneAt
	}); err != nil {
		return err
	}
	if status == models.PhaseStatusCompleted {
		e.emit(Event{
			Type:       EventPhaseCompleted,
			PipelineID: p.ID,
			PhaseID:    phase.ID,
			PhaseType:  phase.Type,
			PhaseIndex: index,
		})
	}
	return nil
}

func (e *Engine) finishCompleted(p *models.Pipeline) error {
	doneAt := e.now()
	if err := e.apply(p, func() {
		p.Status = models.PipelineStatusCompleted
		p.CompletedAt = &doneAt
	}); err != nil {
		return err
	}
	e.emit(Event{
		Type:         EventPipelineCompleted,
		PipelineID:   p.ID,
		Status:       p.Status,
		TotalCostUSD: p.CostUSD,
		TotalTokens:  p.Usage.Total(),
	})
	e.recordHistory(p)
	log.Printf("[orchestrator] pipeline %s completed: %d tokens, $%.4f", p.ID, p.Usage.Total(), p.CostUSD)
	return nil
}

func (e *Engine) finishFailed(p *models.Pipeline, msg string) error {
	doneAt := e.now()
	if err := e.apply(p, func() {
		p.Status = models.PipelineStatusFailed
		p.Error = msg
		p.CompletedAt = &doneAt
	}); err != nil {
		return err
	}
	e.emit(Event{Type: EventPipelineError, PipelineID: p.ID, Error: msg})
	e.recordHistory(p)
	log.Printf("[orchestrator] pipeline %s failed: %s", p.ID, msg)
	return nil
}

func (e *Engine) finishCancelled(p *models.Pipeline) error {
	doneAt := e.now()
	if err := e.apply(p, func() {
		p.Status = models.PipelineStatusCancelled
		p.Error = "cancelled by user"
		p.CompletedAt = &doneAt
	}); err != nil {
		return err
	}
	e.emit(Event{Type: EventPipelineCancelled, PipelineID: p.ID, Error: p.Error})
	e.recordHistory(p)
	log.Printf("[orchestrator] pipeline %s cancelled", p.ID)
	return nil
}

// recordHistory upserts the terminal outcome into the execution
// history index. The index is a convenience view over the canonical
// JSON records, so a failure here is logged, not propagated.
func (e *Engine) recordHistory(p *models.Pipeline) {
	if e.history == nil {
		return
	}
	err := e.history.RecordExecution(&state.Execution{
		PipelineID:  p.ID,
		ProjectID:   p.ProjectID,
		Task:        p.Task,
		Status:      p.Status,
		Iterations:  p.Iteration,
		TotalTokens: p.Usage.Total(),
		CostUSD:     p.CostUSD,
		StartedAt:   p.CreatedAt,
		CompletedAt: p.CompletedAt,
	})
	if err != nil {
		log.Printf("[orchestrator] failed to record history for pipeline %s: %v", p.ID, err)
	}
}

// builderPersona is the synthetic persona for build and iterate runs.
// It carries no model override; the execution adapter picks the
// default.
func builderPersona() *models.Persona {
	return &models.Persona{
		ID:      "builder",
		Name:    "The Builder",
		Role:    "synthesizer and implementer",
		Icon:    "🔨",
		Mindset: "Turn competing perspectives into one coherent deliverable.",
	}
}
