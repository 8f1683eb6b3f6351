// Package models defines the shared domain types for War Room pipelines.
package models

import "time"

// PipelineStatus represents the lifecycle state of a pipeline.
type PipelineStatus string

const (
	// PipelineStatusPending indicates the pipeline has not started.
	PipelineStatusPending PipelineStatus = "pending"
	// PipelineStatusThinking indicates the parallel ideation phase is running.
	PipelineStatusThinking PipelineStatus = "thinking"
	// PipelineStatusSynthesizing is reserved for a future planning sub-phase.
	PipelineStatusSynthesizing PipelineStatus = "synthesizing"
	// PipelineStatusBuilding indicates the build phase is running.
	PipelineStatusBuilding PipelineStatus = "building"
	// PipelineStatusReviewing indicates the parallel review phase is running.
	PipelineStatusReviewing PipelineStatus = "reviewing"
	// PipelineStatusIterating indicates a post-review fix pass is running.
	PipelineStatusIterating PipelineStatus = "iterating"
	// PipelineStatusCompleted indicates the pipeline finished successfully.
	PipelineStatusCompleted PipelineStatus = "completed"
	// PipelineStatusFailed indicates the pipeline terminated with an error.
	PipelineStatusFailed PipelineStatus = "failed"
	// PipelineStatusCancelled indicates the pipeline was cancelled by the user.
	PipelineStatusCancelled PipelineStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s PipelineStatus) Valid() bool {
	switch s {
	case PipelineStatusPending, PipelineStatusThinking, PipelineStatusSynthesizing,
		PipelineStatusBuilding, PipelineStatusReviewing, PipelineStatusIterating,
		PipelineStatusCompleted, PipelineStatusFailed, PipelineStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
func (s PipelineStatus) Terminal() bool {
	switch s {
	case PipelineStatusCompleted, PipelineStatusFailed, PipelineStatusCancelled:
		return true
	default:
		return false
	}
}

// TokenUsage holds token counts reported by an agent execution.
type TokenUsage struct {
	// InputTokens is the number of prompt tokens consumed.
	InputTokens int64 `json:"input_tokens"`
	// OutputTokens is the number of completion tokens produced.
	OutputTokens int64 `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates another usage report into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Pipeline represents one end-to-end execution of the phased
// multi-agent workflow for a single task prompt.
// It is owned exclusively by the orchestrator's state machine and is
// persisted wholesale after every mutation.
type Pipeline struct {
	// ID is the unique identifier for this pipeline.
	ID string `json:"id"`
	// ProjectID is the parent project this pipeline belongs to.
	ProjectID string `json:"project_id"`
	// Task is the original task prompt.
	Task string `json:"task"`
	// Status is the current lifecycle state.
	Status PipelineStatus `json:"status"`
	// Phases is the ordered list of phases, appended as each starts.
	Phases []*Phase `json:"phases"`
	// Iteration is the current build/review iteration index.
	Iteration int `json:"iteration"`
	// MaxIterations bounds the iterate-until-pass loop.
	MaxIterations int `json:"max_iterations"`
	// Usage is the aggregated token usage across all completed runs.
	Usage TokenUsage `json:"usage"`
	// CostUSD is the aggregated estimated cost across all completed runs.
	CostUSD float64 `json:"cost_usd"`
	// Error contains the terminal error message if the pipeline failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the pipeline record was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the pipeline record was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is when the pipeline reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewPipeline creates a pending pipeline for the given project and task.
func NewPipeline(id, projectID, task string, maxIterations int) *Pipeline {
	now := time.Now()
	return &Pipeline{
		ID:            id,
		ProjectID:     projectID,
		Task:          task,
		Status:        PipelineStatusPending,
		Phases:        []*Phase{},
		MaxIterations: maxIterations,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CurrentPhase returns the most recently appended phase, or nil.
func (p *Pipeline) CurrentPhase() *Phase {
	if len(p.Phases) == 0 {
		return nil
	}
	return p.Phases[len(p.Phases)-1]
}

// PhasesOfType returns all phases with the given type, in order.
func (p *Pipeline) PhasesOfType(t PhaseType) []*Phase {
	var out []*Phase
	for _, ph := range p.Phases {
		if ph.Type == t {
			out = append(out, ph)
		}
	}
	return out
}

// AddUsage accumulates a run's usage and cost into the pipeline totals.
func (p *Pipeline) AddUsage(usage TokenUsage, costUSD float64) {
	p.Usage.Add(usage)
	p.CostUSD += costUSD
}
