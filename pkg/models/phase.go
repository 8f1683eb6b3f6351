package models

import "time"

// PhaseType identifies the kind of work a phase performs.
type PhaseType string

const (
	// PhaseThink is the parallel ideation phase, one run per persona.
	PhaseThink PhaseType = "think"
	// PhaseSynthesize is reserved for a future planning sub-phase.
	PhaseSynthesize PhaseType = "synthesize"
	// PhaseBuild is the single-run synthesis/build phase.
	PhaseBuild PhaseType = "build"
	// PhaseReview is the parallel review phase, one run per persona.
	PhaseReview PhaseType = "review"
	// PhaseIterate is a build phase applying review feedback.
	PhaseIterate PhaseType = "iterate"
)

// Valid returns true if the phase type is a known value.
func (t PhaseType) Valid() bool {
	switch t {
	case PhaseThink, PhaseSynthesize, PhaseBuild, PhaseReview, PhaseIterate:
		return true
	default:
		return false
	}
}

// Parallel returns true if runs in this phase execute concurrently.
func (t PhaseType) Parallel() bool {
	return t == PhaseThink || t == PhaseReview
}

// PhaseStatus represents the state of a phase.
// Transitions are monotonic: pending -> running -> completed/failed.
type PhaseStatus string

const (
	// PhaseStatusPending indicates the phase has not started.
	PhaseStatusPending PhaseStatus = "pending"
	// PhaseStatusRunning indicates the phase has at least one active run.
	PhaseStatusRunning PhaseStatus = "running"
	// PhaseStatusCompleted indicates all runs reached a terminal state.
	PhaseStatusCompleted PhaseStatus = "completed"
	// PhaseStatusFailed indicates the phase failed as a whole.
	PhaseStatusFailed PhaseStatus = "failed"
	// PhaseStatusSkipped indicates the phase was never executed.
	PhaseStatusSkipped PhaseStatus = "skipped"
)

// Valid returns true if the status is a known value.
func (s PhaseStatus) Valid() bool {
	switch s {
	case PhaseStatusPending, PhaseStatusRunning, PhaseStatusCompleted,
		PhaseStatusFailed, PhaseStatusSkipped:
		return true
	default:
		return false
	}
}

// rank orders phase statuses for monotonicity checks.
func (s PhaseStatus) rank() int {
	switch s {
	case PhaseStatusPending:
		return 0
	case PhaseStatusRunning:
		return 1
	default:
		return 2
	}
}

// CanTransitionTo reports whether moving to next preserves the
// monotonic pending -> running -> terminal ordering.
func (s PhaseStatus) CanTransitionTo(next PhaseStatus) bool {
	return next.rank() > s.rank()
}

// Phase is a named stage of a pipeline containing one or more agent
// runs executed under a single concurrency mode.
type Phase struct {
	// ID is the unique identifier for this phase.
	ID string `json:"id"`
	// Type is the kind of work this phase performs.
	Type PhaseType `json:"type"`
	// Label is the human-readable display name.
	Label string `json:"label"`
	// Status is the current phase state.
	Status PhaseStatus `json:"status"`
	// Runs is the ordered list of agent runs in this phase.
	Runs []*AgentRun `json:"runs"`
	// StartedAt is when the phase began.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the phase reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CompletedRuns returns the runs that finished successfully.
func (ph *Phase) CompletedRuns() []*AgentRun {
	var out []*AgentRun
	for _, r := range ph.Runs {
		if r.Status == RunStatusCompleted {
			out = append(out, r)
		}
	}
	return out
}

// FailedRuns returns the runs that reached the failed state.
func (ph *Phase) FailedRuns() []*AgentRun {
	var out []*AgentRun
	for _, r := range ph.Runs {
		if r.Status == RunStatusFailed {
			out = append(out, r)
		}
	}
	return out
}
