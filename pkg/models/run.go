package models

import "time"

// RunStatus represents the state of a single agent run.
type RunStatus string

const (
	// RunStatusPending indicates the run has not started.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates the run is executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates the run produced output.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates the run errored or produced no output.
	RunStatusFailed RunStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the run reached a terminal state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// AgentRun is one execution of one persona (or the builder role)
// against the task, producing output, usage, or an error.
// The persona fields are denormalized so the record renders correctly
// even if the persona is later edited or deleted.
type AgentRun struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`
	// PersonaID references the persona that drove this run.
	PersonaID string `json:"persona_id"`
	// PersonaName is the persona's display name at pipeline start.
	PersonaName string `json:"persona_name"`
	// PersonaIcon is the persona's display icon at pipeline start.
	PersonaIcon string `json:"persona_icon,omitempty"`
	// Status is the current run state.
	Status RunStatus `json:"status"`
	// Output is the text produced by the agent.
	Output string `json:"output,omitempty"`
	// Usage holds the token counts reported for this run.
	Usage TokenUsage `json:"usage"`
	// CostUSD is the estimated cost of this run.
	CostUSD float64 `json:"cost_usd"`
	// Error contains the failure message if the run failed.
	Error string `json:"error,omitempty"`
	// StartedAt is when the run began executing.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the run reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewAgentRun creates a pending run for the given persona.
func NewAgentRun(id string, persona *Persona) *AgentRun {
	return &AgentRun{
		ID:          id,
		PersonaID:   persona.ID,
		PersonaName: persona.Name,
		PersonaIcon: persona.Icon,
		Status:      RunStatusPending,
	}
}
