// Package orchestrator runs War Room pipelines: parallel ideation,
// sequential build, parallel review, and a bounded iterate-until-pass
// loop, with durable state after every mutation.
package orchestrator

import (
	"time"

	"github.com/warroomlabs/warroom/pkg/models"
)

// EventType represents the type of pipeline event.
type EventType string

const (
	// EventPipelineStarted indicates the pipeline began executing.
	EventPipelineStarted EventType = "pipeline_started"
	// EventPhaseStarted indicates a phase was appended and is running.
	EventPhaseStarted EventType = "phase_started"
	// EventAgentStarted indicates one agent run began executing.
	EventAgentStarted EventType = "agent_started"
	// EventAgentProgress carries a throttled progress snapshot for a run.
	EventAgentProgress EventType = "agent_progress"
	// EventAgentCompleted indicates one agent run finished successfully.
	EventAgentCompleted EventType = "agent_completed"
	// EventAgentFailed indicates one agent run failed.
	EventAgentFailed EventType = "agent_failed"
	// EventPhaseCompleted indicates all runs in a phase settled.
	EventPhaseCompleted EventType = "phase_completed"
	// EventPipelineCompleted indicates the pipeline finished successfully.
	EventPipelineCompleted EventType = "pipeline_completed"
	// EventPipelineError indicates the pipeline terminated with an error.
	EventPipelineError EventType = "pipeline_error"
	// EventPipelineCancelled indicates the pipeline was cancelled.
	// Same shape as EventPipelineError, distinguished by type only.
	EventPipelineCancelled EventType = "pipeline_cancelled"
)

// Event is one externally observable pipeline transition.
// These events are a projection of pipeline mutations for live
// observers; they are never persisted.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// PipelineID is the pipeline this event belongs to.
	PipelineID string
	// PhaseID is the ID of the related phase, if applicable.
	PhaseID string
	// PhaseType is the type of the related phase, if applicable.
	PhaseType models.PhaseType
	// PhaseIndex is the position of the related phase, if applicable.
	PhaseIndex int
	// AgentRunID is the ID of the related run, if applicable.
	AgentRunID string
	// PersonaID is the persona driving the related run, if applicable.
	PersonaID string
	// PersonaName is the persona's display name, for agent_started.
	PersonaName string
	// PersonaIcon is the persona's display icon, for agent_started.
	PersonaIcon string
	// Text is the progress log snapshot, for agent_progress.
	Text string
	// ActiveTool summarizes the tool currently running, for agent_progress.
	ActiveTool string
	// ToolCalls is the number of tool invocations seen, for agent_progress.
	ToolCalls int
	// Output is the run's final text, for agent_completed.
	Output string
	// Usage is the run's token usage, for agent_completed.
	Usage models.TokenUsage
	// Status is the terminal pipeline status, for pipeline_completed.
	Status models.PipelineStatus
	// TotalCostUSD is the aggregated pipeline cost, for pipeline_completed.
	TotalCostUSD float64
	// TotalTokens is the aggregated pipeline token count, for pipeline_completed.
	TotalTokens int64
	// Error contains failure details, for failure events.
	Error string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
