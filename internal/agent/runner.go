package agent

import (
	"context"
	"errors"
)

// Request describes one agent run.
type Request struct {
	// RunID identifies the run for logging.
	RunID string
	// System is the system prompt.
	System string
	// Prompt is the user prompt.
	Prompt string
	// Model optionally overrides the runner's default model.
	Model string
}

// Handle controls an in-flight run.
type Handle interface {
	// Abort stops the run. Safe to call more than once; the run's
	// event channel closes shortly after.
	Abort()
}

// Runner executes agent runs against a model backend.
// The orchestrator never talks to the backend directly; it depends on
// this interface so tests can substitute scripted runs.
type Runner interface {
	// Start begins executing the request and returns the raw event
	// stream plus a handle for aborting. The channel is closed when
	// the stream ends, whether or not a terminal event was emitted.
	Start(ctx context.Context, req Request) (<-chan Event, Handle, error)

	// Complete executes the request to completion without streaming.
	Complete(ctx context.Context, req Request) (*Result, error)
}

// Terminal-failure sentinels for runs that end without a result.
var (
	// ErrRunUnresponsive marks a run aborted by the watchdog after
	// prolonged total silence.
	ErrRunUnresponsive = errors.New("agent run unresponsive, aborted by watchdog")
	// ErrStreamEnded marks a stream that closed without a terminal event.
	ErrStreamEnded = errors.New("agent stream ended without a result")
	// ErrNoOutput marks a run that completed but produced no usable text.
	ErrNoOutput = errors.New("agent run produced no output")
)
