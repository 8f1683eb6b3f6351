// Package agent provides the execution adapter and progress projection
// for War Room agent runs. It wraps the Anthropic API behind a Runner
// interface and aggregates each run's raw event stream into throttled,
// UI-friendly progress snapshots with a liveness watchdog.
package agent

import (
	"encoding/json"

	"github.com/warroomlabs/warroom/pkg/models"
)

// EventKind identifies the type of a raw run event.
type EventKind string

const (
	// EventStatus is a system/status message from the backend.
	EventStatus EventKind = "status"
	// EventText is incremental assistant text.
	EventText EventKind = "text"
	// EventToolStart signals the start of a tool invocation.
	EventToolStart EventKind = "tool_start"
	// EventToolEnd signals the end of a tool invocation.
	EventToolEnd EventKind = "tool_end"
	// EventError signals a backend failure; terminal.
	EventError EventKind = "error"
	// EventResult carries the run's final result; terminal.
	EventResult EventKind = "result"
)

// Event is one raw progress event from an agent run execution.
type Event struct {
	// Kind is the event type.
	Kind EventKind
	// Text carries status or assistant text, if any.
	Text string
	// Tool is the tool name for tool events.
	Tool string
	// ToolInput is the raw tool input for tool events.
	ToolInput json.RawMessage
	// Err is the failure message for error events.
	Err string
	// Result is the final result for result events.
	Result *Result
}

// Result is the terminal outcome of a successful agent run.
type Result struct {
	// Output is the full assistant text.
	Output string
	// Usage holds the token counts the backend reported.
	Usage models.TokenUsage
	// CostUSD is the estimated cost derived from Usage.
	CostUSD float64
}

// Progress is a throttled, bounded snapshot of a run in flight.
type Progress struct {
	// Text is the capped progress log (or a synthesized status while
	// the run has produced no content yet).
	Text string
	// ActiveTool is a one-line summary of the tool currently running.
	ActiveTool string
	// ToolCalls is the number of tool invocations observed so far.
	ToolCalls int
}
