package state

import "io"

// HistoryStore records pipeline executions for later listing.
// The orchestrator depends on this interface rather than the concrete
// SQLite implementation so tests can substitute a fake.
type HistoryStore interface {
	io.Closer
	RecordExecution(e *Execution) error
	GetExecution(pipelineID string) (*Execution, error)
	ListRecent(limit int) ([]*Execution, error)
}

// Compile-time verification that DB implements HistoryStore.
var _ HistoryStore = (*DB)(nil)
