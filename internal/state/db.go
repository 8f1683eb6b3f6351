// Package state provides the SQLite-backed history index for War Room.
// It records one row per pipeline execution so `warroom status` can list
// past runs without scanning every JSON document.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/warroomlabs/warroom/pkg/models"
)

// DB wraps an SQLite database connection with War Room operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultDBPath returns the history database path under dataDir.
func DefaultDBPath(dataDir string) string {
	return filepath.Join(dataDir, "history.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Executions},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Executions = `
CREATE TABLE IF NOT EXISTS executions (
	pipeline_id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	task TEXT NOT NULL,
	status TEXT NOT NULL,
	iterations INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0.0,
	started_at DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_executions_project ON executions(project_id);
CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);
`

// Execution is one row of the pipeline history index.
type Execution struct {
	PipelineID  string
	ProjectID   string
	Task        string
	Status      models.PipelineStatus
	Iterations  int
	TotalTokens int64
	CostUSD     float64
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RecordExecution upserts the history row for a pipeline.
// Called once, when the pipeline reaches a terminal status.
func (db *DB) RecordExecution(e *Execution) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var completedAt any
	if e.CompletedAt != nil {
		completedAt = formatTime(*e.CompletedAt)
	}

	_, err := db.conn.Exec(`
		INSERT INTO executions (pipeline_id, project_id, task, status, iterations, total_tokens, cost_usd, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pipeline_id) DO UPDATE SET
			status = excluded.status,
			iterations = excluded.iterations,
			total_tokens = excluded.total_tokens,
			cost_usd = excluded.cost_usd,
			completed_at = excluded.completed_at
	`, e.PipelineID, e.ProjectID, e.Task, string(e.Status), e.Iterations,
		e.TotalTokens, e.CostUSD, formatTime(e.StartedAt), completedAt)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// GetExecution reads the history row for a pipeline.
func (db *DB) GetExecution(pipelineID string) (*Execution, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT pipeline_id, project_id, task, status, iterations, total_tokens, cost_usd, started_at, completed_at
		FROM executions WHERE pipeline_id = ?
	`, pipelineID)

	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return e, nil
}

// ListRecent returns the most recent executions, newest first.
func (db *DB) ListRecent(limit int) ([]*Execution, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT pipeline_id, project_id, task, status, iterations, total_tokens, cost_usd, started_at, completed_at
		FROM executions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []*Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes history rows started before the cutoff.
// Returns the number of rows deleted.
func (db *DB) PurgeOlderThan(olderThan time.Duration) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := db.conn.Exec("DELETE FROM executions WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge executions: %w", err)
	}
	return result.RowsAffected()
}

// scanner abstracts *sql.Row and *sql.Rows for scanExecution.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(s scanner) (*Execution, error) {
	var e Execution
	var status, startedAt string
	var completedAt sql.NullString

	if err := s.Scan(&e.PipelineID, &e.ProjectID, &e.Task, &status, &e.Iterations,
		&e.TotalTokens, &e.CostUSD, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	e.Status = models.PipelineStatus(status)
	t, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	e.StartedAt = t
	e.CompletedAt = parseNullableTime(completedAt)
	return &e, nil
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// parseNullableTime parses a nullable time string from SQLite.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}
