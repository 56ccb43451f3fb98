// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists step executions in a SQLite database so the
// dashboard can show the last run and the logs page the recent ones.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/irca-engine/pkg/types"
)

// DBFile is the database file name inside the data directory.
const DBFile = ".history.db"

// timeLayout is fixed width so started_at sorts as text in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Execution is one recorded step run.
type Execution struct {
	ID       string            `json:"id"`
	Step     types.Step        `json:"step"`
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Started  time.Time         `json:"started"`
	Duration time.Duration     `json:"duration"`
	Batch    types.BatchResult `json:"batch"`
	Month    string            `json:"month,omitempty"`
}

// Store is the execution history database.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Open opens or creates the history database in dir.
func Open(dir string) (*Store, error) {
	return OpenWithClock(dir, clockwork.NewRealClock())
}

// OpenWithClock is Open with an injected clock, used when a result
// carries no start time.
func OpenWithClock(dir string, clock clockwork.Clock) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, DBFile)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	s := &Store{db: db, clock: clock}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			step TEXT NOT NULL,
			success INTEGER NOT NULL,
			message TEXT,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			processed INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			month TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_started ON executions(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores the result of a step run under a new id, which it returns.
func (s *Store) Record(ctx context.Context, res types.StepResult, month string) (string, error) {
	id := uuid.NewString()
	started := res.Started
	if started.IsZero() {
		started = s.clock.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, step, success, message, started_at, duration_ms, processed, skipped, failed, month)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(res.Step), res.Success, res.Message,
		started.UTC().Format(timeLayout), res.Duration.Milliseconds(),
		res.Batch.Processed, res.Batch.Skipped, res.Batch.Failed, month,
	)
	if err != nil {
		return "", fmt.Errorf("recording execution: %w", err)
	}
	return id, nil
}

// Recent returns up to limit executions, newest first. A limit of zero
// or less returns all of them.
func (s *Store) Recent(ctx context.Context, limit int) ([]Execution, error) {
	q := `SELECT id, step, success, message, started_at, duration_ms, processed, skipped, failed, month
	      FROM executions ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var (
			e       Execution
			step    string
			message sql.NullString
			month   sql.NullString
			started string
			ms      int64
		)
		if err := rows.Scan(&e.ID, &step, &e.Success, &message, &started, &ms,
			&e.Batch.Processed, &e.Batch.Skipped, &e.Batch.Failed, &month); err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		e.Step = types.Step(step)
		e.Message = message.String
		e.Month = month.String
		e.Duration = time.Duration(ms) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			e.Started = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Last returns the newest execution, or false when there is none.
func (s *Store) Last(ctx context.Context) (Execution, bool, error) {
	recent, err := s.Recent(ctx, 1)
	if err != nil || len(recent) == 0 {
		return Execution{}, false, err
	}
	return recent[0], true, nil
}

// Reset deletes every recorded execution.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM executions`); err != nil {
		return fmt.Errorf("clearing executions: %w", err)
	}
	return nil
}
