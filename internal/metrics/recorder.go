package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Recorder stores metrics in the jobs database.
type Recorder struct {
	db  *sql.DB
	now func() time.Time
}

// NewRecorder creates a recorder on db, creating its table if needed.
func NewRecorder(db *sql.DB) (*Recorder, error) {
	r := &Recorder{db: db, now: time.Now}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics schema: %w", err)
	}
	return r, nil
}

func (r *Recorder) initSchema() error {
	_, err := r.db.Exec(`
	CREATE TABLE IF NOT EXISTS metrics (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		job_id TEXT NOT NULL DEFAULT '',
		stage TEXT NOT NULL,
		document TEXT NOT NULL DEFAULT '',
		pages INTEGER NOT NULL DEFAULT 0,
		blocks INTEGER NOT NULL DEFAULT 0,
		tables INTEGER NOT NULL DEFAULT 0,
		seconds REAL NOT NULL,
		success INTEGER NOT NULL,
		error_type TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_job_id ON metrics(job_id);
	CREATE INDEX IF NOT EXISTS idx_metrics_run_id ON metrics(run_id);
	`)
	return err
}

// Record stores a single metric and returns its id.
func (r *Recorder) Record(ctx context.Context, m Metric) (string, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metrics (id, run_id, job_id, stage, document, pages, blocks, tables, seconds, success, error_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.RunID, m.JobID, m.Stage, m.Document, m.Pages, m.Blocks, m.Tables,
		m.Seconds, m.Success, m.ErrorType, m.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("failed to record %s metric: %w", m.Stage, err)
	}
	return m.ID, nil
}

// Stage builds a metric for a stage that started at start and ended with
// err. The error's sentinel, when it has one, becomes the error type.
func Stage(runID, stage string, start time.Time, err error) Metric {
	m := Metric{
		RunID:   runID,
		Stage:   stage,
		Seconds: time.Since(start).Seconds(),
		Success: err == nil,
	}
	if err != nil {
		m.ErrorType = errorType(err)
	}
	return m
}

// errorType returns the innermost error's text.
func errorType(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
