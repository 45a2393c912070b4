// Package tracker records analysis jobs in a local SQLite database so that
// results can be found again by job ID or by input file.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Job statuses. Remote analysis states are stored as reported.
const (
	StatusSubmitted  = "SUBMITTED"
	StatusInProgress = "IN_PROGRESS"
	StatusSucceeded  = "SUCCEEDED"
	StatusFailed     = "FAILED"
	StatusExtracted  = "EXTRACTED"
)

// DefaultDocumentType is used when a job is added without one.
const DefaultDocumentType = "bank_statement"

// DefaultRecent is the number of jobs Recent returns for a non-positive limit.
const DefaultRecent = 10

// ErrNotFound is returned when no job matches.
var ErrNotFound = errors.New("job not found")

// Job is one tracked analysis job.
type Job struct {
	ID           string    `json:"id" yaml:"id"`
	JobID        string    `json:"job_id" yaml:"job_id"`
	FileName     string    `json:"file_name" yaml:"file_name"`
	DocumentType string    `json:"document_type" yaml:"document_type"`
	Status       string    `json:"status" yaml:"status"`
	StartTime    time.Time `json:"start_time" yaml:"start_time"`
	LastUpdated  time.Time `json:"last_updated" yaml:"last_updated"`
	OutputFile   string    `json:"output_file" yaml:"output_file"`
}

// DefaultOutputFile returns the result file name for a document type.
func DefaultOutputFile(documentType string) string {
	return documentType + "_data.json"
}

// Tracker stores jobs in SQLite.
type Tracker struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the tracker database at path.
func Open(path string, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writes are serialized by SQLite.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	t := &Tracker{db: db, logger: logger, now: time.Now}
	if err := t.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return t, nil
}

// DB returns the underlying database, shared with the metrics recorder.
func (t *Tracker) DB() *sql.DB {
	return t.db
}

// Close closes the database.
func (t *Tracker) Close() error {
	return t.db.Close()
}

func (t *Tracker) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL UNIQUE,
		file_name TEXT NOT NULL,
		document_type TEXT NOT NULL,
		status TEXT NOT NULL,
		start_time TEXT NOT NULL,
		last_updated TEXT NOT NULL,
		output_file TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_file_name ON jobs(file_name);
	CREATE INDEX IF NOT EXISTS idx_jobs_start_time ON jobs(start_time);
	`
	_, err := t.db.Exec(schema)
	return err
}

// withRetry retries an operation while the database is locked.
func (t *Tracker) withRetry(ctx context.Context, op func() error) error {
	return retry.Do(op,
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(10*time.Millisecond),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
	)
}

func isBusy(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SQLITE_BUSY")
}

// Add records a newly submitted job. Empty document type and output file
// fall back to their defaults.
func (t *Tracker) Add(ctx context.Context, jobID, fileName, documentType, outputFile string) (*Job, error) {
	if jobID == "" {
		return nil, errors.New("job id is required")
	}
	if documentType == "" {
		documentType = DefaultDocumentType
	}
	if outputFile == "" {
		outputFile = DefaultOutputFile(documentType)
	}
	now := t.now().UTC()
	job := &Job{
		ID:           uuid.New().String(),
		JobID:        jobID,
		FileName:     fileName,
		DocumentType: documentType,
		Status:       StatusSubmitted,
		StartTime:    now,
		LastUpdated:  now,
		OutputFile:   outputFile,
	}

	err := t.withRetry(ctx, func() error {
		_, err := t.db.ExecContext(ctx, `
			INSERT INTO jobs (id, job_id, file_name, document_type, status, start_time, last_updated, output_file)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.JobID, job.FileName, job.DocumentType, job.Status,
			formatTime(job.StartTime), formatTime(job.LastUpdated), job.OutputFile)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add job %s: %w", jobID, err)
	}
	t.logger.Debug("job tracked", "job_id", jobID, "file", fileName, "document_type", documentType)
	return job, nil
}

// UpdateStatus sets a job's status and, when outputFile is non-empty, its
// output file.
func (t *Tracker) UpdateStatus(ctx context.Context, jobID, status, outputFile string) error {
	var affected int64
	err := t.withRetry(ctx, func() error {
		query := `UPDATE jobs SET status = ?, last_updated = ? WHERE job_id = ?`
		args := []any{status, formatTime(t.now().UTC()), jobID}
		if outputFile != "" {
			query = `UPDATE jobs SET status = ?, last_updated = ?, output_file = ? WHERE job_id = ?`
			args = []any{status, formatTime(t.now().UTC()), outputFile, jobID}
		}
		res, err := t.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	t.logger.Debug("job updated", "job_id", jobID, "status", status)
	return nil
}

const selectJob = `SELECT id, job_id, file_name, document_type, status, start_time, last_updated, output_file FROM jobs`

// Get returns the job with the given analysis job ID.
func (t *Tracker) Get(ctx context.Context, jobID string) (*Job, error) {
	row := t.db.QueryRowContext(ctx, selectJob+` WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return job, nil
}

// ForFile returns the most recent job for a file name.
func (t *Tracker) ForFile(ctx context.Context, fileName string) (*Job, error) {
	row := t.db.QueryRowContext(ctx, selectJob+` WHERE file_name = ? ORDER BY start_time DESC, rowid DESC LIMIT 1`, fileName)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no job for %s", ErrNotFound, fileName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job for %s: %w", fileName, err)
	}
	return job, nil
}

// Recent returns up to limit jobs, newest first.
func (t *Tracker) Recent(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}
	rows, err := t.db.QueryContext(ctx, selectJob+` ORDER BY start_time DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*Job, error) {
	var (
		job                Job
		started, lastTouch string
	)
	if err := s.Scan(&job.ID, &job.JobID, &job.FileName, &job.DocumentType, &job.Status, &started, &lastTouch, &job.OutputFile); err != nil {
		return nil, err
	}
	var err error
	if job.StartTime, err = parseTime(started); err != nil {
		return nil, err
	}
	if job.LastUpdated, err = parseTime(lastTouch); err != nil {
		return nil, err
	}
	return &job, nil
}

// timeLayout has a fixed width so stored timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
