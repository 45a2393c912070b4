package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// timeLayout has a fixed width so stored timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Filter specifies query filters.
type Filter struct {
	RunID   string
	JobID   string
	Stage   string
	After   time.Time
	Before  time.Time
	Success *bool // nil = any, true = success only, false = errors only
}

func (f Filter) where() (string, []any) {
	var parts []string
	var args []any
	if f.RunID != "" {
		parts = append(parts, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.JobID != "" {
		parts = append(parts, "job_id = ?")
		args = append(args, f.JobID)
	}
	if f.Stage != "" {
		parts = append(parts, "stage = ?")
		args = append(args, f.Stage)
	}
	if !f.After.IsZero() {
		parts = append(parts, "created_at > ?")
		args = append(args, f.After.UTC().Format(timeLayout))
	}
	if !f.Before.IsZero() {
		parts = append(parts, "created_at < ?")
		args = append(args, f.Before.UTC().Format(timeLayout))
	}
	if f.Success != nil {
		parts = append(parts, "success = ?")
		args = append(args, *f.Success)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// List returns metrics matching the filter, oldest first. A positive limit
// caps the result.
func (r *Recorder) List(ctx context.Context, f Filter, limit int) ([]Metric, error) {
	where, args := f.where()
	query := `SELECT id, run_id, job_id, stage, document, pages, blocks, tables, seconds, success, error_type, created_at
		FROM metrics` + where + ` ORDER BY created_at, rowid`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []Metric
	for rows.Next() {
		var m Metric
		var created string
		if err := rows.Scan(&m.ID, &m.RunID, &m.JobID, &m.Stage, &m.Document, &m.Pages, &m.Blocks, &m.Tables,
			&m.Seconds, &m.Success, &m.ErrorType, &created); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		if m.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("invalid metric timestamp %q: %w", created, err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// AttachJob sets the job id on every metric of a run recorded before the
// job was started.
func (r *Recorder) AttachJob(ctx context.Context, runID, jobID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE metrics SET job_id = ? WHERE run_id = ? AND job_id = ''`, jobID, runID)
	if err != nil {
		return fmt.Errorf("failed to attach job %s to run %s: %w", jobID, runID, err)
	}
	return nil
}
