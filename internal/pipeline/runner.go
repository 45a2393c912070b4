// Package pipeline runs a document through analysis and table extraction:
// upload, job start, completion wait, block fetch, extraction and export,
// with every job recorded in the tracker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/tablescan/internal/blocks"
	"github.com/jackzampolin/tablescan/internal/documents"
	"github.com/jackzampolin/tablescan/internal/export"
	"github.com/jackzampolin/tablescan/internal/home"
	"github.com/jackzampolin/tablescan/internal/metrics"
	"github.com/jackzampolin/tablescan/internal/notify"
	"github.com/jackzampolin/tablescan/internal/profile"
	"github.com/jackzampolin/tablescan/internal/statement"
	"github.com/jackzampolin/tablescan/internal/textract"
	"github.com/jackzampolin/tablescan/internal/tracker"
)

var (
	// ErrNoBucket is returned when neither the request nor the runner names a bucket.
	ErrNoBucket = errors.New("no bucket configured")
	// ErrNoDocument is returned when a request names no document.
	ErrNoDocument = errors.New("no document given")
)

// Analyzer starts analysis jobs and fetches their results.
type Analyzer interface {
	Start(ctx context.Context, doc textract.Document, ch *textract.Notification) (string, error)
	Status(ctx context.Context, jobID string) (textract.JobStatus, error)
	Wait(ctx context.Context, jobID string) (textract.JobStatus, error)
	FetchBlocks(ctx context.Context, jobID string) (*textract.Result, error)
}

// Notifier is a single-use completion channel.
type Notifier interface {
	Create(ctx context.Context) (*notify.Channel, error)
	WaitForJob(ctx context.Context, jobID string) (notify.Completion, error)
	Delete(ctx context.Context) error
}

// Documents checks and uploads input documents.
type Documents interface {
	Exists(ctx context.Context, bucket, key string) (documents.Object, error)
	Upload(ctx context.Context, bucket, key, path string) (documents.Object, error)
}

// Tracker records jobs.
type Tracker interface {
	Add(ctx context.Context, jobID, fileName, documentType, outputFile string) (*tracker.Job, error)
	Get(ctx context.Context, jobID string) (*tracker.Job, error)
	UpdateStatus(ctx context.Context, jobID, status, outputFile string) error
}

// Metrics records stage timings.
type Metrics interface {
	Record(ctx context.Context, m metrics.Metric) (string, error)
	AttachJob(ctx context.Context, runID, jobID string) error
}

// Deps holds the runner's collaborators. NewNotifier may be nil, in which
// case jobs are always polled. Metrics may be nil.
type Deps struct {
	Analyzer    Analyzer
	Documents   Documents
	Tracker     Tracker
	NewNotifier func() Notifier
	Metrics     Metrics
	Profiles    *profile.Registry
	Home        *home.Dir
	Bucket      string
	RoleARN     string
	Logger      *slog.Logger
}

// Runner executes pipeline runs.
type Runner struct {
	deps   Deps
	logger *slog.Logger
}

// NewRunner creates a runner. A nil profile registry uses the built-in
// profiles.
func NewRunner(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Profiles == nil {
		deps.Profiles = profile.NewRegistry()
	}
	return &Runner{deps: deps, logger: logger}
}

// Request describes one document to process.
type Request struct {
	// Key is the object key. When empty it is derived from LocalFile.
	Key string
	// LocalFile, when set, is uploaded to Key before the job starts.
	LocalFile string
	Bucket    string
	Profile   string
	// OutPath is where the result is written; empty uses the home exports dir.
	OutPath string
	Format  export.Format
	// Notify waits on a notification channel instead of polling.
	Notify bool
}

// Outcome reports what a run produced.
type Outcome struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	JobID      string            `json:"job_id" yaml:"job_id"`
	Document   documents.Object  `json:"document" yaml:"document"`
	Status     textract.State    `json:"status" yaml:"status"`
	Pages      int               `json:"pages,omitempty" yaml:"pages,omitempty"`
	Blocks     int               `json:"blocks" yaml:"blocks"`
	Tables     int               `json:"tables" yaml:"tables"`
	Summary    int               `json:"summary_items" yaml:"summary_items"`
	Rows       int               `json:"transactions" yaml:"transactions"`
	OutputPath string            `json:"output_path" yaml:"output_path"`
	Result     *statement.Result `json:"-" yaml:"-"`
}

// Process runs a document end to end. The notification channel, when one
// was created, is deleted before returning. Once a job is tracked, any
// failure marks it FAILED.
func (r *Runner) Process(ctx context.Context, req Request) (*Outcome, error) {
	out := &Outcome{RunID: uuid.New().String()}
	logger := r.logger.With("run_id", out.RunID)

	bucket := req.Bucket
	if bucket == "" {
		bucket = r.deps.Bucket
	}
	if bucket == "" {
		return nil, ErrNoBucket
	}
	key := req.Key
	if key == "" && req.LocalFile != "" {
		key = documents.KeyFor("", req.LocalFile)
	}
	if key == "" {
		return nil, ErrNoDocument
	}
	profileName := req.Profile
	if profileName == "" {
		profileName = profile.BankStatementName
	}
	if _, err := r.deps.Profiles.Get(profileName); err != nil {
		return nil, err
	}

	if req.LocalFile != "" {
		start := time.Now()
		_, err := r.deps.Documents.Upload(ctx, bucket, key, req.LocalFile)
		m := metrics.Stage(out.RunID, metrics.StageUpload, start, err)
		m.Document = key
		r.record(ctx, m)
		if err != nil {
			return nil, err
		}
	}
	obj, err := r.deps.Documents.Exists(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	out.Document = obj

	var notifier Notifier
	var channel *textract.Notification
	if req.Notify && r.deps.NewNotifier != nil && r.deps.RoleARN != "" {
		n := r.deps.NewNotifier()
		defer func() {
			if err := n.Delete(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to clean up notification channel", "error", err)
			}
		}()
		ch, err := n.Create(ctx)
		if err != nil {
			logger.Warn("notification channel unavailable, polling instead", "error", err)
		} else {
			notifier = n
			channel = &textract.Notification{RoleARN: r.deps.RoleARN, TopicARN: ch.TopicARN}
		}
	}

	start := time.Now()
	jobID, err := r.deps.Analyzer.Start(ctx, textract.Document{Bucket: bucket, Key: key}, channel)
	m := metrics.Stage(out.RunID, metrics.StageStart, start, err)
	m.JobID, m.Document = jobID, key
	r.record(ctx, m)
	if err != nil {
		return nil, err
	}
	out.JobID = jobID
	logger = logger.With("job_id", jobID)
	if r.deps.Metrics != nil {
		if err := r.deps.Metrics.AttachJob(ctx, out.RunID, jobID); err != nil {
			logger.Warn("failed to attach job to metrics", "error", err)
		}
	}

	outPath, format := r.outputFor(profileName, req.OutPath, req.Format)
	if _, err := r.deps.Tracker.Add(ctx, jobID, filepath.Base(key), profileName, outPath); err != nil {
		return nil, err
	}

	start = time.Now()
	state, err := r.wait(ctx, logger, notifier, jobID)
	m = metrics.Stage(out.RunID, metrics.StageWait, start, err)
	m.JobID = jobID
	r.record(ctx, m)
	if err != nil {
		return out, r.fail(ctx, logger, jobID, err)
	}
	out.Status = state
	if err := r.deps.Tracker.UpdateStatus(ctx, jobID, string(state), ""); err != nil {
		return out, err
	}
	if !state.Usable() {
		return out, r.fail(ctx, logger, jobID, fmt.Errorf("%w: %s finished with %s", textract.ErrJobFailed, jobID, state))
	}
	if state == textract.StatePartialSuccess {
		logger.Warn("job finished with partial success, some pages may be missing", "job_id", jobID)
	}

	if err := r.extract(ctx, logger, out, profileName, outPath, format, false); err != nil {
		return out, r.fail(ctx, logger, jobID, err)
	}
	return out, nil
}

// record stores a stage metric. Recording failures are logged only.
func (r *Runner) record(ctx context.Context, m metrics.Metric) {
	if r.deps.Metrics == nil {
		return
	}
	if _, err := r.deps.Metrics.Record(context.WithoutCancel(ctx), m); err != nil {
		r.logger.Warn("failed to record metric", "stage", m.Stage, "error", err)
	}
}

// wait returns the final job state from the notification channel, falling
// back to polling when there is no channel or it fails.
func (r *Runner) wait(ctx context.Context, logger *slog.Logger, n Notifier, jobID string) (textract.State, error) {
	if n != nil {
		c, err := n.WaitForJob(ctx, jobID)
		if err == nil {
			return textract.State(c.Status), nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		logger.Warn("notification wait failed, polling instead", "error", err)
	}
	st, err := r.deps.Analyzer.Wait(ctx, jobID)
	if err != nil {
		return st.State, err
	}
	return st.State, nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, jobID string, cause error) error {
	logger.Error("job failed", "error", cause)
	if err := r.deps.Tracker.UpdateStatus(context.WithoutCancel(ctx), jobID, tracker.StatusFailed, ""); err != nil {
		logger.Warn("failed to mark job failed", "error", err)
	}
	return cause
}

// ExtractRequest re-runs extraction for a finished job.
type ExtractRequest struct {
	JobID   string
	Profile string
	OutPath string
	Format  export.Format
	// Refresh ignores cached blocks.
	Refresh bool
}

// Extract loads the job's blocks, from the cache when present, extracts
// tables with the requested profile and saves the result.
func (r *Runner) Extract(ctx context.Context, req ExtractRequest) (*Outcome, error) {
	if req.JobID == "" {
		return nil, errors.New("job id is required")
	}
	profileName := req.Profile
	if profileName == "" {
		if job, err := r.deps.Tracker.Get(ctx, req.JobID); err == nil {
			profileName = job.DocumentType
		} else {
			profileName = profile.BankStatementName
		}
	}
	if _, err := r.deps.Profiles.Get(profileName); err != nil {
		return nil, err
	}

	out := &Outcome{RunID: uuid.New().String(), JobID: req.JobID}
	logger := r.logger.With("run_id", out.RunID, "job_id", req.JobID)
	outPath, format := r.outputFor(profileName, req.OutPath, req.Format)
	if err := r.extract(ctx, logger, out, profileName, outPath, format, req.Refresh); err != nil {
		return out, err
	}
	return out, nil
}

// Blocks returns a job's blocks, from the cache when present.
func (r *Runner) Blocks(ctx context.Context, jobID string, refresh bool) ([]blocks.Block, error) {
	res, err := r.loadBlocks(ctx, r.logger.With("job_id", jobID), uuid.New().String(), jobID, refresh)
	if err != nil {
		return nil, err
	}
	return res.Blocks, nil
}

func (r *Runner) extract(ctx context.Context, logger *slog.Logger, out *Outcome, profileName, outPath string, format export.Format, refresh bool) error {
	fetched, err := r.loadBlocks(ctx, logger, out.RunID, out.JobID, refresh)
	if err != nil {
		return err
	}
	if out.Status == "" {
		out.Status = fetched.State
	}
	out.Pages = fetched.Pages
	out.Blocks = len(fetched.Blocks)

	p, err := r.deps.Profiles.Get(profileName)
	if err != nil {
		return err
	}
	start := time.Now()
	res, reports := statement.NewExtractor(p, logger).Explain(fetched.Blocks)
	out.Result = res
	out.Tables = len(reports)
	out.Summary = res.Summary.Len()
	out.Rows = len(res.Transactions)
	m := metrics.Stage(out.RunID, metrics.StageExtract, start, nil)
	m.JobID, m.Blocks, m.Tables = out.JobID, out.Blocks, out.Tables
	r.record(ctx, m)

	start = time.Now()
	err = export.Save(outPath, res, format)
	m = metrics.Stage(out.RunID, metrics.StageSave, start, err)
	m.JobID, m.Document = out.JobID, outPath
	r.record(ctx, m)
	if err != nil {
		return err
	}
	out.OutputPath = outPath
	logger.Info("result saved", "path", outPath, "format", format, "summary_items", out.Summary, "transactions", out.Rows)

	if err := r.deps.Tracker.UpdateStatus(ctx, out.JobID, tracker.StatusExtracted, outPath); err != nil {
		if !errors.Is(err, tracker.ErrNotFound) {
			return err
		}
		logger.Debug("job not tracked, skipping status update")
	}
	return nil
}

func (r *Runner) loadBlocks(ctx context.Context, logger *slog.Logger, runID, jobID string, refresh bool) (*textract.Result, error) {
	h := r.deps.Home
	if h != nil && !refresh && h.HasBlocks(jobID) {
		bs, err := blocks.LoadFile(h.BlocksPath(jobID))
		if err == nil {
			logger.Debug("using cached blocks", "path", h.BlocksPath(jobID), "blocks", len(bs))
			return &textract.Result{JobID: jobID, State: textract.StateSucceeded, Blocks: bs}, nil
		}
		logger.Warn("ignoring unreadable block cache", "path", h.BlocksPath(jobID), "error", err)
	}

	start := time.Now()
	res, err := r.deps.Analyzer.FetchBlocks(ctx, jobID)
	m := metrics.Stage(runID, metrics.StageFetch, start, err)
	m.JobID = jobID
	if res != nil {
		m.Pages, m.Blocks = res.Pages, len(res.Blocks)
	}
	r.record(ctx, m)
	if err != nil {
		return nil, err
	}
	if h != nil {
		if err := h.EnsureExists(); err != nil {
			return nil, err
		}
		if err := blocks.SaveFile(h.BlocksPath(jobID), res.Blocks); err != nil {
			logger.Warn("failed to cache blocks", "error", err)
		}
	}
	return res, nil
}

// outputFor resolves the result path and format. An explicit format wins
// over the path's extension.
func (r *Runner) outputFor(profileName, outPath string, format export.Format) (string, export.Format) {
	if outPath == "" {
		if format == "" {
			format = export.FormatJSON
		}
		if r.deps.Home != nil {
			return r.deps.Home.ExportPath(profileName, string(format)), format
		}
		return fmt.Sprintf("%s_data.%s", profileName, format), format
	}
	if format == "" {
		format = export.FormatFromPath(outPath)
	}
	return outPath, format
}
