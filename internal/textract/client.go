// Package textract drives asynchronous document analysis jobs: starting a
// job, polling its status and fetching every page of result blocks.
package textract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

var (
	// ErrJobNotFound is returned when the service does not know a job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFailed is returned when a job finished with FAILED.
	ErrJobFailed = errors.New("job failed")
	// ErrJobNotReady is returned when results are requested for a running job.
	ErrJobNotReady = errors.New("job still in progress")
	// ErrWaitTimeout is returned when a job did not finish within the poll budget.
	ErrWaitTimeout = errors.New("timed out waiting for job")
)

// API is the subset of the Textract client used here.
type API interface {
	StartDocumentAnalysis(ctx context.Context, in *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error)
	StartDocumentTextDetection(ctx context.Context, in *textract.StartDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error)
	GetDocumentAnalysis(ctx context.Context, in *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error)
	GetDocumentTextDetection(ctx context.Context, in *textract.GetDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error)
}

// Mode selects which job family is used.
type Mode string

const (
	ModeAnalysis  Mode = "analysis"
	ModeDetection Mode = "detection"
)

// ParseMode validates a mode name. Empty selects analysis.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeAnalysis):
		return ModeAnalysis, nil
	case string(ModeDetection):
		return ModeDetection, nil
	default:
		return "", fmt.Errorf("unknown textract mode %q", s)
	}
}

// State is a job state as reported by the service, plus NOT_FOUND.
type State string

const (
	StateInProgress     State = State(types.JobStatusInProgress)
	StateSucceeded      State = State(types.JobStatusSucceeded)
	StateFailed         State = State(types.JobStatusFailed)
	StatePartialSuccess State = State(types.JobStatusPartialSuccess)
	StateNotFound       State = "NOT_FOUND"
)

// Done reports whether the job has stopped running.
func (s State) Done() bool {
	return s != StateInProgress && s != ""
}

// Usable reports whether results can be fetched.
func (s State) Usable() bool {
	return s == StateSucceeded || s == StatePartialSuccess
}

// Document locates the input object.
type Document struct {
	Bucket  string
	Key     string
	Version string
}

// Notification is the SNS channel a job publishes its completion to.
type Notification struct {
	RoleARN  string
	TopicARN string
}

// JobStatus is a point-in-time view of a job.
type JobStatus struct {
	JobID   string `json:"job_id" yaml:"job_id"`
	State   State  `json:"status" yaml:"status"`
	Pages   int    `json:"pages,omitempty" yaml:"pages,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Options configures a Client.
type Options struct {
	Mode         Mode
	FeatureTypes []string
	MaxResults   int
	PollInterval time.Duration
	MaxPolls     int
	// RateLimit caps result page requests per second; zero disables it.
	RateLimit float64
	// ThrottleRetries bounds retries of a throttled page request.
	ThrottleRetries int
	ThrottleBackoff time.Duration
	Logger          *slog.Logger
}

// Client runs jobs against the service.
type Client struct {
	api     API
	opts    Options
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewClient creates a client, filling unset options with defaults.
func NewClient(api API, opts Options) *Client {
	if opts.Mode == "" {
		opts.Mode = ModeAnalysis
	}
	if len(opts.FeatureTypes) == 0 {
		opts.FeatureTypes = []string{string(types.FeatureTypeTables), string(types.FeatureTypeForms)}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 1000
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = 120
	}
	if opts.ThrottleRetries <= 0 {
		opts.ThrottleRetries = 5
	}
	if opts.ThrottleBackoff <= 0 {
		opts.ThrottleBackoff = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:     api,
		opts:    opts,
		limiter: NewRateLimiter(opts.RateLimit),
		logger:  logger,
	}
}

// Mode returns the job family the client uses.
func (c *Client) Mode() Mode {
	return c.opts.Mode
}

// Start submits doc for processing and returns the job id. ch may be nil
// when the caller polls instead of waiting for a notification.
func (c *Client) Start(ctx context.Context, doc Document, ch *Notification) (string, error) {
	loc := &types.DocumentLocation{S3Object: &types.S3Object{
		Bucket: aws.String(doc.Bucket),
		Name:   aws.String(doc.Key),
	}}
	if doc.Version != "" {
		loc.S3Object.Version = aws.String(doc.Version)
	}
	var nc *types.NotificationChannel
	if ch != nil {
		nc = &types.NotificationChannel{
			RoleArn:     aws.String(ch.RoleARN),
			SNSTopicArn: aws.String(ch.TopicARN),
		}
	}

	var jobID *string
	switch c.opts.Mode {
	case ModeDetection:
		out, err := c.api.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
			DocumentLocation:    loc,
			NotificationChannel: nc,
		})
		if err != nil {
			return "", fmt.Errorf("failed to start text detection for s3://%s/%s: %w", doc.Bucket, doc.Key, err)
		}
		jobID = out.JobId
	default:
		features := make([]types.FeatureType, len(c.opts.FeatureTypes))
		for i, f := range c.opts.FeatureTypes {
			features[i] = types.FeatureType(strings.ToUpper(f))
		}
		out, err := c.api.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
			DocumentLocation:    loc,
			FeatureTypes:        features,
			NotificationChannel: nc,
		})
		if err != nil {
			return "", fmt.Errorf("failed to start document analysis for s3://%s/%s: %w", doc.Bucket, doc.Key, err)
		}
		jobID = out.JobId
	}

	id := aws.ToString(jobID)
	if id == "" {
		return "", fmt.Errorf("service returned no job id for s3://%s/%s", doc.Bucket, doc.Key)
	}
	c.logger.Info("textract job started", "job_id", id, "mode", c.opts.Mode, "bucket", doc.Bucket, "key", doc.Key)
	return id, nil
}

// Status fetches the job's current state. An unknown job id yields
// ErrJobNotFound together with a NOT_FOUND status.
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	p, err := c.getPage(ctx, jobID, "", 1)
	if err != nil {
		var invalid *types.InvalidJobIdException
		if errors.As(err, &invalid) {
			return JobStatus{JobID: jobID, State: StateNotFound}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return JobStatus{JobID: jobID}, fmt.Errorf("failed to get status of job %s: %w", jobID, err)
	}
	return JobStatus{JobID: jobID, State: p.state, Pages: p.pages, Message: p.message}, nil
}

// page is one result page of either job family.
type page struct {
	state   State
	pages   int
	message string
	blocks  []types.Block
	next    string
}

func (c *Client) getPage(ctx context.Context, jobID, token string, maxResults int) (*page, error) {
	var next *string
	if token != "" {
		next = aws.String(token)
	}
	switch c.opts.Mode {
	case ModeDetection:
		out, err := c.api.GetDocumentTextDetection(ctx, &textract.GetDocumentTextDetectionInput{
			JobId:      aws.String(jobID),
			MaxResults: aws.Int32(int32(maxResults)),
			NextToken:  next,
		})
		if err != nil {
			return nil, err
		}
		return &page{
			state:   State(out.JobStatus),
			pages:   metadataPages(out.DocumentMetadata),
			message: aws.ToString(out.StatusMessage),
			blocks:  out.Blocks,
			next:    aws.ToString(out.NextToken),
		}, nil
	default:
		out, err := c.api.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId:      aws.String(jobID),
			MaxResults: aws.Int32(int32(maxResults)),
			NextToken:  next,
		})
		if err != nil {
			return nil, err
		}
		return &page{
			state:   State(out.JobStatus),
			pages:   metadataPages(out.DocumentMetadata),
			message: aws.ToString(out.StatusMessage),
			blocks:  out.Blocks,
			next:    aws.ToString(out.NextToken),
		}, nil
	}
}

func metadataPages(m *types.DocumentMetadata) int {
	if m == nil {
		return 0
	}
	return int(aws.ToInt32(m.Pages))
}
