package textract

import (
	"context"
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
)

var errStillRunning = errors.New("job still running")

// Wait polls the job until it leaves IN_PROGRESS. SUCCEEDED and
// PARTIAL_SUCCESS return normally; FAILED returns ErrJobFailed and an unknown
// job returns ErrJobNotFound without further polling.
func (c *Client) Wait(ctx context.Context, jobID string) (JobStatus, error) {
	var last JobStatus
	err := retry.Do(
		func() error {
			st, err := c.Status(ctx, jobID)
			last = st
			if err != nil {
				if errors.Is(err, ErrJobNotFound) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			switch {
			case st.State.Usable():
				return nil
			case st.State == StateFailed:
				return retry.Unrecoverable(fmt.Errorf("%w: %s: %s", ErrJobFailed, jobID, st.Message))
			default:
				return errStillRunning
			}
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.MaxPolls)),
		retry.Delay(c.opts.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("waiting for textract job", "job_id", jobID, "poll", n+1, "status", last.State, "error", err)
		}),
	)
	if errors.Is(err, errStillRunning) {
		return last, fmt.Errorf("%w: %s after %d polls", ErrWaitTimeout, jobID, c.opts.MaxPolls)
	}
	if err != nil {
		return last, err
	}
	c.logger.Info("textract job finished", "job_id", jobID, "status", last.State, "pages", last.Pages)
	return last, nil
}
