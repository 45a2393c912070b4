package textract

import (
	"context"
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/jackzampolin/tablescan/internal/blocks"
)

// Result is the full block collection of a finished job.
type Result struct {
	JobID     string
	State     State
	Pages     int
	Blocks    []blocks.Block
	Responses int
}

// FetchBlocks follows NextToken until the last result page and returns every
// page's blocks concatenated in service order. Throttled requests are retried
// with backoff.
func (c *Client) FetchBlocks(ctx context.Context, jobID string) (*Result, error) {
	res := &Result{JobID: jobID}
	token := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		p, err := c.fetchPage(ctx, jobID, token)
		if err != nil {
			var invalid *types.InvalidJobIdException
			if errors.As(err, &invalid) {
				return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
			}
			return nil, fmt.Errorf("failed to fetch results of job %s: %w", jobID, err)
		}

		if res.Responses == 0 {
			switch {
			case p.state == StateFailed:
				return nil, fmt.Errorf("%w: %s: %s", ErrJobFailed, jobID, p.message)
			case !p.state.Usable():
				return nil, fmt.Errorf("%w: %s (%s)", ErrJobNotReady, jobID, p.state)
			}
			res.State = p.state
			res.Pages = p.pages
		}

		res.Responses++
		res.Blocks = append(res.Blocks, convertBlocks(p.blocks)...)
		c.logger.Debug("fetched result page", "job_id", jobID, "response", res.Responses, "blocks", len(p.blocks))

		if p.next == "" {
			break
		}
		token = p.next
	}

	c.logger.Info("fetched textract results", "job_id", jobID, "pages", res.Pages, "responses", res.Responses, "blocks", len(res.Blocks))
	return res, nil
}

func (c *Client) fetchPage(ctx context.Context, jobID, token string) (*page, error) {
	var p *page
	err := retry.Do(
		func() error {
			var err error
			p, err = c.getPage(ctx, jobID, token, c.opts.MaxResults)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.ThrottleRetries)),
		retry.Delay(c.opts.ThrottleBackoff),
		retry.RetryIf(isThrottled),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.limiter.RecordThrottle()
			c.logger.Warn("textract request throttled, retrying", "job_id", jobID, "attempt", n+1, "error", err)
		}),
	)
	return p, err
}

func isThrottled(err error) bool {
	var throttling *types.ThrottlingException
	var throughput *types.ProvisionedThroughputExceededException
	return errors.As(err, &throttling) || errors.As(err, &throughput)
}
