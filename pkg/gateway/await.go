package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/retry"
)

// AwaitOutcome blocks until the call has plausibly finished, following the
// client's completion policy, and returns its outcome.
func (c *Client) AwaitOutcome(ctx context.Context, callID string) (*core.CallOutcome, error) {
	if c.policy.Mode == ModeFixed {
		if err := retry.Sleep(ctx, c.policy.FixedWait); err != nil {
			return nil, err
		}
		return c.GetOutcome(ctx, callID)
	}
	return c.poll(ctx, callID)
}

// poll re-fetches the call record until it is terminal. Temporary gateway
// errors keep polling; anything else is returned at once. When MaxWait runs
// out, one final fetch decides the result.
func (c *Client) poll(ctx context.Context, callID string) (*core.CallOutcome, error) {
	p := c.policy
	deadline := time.Now().Add(p.MaxWait)

	if err := retry.Sleep(ctx, p.InitialDelay); err != nil {
		return nil, err
	}

	backoff := retry.NewBackoff(p.Backoff)
	for attempt := 1; ; attempt++ {
		rec, err := c.getCall(ctx, callID)
		if err == nil && rec.terminal() {
			return c.extract(rec)
		}
		if err != nil && !retry.IsRetryableError(err) {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := backoff.Next()
		if wait > remaining {
			wait = remaining
		}

		status := ""
		if rec != nil {
			status = rec.CallStatus
		}
		c.logger.Debug("call not finished, polling again",
			"call_id", callID,
			"attempt", attempt,
			"status", status,
			"error", err,
			"wait", wait)

		if err := retry.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	c.logger.Warn("call outcome wait expired, fetching final state", "call_id", callID, "max_wait", p.MaxWait)
	rec, err := c.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if rec.CallAnalysis == nil && !rec.terminal() {
		return nil, fmt.Errorf("%w: call %s still %q after %s", core.ErrCallNotFinished, callID, rec.CallStatus, p.MaxWait)
	}
	return c.extract(rec)
}
