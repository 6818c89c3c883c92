package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/retry"
)

// history records a run and its attempts in the RunStore. Every write is
// best-effort: failures are logged and never change the run's result.
// A nil *history records nothing.
type history struct {
	store  core.RunStore
	retry  retry.Config
	logger *slog.Logger
	run    *core.Run
}

func (r *Runner) startHistory(ctx context.Context, summary *core.RunSummary) *history {
	if r.config.Store == nil {
		return nil
	}
	h := &history{
		store:  r.config.Store,
		retry:  r.config.StoreRetry,
		logger: r.logger,
		run: &core.Run{
			ID:        summary.RunID,
			Trigger:   summary.Trigger,
			Status:    core.RunRunning,
			Owner:     r.config.RunnerID,
			StartedAt: summary.StartedAt,
		},
	}
	err := retry.Do(ctx, h.retry, func() error {
		return h.store.CreateRun(ctx, h.run)
	})
	if err != nil {
		r.logger.Warn("failed to record run start, history disabled for this run", "run_id", summary.RunID, "error", err)
		return nil
	}
	return h
}

func (h *history) saveAttempt(ctx context.Context, attempt *core.Attempt) {
	if h == nil {
		return
	}
	attempt.RunID = h.run.ID
	ctx = context.WithoutCancel(ctx)
	err := retry.Do(ctx, h.retry, func() error {
		return h.store.SaveAttempt(ctx, attempt)
	})
	if err != nil {
		h.logger.Warn("failed to record call attempt",
			"run_id", h.run.ID,
			"row", attempt.RowIndex,
			"state", attempt.State,
			"error", err)
	}
}

func (h *history) finish(summary *core.RunSummary, runErr error) {
	if h == nil {
		return
	}
	run := h.run
	run.StartIndex = summary.Start
	run.EndIndex = summary.End
	run.ContactCount = summary.Total
	run.Attempted = summary.Attempted
	run.Succeeded = summary.Succeeded
	run.Failed = summary.Failed
	run.Skipped = summary.Skipped
	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	run.FinishedAt = &finished

	switch {
	case summary.Cancelled:
		run.Status = core.RunCancelled
	case runErr != nil:
		run.Status = core.RunFailed
		run.LastError = runErr.Error()
	case summary.Reset:
		run.Status = core.RunReset
	default:
		run.Status = core.RunCompleted
	}

	ctx := context.Background()
	err := retry.Do(ctx, h.retry, func() error {
		return h.store.FinishRun(ctx, run)
	})
	if err != nil {
		h.logger.Warn("failed to record run result", "run_id", run.ID, "error", err)
	}
}
