package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/retry"
	"github.com/callops/batch-dialer/pkg/security"
)

// Runner executes batch runs. Only one run per Runner executes at a time;
// with a RunStore configured, only one run per lease name executes across
// processes.
type Runner struct {
	ledgers core.LedgerProvider
	gateway core.Gateway
	config  RunnerConfig
	logger  *slog.Logger

	mu sync.Mutex
}

// NewRunner creates a runner reading ledgers from provider and dialing through gw.
func NewRunner(provider core.LedgerProvider, gw core.Gateway, opts ...RunnerOption) *Runner {
	config := RunnerConfig{
		BatchSize:         DefaultBatchSize,
		Columns:           core.DefaultColumns(),
		RunnerID:          uuid.New().String(),
		LeaseName:         DefaultLeaseName,
		LeaseTTL:          10 * time.Minute,
		HeartbeatInterval: 2 * time.Minute,
		StoreRetry: retry.Config{
			MaxAttempts:       3,
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        2 * time.Second,
			BackoffMultiplier: 2.0,
			JitterFraction:    0.1,
		},
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt.ApplyRunner(&config)
	}

	return &Runner{
		ledgers: provider,
		gateway: gw,
		config:  config,
		logger:  config.Logger,
	}
}

// Config returns the runner configuration.
func (r *Runner) Config() RunnerConfig {
	return r.config
}

// Run executes one batch.
//
// Setup failures (opening the ledger, reading the contact table) abort the
// run before any call is placed or the cursor changes, and are returned
// with a nil summary. Failures of individual contacts are counted in the
// summary and never abort the batch. When ctx is cancelled mid-batch the
// cursor is advanced past the rows already attempted, and the partial
// summary is returned together with the context error.
func (r *Runner) Run(ctx context.Context, trigger core.Trigger) (*core.RunSummary, error) {
	if !r.mu.TryLock() {
		return nil, core.ErrRunInProgress
	}
	defer r.mu.Unlock()

	release, err := r.acquireLease(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	summary := &core.RunSummary{
		RunID:     runIDFrom(ctx),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	rec := r.startHistory(ctx, summary)

	r.logger.Info("batch run started", "run_id", summary.RunID, "trigger", trigger)

	err = r.execute(ctx, summary, rec)
	summary.FinishedAt = time.Now()
	rec.finish(summary, err)

	switch {
	case err != nil && !summary.Cancelled:
		r.logger.Error("batch run failed", "run_id", summary.RunID, "error", err)
		return nil, err
	case summary.Cancelled:
		r.logger.Warn("batch run cancelled",
			"run_id", summary.RunID,
			"attempted", summary.Attempted,
			"cursor", summary.Start+summary.Attempted)
		return summary, err
	}

	r.logger.Info("batch run finished",
		"run_id", summary.RunID,
		"start", summary.Start,
		"end", summary.End,
		"total", summary.Total,
		"reset", summary.Reset,
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
	return summary, nil
}

func (r *Runner) execute(ctx context.Context, summary *core.RunSummary, rec *history) error {
	ledger, err := r.ledgers.Open(ctx)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	cursor, err := ledger.Cursor(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.logger.Warn("cursor read failed, starting from row 0", "run_id", summary.RunID, "error", err)
		cursor = 0
	}

	rows, err := ledger.Contacts(ctx)
	if err != nil {
		return fmt.Errorf("read contacts: %w", err)
	}
	var header []string
	var data [][]string
	if len(rows) > 0 {
		header, data = rows[0], rows[1:]
	}

	start, end, reset := Window(cursor, len(data), r.config.BatchSize)
	summary.Start, summary.End, summary.Total, summary.Reset = start, end, len(data), reset

	if reset {
		r.logger.Info("contact table exhausted, resetting cursor", "run_id", summary.RunID, "cursor", cursor, "total", len(data))
		if err := ledger.SetCursor(ctx, 0); err != nil {
			return fmt.Errorf("reset cursor: %w", err)
		}
		return nil
	}

	r.logger.Info("processing batch window", "run_id", summary.RunID, "start", start, "end", end, "total", len(data))

	for i := start; i < end; i++ {
		if ctx.Err() != nil {
			break
		}
		row := core.MapRow(i, header, data[i], r.config.Columns)
		summary.Attempted++

		if row.Skippable() {
			summary.Skipped++
			r.logger.Info("skipping contact with missing phone or name", "run_id", summary.RunID, "row", i)
			continue
		}

		if err := r.processRow(ctx, ledger, rec, row); err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, core.RowFailure{
				Row:   i,
				Name:  row.Name,
				Error: security.SanitizeErrorMessage(err.Error()),
			})
			r.logger.Error("contact failed",
				"run_id", summary.RunID,
				"row", i,
				"name", row.Name,
				"phone", security.MaskPhone(row.Phone),
				"error", err)
			continue
		}
		summary.Succeeded++
	}

	next := start + summary.Attempted
	writeCtx := ctx
	if ctx.Err() != nil {
		summary.Cancelled = true
		writeCtx = context.WithoutCancel(ctx)
	}
	if err := ledger.SetCursor(writeCtx, next); err != nil {
		return fmt.Errorf("persist cursor %d: %w", next, err)
	}
	if summary.Cancelled {
		return ctx.Err()
	}
	return nil
}

// processRow runs the call-and-record sequence for one contact.
// Panics are converted to errors so one bad row cannot abort the batch.
func (r *Runner) processRow(ctx context.Context, ledger core.Ledger, rec *history, row core.ContactRow) (err error) {
	attempt := &core.Attempt{
		RowIndex:    row.Index,
		ContactName: row.Name,
		Phone:       security.MaskPhone(row.Phone),
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			attempt.State = core.AttemptFailed
			attempt.LastError = err.Error()
			rec.saveAttempt(ctx, attempt)
		}
	}()

	placed, err := r.gateway.PlaceCall(ctx, row.Phone, row.Name)
	if err != nil {
		return fmt.Errorf("place call: %w", err)
	}
	attempt.CallID = placed.CallID
	attempt.State = core.AttemptCreated
	rec.saveAttempt(ctx, attempt)

	attempt.State = core.AttemptAwaiting
	rec.saveAttempt(ctx, attempt)

	outcome, err := r.gateway.AwaitOutcome(ctx, placed.CallID)
	if err != nil {
		return fmt.Errorf("await outcome of %s: %w", placed.CallID, err)
	}
	attempt.State = core.AttemptResolved
	rec.saveAttempt(ctx, attempt)

	if err := ledger.AppendResult(ctx, outcome); err != nil {
		return fmt.Errorf("append result of %s: %w", placed.CallID, err)
	}
	attempt.State = core.AttemptRecorded
	rec.saveAttempt(ctx, attempt)
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Lease
// ────────────────────────────────────────────────────────────────────────────

// acquireLease takes the cross-process run lease and keeps it alive until
// the returned release func is called.
func (r *Runner) acquireLease(ctx context.Context) (func(), error) {
	store := r.config.Store
	if store == nil {
		return func() {}, nil
	}

	name, owner := r.config.LeaseName, r.config.RunnerID
	if err := store.AcquireLease(ctx, name, owner, r.config.LeaseTTL); err != nil {
		if errors.Is(err, core.ErrRunInProgress) {
			return nil, err
		}
		return nil, fmt.Errorf("acquire run lease: %w", err)
	}

	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.runHeartbeat(hbCtx, name, owner)
	}()

	return func() {
		cancel()
		<-done
		if err := store.ReleaseLease(context.WithoutCancel(ctx), name, owner); err != nil {
			r.logger.Warn("failed to release run lease", "lease", name, "error", err)
		}
	}, nil
}

// runHeartbeat periodically extends the lease while a run executes. It stops
// once the lease belongs to another runner.
func (r *Runner) runHeartbeat(ctx context.Context, name, owner string) {
	ticker := time.NewTicker(r.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := retry.DoIf(ctx, r.config.StoreRetry, renewRetryable, func() error {
				return r.config.Store.RenewLease(ctx, name, owner, r.config.LeaseTTL)
			})
			switch {
			case errors.Is(err, core.ErrLeaseNotOwned):
				r.logger.Error("run lease lost to another runner", "lease", name)
				return
			case err != nil && ctx.Err() == nil:
				r.logger.Warn("lease heartbeat failed after retries", "lease", name, "error", err)
			case err == nil:
				r.logger.Debug("lease heartbeat sent", "lease", name)
			}
		}
	}
}

// renewRetryable reports whether a failed renewal is worth another attempt.
// A lease held by another runner stays that way.
func renewRetryable(err error) bool {
	return !errors.Is(err, core.ErrLeaseNotOwned) && retry.IsRetryableError(err)
}
