package core

import (
	"context"
	"time"
)

// RunStore persists run history and the cross-process run lease.
type RunStore interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Run history
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	SaveAttempt(ctx context.Context, attempt *Attempt) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Locking
	AcquireLease(ctx context.Context, name, owner string, ttl time.Duration) error
	RenewLease(ctx context.Context, name, owner string, ttl time.Duration) error
	ReleaseLease(ctx context.Context, name, owner string) error
}
