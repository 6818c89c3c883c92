package batch

import (
	"log/slog"
	"time"

	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/retry"
)

// DefaultLeaseName is the run lease shared by every runner of one ledger.
const DefaultLeaseName = "batch-run"

// RunnerOption configures a Runner.
type RunnerOption interface {
	ApplyRunner(*RunnerConfig)
}

type runnerOptionFunc func(*RunnerConfig)

func (f runnerOptionFunc) ApplyRunner(c *RunnerConfig) { f(c) }

// RunnerConfig holds runner configuration.
type RunnerConfig struct {
	BatchSize         int
	Columns           core.Columns
	RunnerID          string
	Store             core.RunStore
	LeaseName         string
	LeaseTTL          time.Duration
	HeartbeatInterval time.Duration
	StoreRetry        retry.Config
	Logger            *slog.Logger
}

// WithBatchSize overrides DefaultBatchSize. Intended for embedding code and tests.
func WithBatchSize(n int) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		if n > 0 {
			c.BatchSize = n
		}
	})
}

// WithColumns sets the header names of the phone and name columns.
func WithColumns(cols core.Columns) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		c.Columns = cols
	})
}

// WithRunStore enables run history and the cross-process run lease.
func WithRunStore(s core.RunStore) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		c.Store = s
	})
}

// WithRunnerID sets the lease owner identity. Defaults to a random UUID.
func WithRunnerID(id string) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		c.RunnerID = id
	})
}

// WithLease sets the lease name and how long an unrenewed lease stays valid.
func WithLease(name string, ttl time.Duration) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		if name != "" {
			c.LeaseName = name
		}
		if ttl > 0 {
			c.LeaseTTL = ttl
		}
	})
}

// WithHeartbeatInterval sets how often a held lease is renewed.
// Should be well below the lease TTL.
func WithHeartbeatInterval(d time.Duration) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		if d > 0 {
			c.HeartbeatInterval = d
		}
	})
}

// WithStoreRetry sets the retry policy for run-store writes.
func WithStoreRetry(cfg retry.Config) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		c.StoreRetry = cfg
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		if l != nil {
			c.Logger = l
		}
	})
}
