// Package api provides the HTTP invocation surface: the manual batch
// trigger, run history and a health check.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/callops/batch-dialer/pkg/core"
)

// Option configures the API handler.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	ctx        context.Context
	token      string
	history    History
	stats      StatsSource
	middleware func(http.Handler) http.Handler
	logger     *slog.Logger
	done       func(*core.RunSummary, error)
	runs       *sync.WaitGroup
}

// WithToken sets the bearer token required by the automation routes.
// Without a token every automation request is rejected.
func WithToken(token string) Option {
	return optionFunc(func(c *config) {
		c.token = token
	})
}

// WithHistory enables the run history routes.
func WithHistory(h History) Option {
	return optionFunc(func(c *config) {
		c.history = h
	})
}

// WithStats enables the attempt statistics route.
func WithStats(s StatsSource) Option {
	return optionFunc(func(c *config) {
		c.stats = s
	})
}

// WithMiddleware wraps the handler with middleware (logging, recovery, etc.).
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return optionFunc(func(c *config) {
		c.middleware = mw
	})
}

// WithContext sets the lifecycle context runs execute under. Runs are not
// tied to the triggering request, so a client disconnect does not cancel
// them; cancelling this context does. Defaults to context.Background().
func WithContext(ctx context.Context) Option {
	return optionFunc(func(c *config) {
		c.ctx = ctx
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		c.logger = l
	})
}

// WithRunCallback is called after every run started through the API,
// including background runs.
func WithRunCallback(fn func(*core.RunSummary, error)) Option {
	return optionFunc(func(c *config) {
		c.done = fn
	})
}

// WithRunGroup tracks every run started through the API, background runs
// included, in wg. Callers wait on wg during shutdown so a cancelled run
// can persist its cursor before the ledger and database are closed.
func WithRunGroup(wg *sync.WaitGroup) Option {
	return optionFunc(func(c *config) {
		if wg != nil {
			c.runs = wg
		}
	})
}
