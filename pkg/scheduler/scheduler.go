// Package scheduler fires a function on a schedule until its context ends.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/schedule"
)

// Func is the work fired on each tick.
type Func func(ctx context.Context) error

// Scheduler runs one Func on one Schedule. Firings are synchronous: a slow
// run delays the next firing, and firings missed meanwhile are not replayed.
type Scheduler struct {
	name     string
	schedule schedule.Schedule
	fn       Func
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Scheduler.
type Option interface {
	apply(*Scheduler)
}

type optionFunc func(*Scheduler)

func (f optionFunc) apply(s *Scheduler) { f(s) }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(s *Scheduler) {
		s.logger = l
	})
}

// New creates a scheduler.
func New(name string, sched schedule.Schedule, fn Func, opts ...Option) *Scheduler {
	s := &Scheduler{
		name:     name,
		schedule: sched,
		fn:       fn,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s
}

// Next returns the next firing time after now.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(s.now())
}

// Start fires the function at every scheduled time. Blocks until ctx is
// cancelled and returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	for {
		next := s.Next()
		s.logger.Info("next scheduled run", "name", s.name, "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.fire(ctx)
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	start := s.now()
	err := s.fn(ctx)
	switch {
	case err == nil:
		s.logger.Info("scheduled run finished", "name", s.name, "duration", s.now().Sub(start))
	case errors.Is(err, core.ErrRunInProgress):
		s.logger.Warn("scheduled run skipped, another run is in progress", "name", s.name)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		s.logger.Warn("scheduled run interrupted by shutdown", "name", s.name)
	default:
		s.logger.Error("scheduled run failed", "name", s.name, "error", err)
	}
}
