package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/callops/batch-dialer/api"
	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/scheduler"
)

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger and run the daily schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), cmd)
		},
	}
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command) error {
	svc, err := a.newServices(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer svc.Close()

	cfg := svc.cfg
	if cfg.Server.AuthToken == "" {
		return errors.New("server.auth_token is required to serve (AUTOMATION_TOKEN)")
	}

	var sched *scheduler.Scheduler
	if cfg.Schedule.Enabled {
		spec, err := cfg.ScheduleSpec()
		if err != nil {
			return err
		}
		sched = scheduler.New("daily-batch", spec, func(ctx context.Context) error {
			_, err := svc.runner.Run(ctx, core.TriggerScheduled)
			return err
		}, scheduler.WithLogger(svc.logger))
	}

	g, gctx := errgroup.WithContext(ctx)
	var runs sync.WaitGroup

	handler := api.Handler(svc.runner,
		api.WithToken(cfg.Server.AuthToken),
		api.WithHistory(svc.store),
		api.WithStats(svc.store),
		api.WithMiddleware(api.LogRequests(svc.logger)),
		api.WithContext(gctx),
		api.WithLogger(svc.logger),
		api.WithRunGroup(&runs),
	)
	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		svc.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout())
		defer cancel()
		svc.logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if sched != nil {
		g.Go(func() error {
			if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		svc.logger.Info("daily schedule disabled")
	}

	err = g.Wait()

	// Cancelled API runs still persist their cursor; keep the database open
	// until they have.
	svc.logger.Info("waiting for in-flight runs")
	runs.Wait()
	return err
}
