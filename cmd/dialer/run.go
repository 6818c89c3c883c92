package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/callops/batch-dialer/pkg/core"
)

func (a *app) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one batch now and print its summary",
		Long: `Run processes the next window of contacts once, exactly like the HTTP
trigger, and prints the run summary as JSON. Interrupting the command
stops between rows and persists the progress made so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.newServices(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer svc.Close()

			summary, runErr := svc.runner.Run(cmd.Context(), core.TriggerCLI)
			if summary != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return err
				}
			}
			if summary != nil && errors.Is(runErr, context.Canceled) {
				svc.logger.Warn("run interrupted, progress saved", "next_cursor", summary.Start+summary.Attempted)
				return nil
			}
			return runErr
		},
	}
}
