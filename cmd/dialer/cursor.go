package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/callops/batch-dialer/pkg/core"
)

func (a *app) newCursorCmd() *cobra.Command {
	cursorCmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or move the ledger cursor",
	}

	cursorCmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the index of the next contact to dial",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withLedger(cmd.Context(), func(l core.Ledger) error {
					index, err := l.Cursor(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), index)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <index>",
			Short: "Set the index of the next contact to dial",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := strconv.Atoi(args[0])
				if err != nil || index < 0 {
					return fmt.Errorf("index must be a non-negative integer, got %q", args[0])
				}
				return a.withLedger(cmd.Context(), func(l core.Ledger) error {
					if err := l.SetCursor(cmd.Context(), index); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "cursor set to %d\n", index)
					return nil
				})
			},
		},
	)
	return cursorCmd
}

// withLedger opens the configured ledger for a one-off command.
func (a *app) withLedger(ctx context.Context, fn func(core.Ledger) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(store.DB())

	provider, err := newLedgerProvider(ctx, cfg, store.DB())
	if err != nil {
		return err
	}
	l, err := provider.Open(ctx)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	return fn(l)
}
