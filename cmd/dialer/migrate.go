package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/callops/batch-dialer/pkg/ledger"
)

func (a *app) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the run-history and SQL ledger tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB(store.DB())

			if err := ledger.NewSQL(store.DB(), cfg.Ledger.SQL.Sheet).Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate ledger: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
