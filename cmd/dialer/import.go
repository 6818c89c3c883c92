package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/callops/batch-dialer/pkg/ledger"
)

func (a *app) newImportCmd() *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "import <contacts.csv>",
		Short: "Replace the SQL ledger's contact table with a CSV file",
		Long: `Import loads a CSV file whose first record is the header row into the
SQL ledger, replacing any contacts already stored for the sheet. The
cursor is left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			header, rows, err := readContactsCSV(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB(store.DB())

			if sheet == "" {
				sheet = cfg.Ledger.SQL.Sheet
			}
			l := ledger.NewSQL(store.DB(), sheet)
			if err := l.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate ledger: %w", err)
			}
			if err := l.ImportContacts(cmd.Context(), header, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d contacts into sheet %q\n", len(rows), l.Sheet())
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "ledger sheet name (default ledger.sql.sheet)")
	return cmd
}

// readContactsCSV splits a CSV stream into its header and data rows. Rows may
// have differing widths; fully blank rows are dropped.
func readContactsCSV(r io.Reader) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("no header row")
	}

	header = records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
