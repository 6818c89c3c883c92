package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/callops/batch-dialer/pkg/config"
)

// app holds state shared by every command.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dialer",
		Short: "Batch call automation: dial the next window of contacts and record outcomes",
		Long: `dialer reads a contact table, places AI-agent phone calls to the next
window of contacts, appends each call outcome to a results table and
advances a persisted cursor so the following run continues where this
one stopped.

Configuration comes from a YAML file (--config) with environment
variable overrides such as RETELL_API_KEY and DATABASE_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("DIALER_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "dialer.yaml"
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfig, "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "override logging.format (text, json)")

	root.AddCommand(
		a.newServeCmd(),
		a.newRunCmd(),
		a.newMigrateCmd(),
		a.newImportCmd(),
		a.newCursorCmd(),
	)
	return root
}

// loadConfig reads and validates configuration, applying flag overrides.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
