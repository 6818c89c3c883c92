// Package config loads dialer configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/callops/batch-dialer/pkg/schedule"
)

// Ledger backends.
const (
	LedgerSheets = "sheets"
	LedgerSQL    = "sql"
)

// Config holds all dialer configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Batch    BatchConfig    `yaml:"batch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP invocation surface.
type ServerConfig struct {
	Port            string `yaml:"port"`
	AuthToken       string `yaml:"auth_token"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// GatewayConfig configures the voice-agent client.
type GatewayConfig struct {
	BaseURL           string           `yaml:"base_url"`
	APIKey            string           `yaml:"api_key"`
	FromNumber        string           `yaml:"from_number"`
	AgentID           string           `yaml:"agent_id"`
	NameVariable      string           `yaml:"name_variable"`
	ClassificationKey string           `yaml:"classification_key"`
	Timeout           string           `yaml:"timeout"`
	Completion        CompletionConfig `yaml:"completion"`
}

// CompletionConfig selects how the dialer waits for a call to end.
type CompletionConfig struct {
	Mode            string `yaml:"mode"` // "poll" or "fixed"
	FixedWait       string `yaml:"fixed_wait"`
	InitialDelay    string `yaml:"initial_delay"`
	PollInterval    string `yaml:"poll_interval"`
	MaxPollInterval string `yaml:"max_poll_interval"`
	MaxWait         string `yaml:"max_wait"`
}

// LedgerConfig selects and configures the ledger backend.
type LedgerConfig struct {
	Backend string       `yaml:"backend"` // "sheets" or "sql"
	Sheets  SheetsConfig `yaml:"sheets"`
	SQL     SQLConfig    `yaml:"sql"`
}

// SheetsConfig identifies the three Google spreadsheets.
type SheetsConfig struct {
	ContactsSheetID string `yaml:"contacts_sheet_id"`
	CursorSheetID   string `yaml:"cursor_sheet_id"`
	ResultsSheetID  string `yaml:"results_sheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// SQLConfig configures the SQL ledger.
type SQLConfig struct {
	Sheet string `yaml:"sheet"`
}

// DatabaseConfig configures run history and the SQL ledger database.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
}

// ScheduleConfig configures the daily trigger.
type ScheduleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Daily    string `yaml:"daily"`    // "HH:MM"
	Timezone string `yaml:"timezone"` // IANA name
	Cron     string `yaml:"cron"`     // overrides Daily when set
}

// BatchConfig configures contact-table header names.
type BatchConfig struct {
	PhoneColumn string `yaml:"phone_column"`
	NameColumn  string `yaml:"name_column"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns configuration with defaults. Secrets have none.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "5000",
			ShutdownTimeout: "30s",
		},
		Gateway: GatewayConfig{
			BaseURL:           "https://api.retellai.com",
			NameVariable:      "nurse_name",
			ClassificationKey: "short main mudda",
			Timeout:           "30s",
			Completion: CompletionConfig{
				Mode:            "poll",
				FixedWait:       "10m",
				InitialDelay:    "1m",
				PollInterval:    "15s",
				MaxPollInterval: "2m",
				MaxWait:         "20m",
			},
		},
		Ledger: LedgerConfig{
			Backend: LedgerSheets,
		},
		Database: DatabaseConfig{
			URL:             "dialer.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: "5m",
			ConnMaxIdleTime: "1m",
		},
		Schedule: ScheduleConfig{
			Enabled:  true,
			Daily:    "09:00",
			Timezone: "UTC",
		},
		Batch: BatchConfig{
			PhoneColumn: "phone Number",
			NameColumn:  "nurse Name",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file. A missing file or an empty
// path yields defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Server.Port, "PORT")
	set(&c.Server.AuthToken, "AUTOMATION_TOKEN")

	// Gateway credentials
	set(&c.Gateway.APIKey, "RETELL_API_KEY")
	set(&c.Gateway.FromNumber, "RETELL_FROM_NUMBER")
	set(&c.Gateway.AgentID, "RETELL_AGENT_ID")

	// Spreadsheets
	set(&c.Ledger.Sheets.ContactsSheetID, "GOOGLE_ALL_ROWS_SHEET_ID")
	set(&c.Ledger.Sheets.CursorSheetID, "GOOGLE_CURRENT_INDEX_SHEET_ID")
	set(&c.Ledger.Sheets.ResultsSheetID, "GOOGLE_RESULTS_SHEET_ID")
	set(&c.Ledger.Sheets.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	set(&c.Ledger.Backend, "DIALER_LEDGER")

	set(&c.Database.URL, "DATABASE_URL")
	set(&c.Logging.Level, "LOG_LEVEL")
}

// Validate checks formats and enumerations. Credentials are checked by
// RequireGateway and RequireLedger, since not every command needs them.
func (c *Config) Validate() error {
	var errs []error

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port %q is not a number", c.Server.Port))
	}

	durations := map[string]string{
		"server.shutdown_timeout":              c.Server.ShutdownTimeout,
		"gateway.timeout":                      c.Gateway.Timeout,
		"gateway.completion.fixed_wait":        c.Gateway.Completion.FixedWait,
		"gateway.completion.initial_delay":     c.Gateway.Completion.InitialDelay,
		"gateway.completion.poll_interval":     c.Gateway.Completion.PollInterval,
		"gateway.completion.max_poll_interval": c.Gateway.Completion.MaxPollInterval,
		"gateway.completion.max_wait":          c.Gateway.Completion.MaxWait,
		"database.conn_max_lifetime":           c.Database.ConnMaxLifetime,
		"database.conn_max_idle_time":          c.Database.ConnMaxIdleTime,
	}
	for _, name := range sortedKeys(durations) {
		if _, err := parseDuration(durations[name]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	switch c.Gateway.Completion.Mode {
	case "poll", "fixed":
	default:
		errs = append(errs, fmt.Errorf("gateway.completion.mode %q must be poll or fixed", c.Gateway.Completion.Mode))
	}

	switch c.Ledger.Backend {
	case LedgerSheets, LedgerSQL:
	default:
		errs = append(errs, fmt.Errorf("ledger.backend %q must be sheets or sql", c.Ledger.Backend))
	}

	if c.Schedule.Enabled {
		if _, err := c.ScheduleSpec(); err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}

	if strings.TrimSpace(c.Batch.PhoneColumn) == "" || strings.TrimSpace(c.Batch.NameColumn) == "" {
		errs = append(errs, errors.New("batch.phone_column and batch.name_column are required"))
	}

	return errors.Join(errs...)
}

// RequireGateway checks that gateway credentials are present.
func (c *Config) RequireGateway() error {
	var errs []error
	if c.Gateway.APIKey == "" {
		errs = append(errs, errors.New("gateway api key is required (RETELL_API_KEY)"))
	}
	if c.Gateway.FromNumber == "" {
		errs = append(errs, errors.New("gateway from number is required (RETELL_FROM_NUMBER)"))
	}
	if c.Gateway.AgentID == "" {
		errs = append(errs, errors.New("gateway agent id is required (RETELL_AGENT_ID)"))
	}
	return errors.Join(errs...)
}

// RequireLedger checks that the selected ledger backend is fully configured.
func (c *Config) RequireLedger() error {
	if c.Ledger.Backend != LedgerSheets {
		return nil
	}
	var errs []error
	s := c.Ledger.Sheets
	if s.ContactsSheetID == "" {
		errs = append(errs, errors.New("contacts sheet id is required (GOOGLE_ALL_ROWS_SHEET_ID)"))
	}
	if s.CursorSheetID == "" {
		errs = append(errs, errors.New("cursor sheet id is required (GOOGLE_CURRENT_INDEX_SHEET_ID)"))
	}
	if s.ResultsSheetID == "" {
		errs = append(errs, errors.New("results sheet id is required (GOOGLE_RESULTS_SHEET_ID)"))
	}
	return errors.Join(errs...)
}

// ScheduleSpec builds the trigger schedule. A cron expression wins over
// the daily clock time.
func (c *Config) ScheduleSpec() (schedule.Schedule, error) {
	if c.Schedule.Cron != "" {
		expr := c.Schedule.Cron
		if c.Schedule.Timezone != "" && !strings.HasPrefix(expr, "CRON_TZ=") && !strings.HasPrefix(expr, "TZ=") {
			expr = "CRON_TZ=" + c.Schedule.Timezone + " " + expr
		}
		s, err := schedule.ParseCron(expr)
		if err != nil {
			return nil, fmt.Errorf("schedule.cron: %w", err)
		}
		return s, nil
	}
	s, err := schedule.ParseDaily(c.Schedule.Daily, c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.daily: %w", err)
	}
	return s, nil
}

// ShutdownTimeout returns the graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return durationOr(c.Server.ShutdownTimeout, 30*time.Second)
}

// GatewayTimeout returns the per-request gateway timeout.
func (c *Config) GatewayTimeout() time.Duration {
	return durationOr(c.Gateway.Timeout, 30*time.Second)
}

// Completion returns the parsed completion durations.
func (c *Config) Completion() (fixedWait, initialDelay, pollInterval, maxPollInterval, maxWait time.Duration) {
	cc := c.Gateway.Completion
	return durationOr(cc.FixedWait, 10*time.Minute),
		durationOr(cc.InitialDelay, time.Minute),
		durationOr(cc.PollInterval, 15*time.Second),
		durationOr(cc.MaxPollInterval, 2*time.Minute),
		durationOr(cc.MaxWait, 20*time.Minute)
}

// ConnLifetimes returns how long a pooled database connection may live and
// sit idle. Zero means no limit.
func (c *Config) ConnLifetimes() (maxLifetime, maxIdleTime time.Duration) {
	return durationOr(c.Database.ConnMaxLifetime, 5*time.Minute),
		durationOr(c.Database.ConnMaxIdleTime, time.Minute)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := parseDuration(s)
	if err != nil || s == "" {
		return def
	}
	return d
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
