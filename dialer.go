// Package dialer runs batch call automation: each run reads the next window
// of a contact table, places an AI-agent phone call per contact, records
// every call outcome and advances a persisted cursor.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	db, _ := dialer.OpenDatabase("dialer.db")
//	store := dialer.NewGormStorage(db)
//	store.Migrate(ctx)
//
//	ledger := dialer.NewSQLLedger(db, "default")
//	ledger.Migrate(ctx)
//
//	gw, _ := dialer.NewGateway(
//	    dialer.WithAPIKey(os.Getenv("RETELL_API_KEY")),
//	    dialer.WithFromNumber(os.Getenv("RETELL_FROM_NUMBER")),
//	    dialer.WithAgentID(os.Getenv("RETELL_AGENT_ID")),
//	)
//
//	runner := dialer.NewRunner(ledger, gw, dialer.WithRunStore(store))
//	summary, err := runner.Run(ctx, dialer.TriggerManual)
package dialer

import (
	"context"
	"time"

	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/callops/batch-dialer/pkg/batch"
	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/gateway"
	"github.com/callops/batch-dialer/pkg/ledger"
	"github.com/callops/batch-dialer/pkg/schedule"
	"github.com/callops/batch-dialer/pkg/scheduler"
	"github.com/callops/batch-dialer/pkg/security"
	"github.com/callops/batch-dialer/pkg/storage"
)

type (
	// Ledger is the cursor, contact table and results table of a run.
	Ledger = core.Ledger

	// LedgerProvider opens a Ledger handle for one run.
	LedgerProvider = core.LedgerProvider

	// Gateway places calls and resolves their outcomes.
	Gateway = core.Gateway

	// RunStore persists run history and the run lease.
	RunStore = core.RunStore

	// Columns names the contact-table headers holding phone and name.
	Columns = core.Columns

	// ContactRow is one data row of the contact table.
	ContactRow = core.ContactRow

	// PlacedCall is the gateway's answer to a call placement.
	PlacedCall = core.PlacedCall

	// CallOutcome is the flattened result of a finished call.
	CallOutcome = core.CallOutcome

	// Trigger identifies what started a run.
	Trigger = core.Trigger

	// RunStatus is the state of a persisted run.
	RunStatus = core.RunStatus

	// AttemptState is the lifecycle state of one call attempt.
	AttemptState = core.AttemptState

	// Run is the persisted history record of a batch run.
	Run = core.Run

	// Attempt is the persisted record of one call attempt.
	Attempt = core.Attempt

	// RunSummary is the structured result of one batch run.
	RunSummary = core.RunSummary

	// RowFailure describes one failed contact row.
	RowFailure = core.RowFailure

	// GatewayError is a transport failure or non-2xx gateway response.
	GatewayError = core.GatewayError

	// Runner executes batch runs.
	Runner = batch.Runner

	// RunnerOption configures a Runner.
	RunnerOption = batch.RunnerOption

	// RunnerConfig holds runner configuration.
	RunnerConfig = batch.RunnerConfig

	// GatewayClient is the Retell-compatible voice-agent client.
	GatewayClient = gateway.Client

	// GatewayOption configures a GatewayClient.
	GatewayOption = gateway.Option

	// CompletionPolicy decides how long to wait for a call to end.
	CompletionPolicy = gateway.CompletionPolicy

	// SheetsConfig identifies the three Google spreadsheets.
	SheetsConfig = ledger.SheetsConfig

	// SheetsProvider opens a Google Sheets ledger.
	SheetsProvider = ledger.SheetsProvider

	// SQLLedger stores the ledger in the run-history database.
	SQLLedger = ledger.SQL

	// MemoryLedger is an in-process ledger for tests and dry runs.
	MemoryLedger = ledger.Memory

	// Schedule defines when a run fires next.
	Schedule = schedule.Schedule

	// Scheduler fires a function on a Schedule.
	Scheduler = scheduler.Scheduler

	// GormStorage implements RunStore using GORM.
	GormStorage = storage.GormStorage
)

// Trigger constants
const (
	TriggerManual    = core.TriggerManual
	TriggerScheduled = core.TriggerScheduled
	TriggerCLI       = core.TriggerCLI
)

// Run status constants
const (
	RunRunning   = core.RunRunning
	RunCompleted = core.RunCompleted
	RunReset     = core.RunReset
	RunFailed    = core.RunFailed
	RunCancelled = core.RunCancelled
)

// Attempt state constants
const (
	AttemptCreated  = core.AttemptCreated
	AttemptAwaiting = core.AttemptAwaiting
	AttemptResolved = core.AttemptResolved
	AttemptRecorded = core.AttemptRecorded
	AttemptFailed   = core.AttemptFailed
)

// Defaults
const (
	DefaultBatchSize  = batch.DefaultBatchSize
	DefaultListLimit  = security.DefaultListLimit
	DefaultSheet      = ledger.DefaultSheet
	DefaultGatewayURL = gateway.DefaultBaseURL
)

// Error variables
var (
	ErrRunInProgress      = core.ErrRunInProgress
	ErrLeaseNotOwned      = core.ErrLeaseNotOwned
	ErrMalformedOutcome   = core.ErrMalformedOutcome
	ErrCallNotFinished    = core.ErrCallNotFinished
	ErrInvalidCursor      = core.ErrInvalidCursor
	ErrInvalidPhoneNumber = core.ErrInvalidPhoneNumber
)

// NewRunner creates a batch runner over a ledger and a gateway.
func NewRunner(provider LedgerProvider, gw Gateway, opts ...RunnerOption) *Runner {
	return batch.NewRunner(provider, gw, opts...)
}

// Window computes the rows [start, end) a run processes.
func Window(cursor, total, size int) (start, end int, reset bool) {
	return batch.Window(cursor, total, size)
}

// WithRunID fixes the id of the run started with ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	return batch.WithRunID(ctx, id)
}

// NewGateway creates a voice-agent client.
func NewGateway(opts ...GatewayOption) (*GatewayClient, error) {
	return gateway.New(opts...)
}

// NewSheetsProvider creates a Google Sheets ledger provider.
func NewSheetsProvider(cfg SheetsConfig, opts ...option.ClientOption) *SheetsProvider {
	return ledger.NewSheetsProvider(cfg, opts...)
}

// NewSQLLedger creates a SQL ledger for the named sheet.
func NewSQLLedger(db *gorm.DB, sheet string) *SQLLedger {
	return ledger.NewSQL(db, sheet)
}

// NewMemoryLedger creates an in-memory ledger holding contacts.
func NewMemoryLedger(contacts [][]string) *MemoryLedger {
	return ledger.NewMemory(contacts)
}

// OpenDatabase opens a SQLite path or PostgreSQL URL.
func OpenDatabase(dsn string) (*gorm.DB, error) {
	return storage.Open(dsn)
}

// NewGormStorage creates a new GORM-backed run store.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// Runner option functions

// WithBatchSize sets the number of contacts per run.
func WithBatchSize(n int) RunnerOption {
	return batch.WithBatchSize(n)
}

// WithColumns sets the phone and name header names.
func WithColumns(cols Columns) RunnerOption {
	return batch.WithColumns(cols)
}

// WithRunStore enables run history and the cross-process run lease.
func WithRunStore(s RunStore) RunnerOption {
	return batch.WithRunStore(s)
}

// Gateway option functions

// WithAPIKey sets the gateway API key.
func WithAPIKey(key string) GatewayOption {
	return gateway.WithAPIKey(key)
}

// WithFromNumber sets the caller-ID number.
func WithFromNumber(n string) GatewayOption {
	return gateway.WithFromNumber(n)
}

// WithAgentID sets the voice agent placed calls use.
func WithAgentID(id string) GatewayOption {
	return gateway.WithAgentID(id)
}

// WithCompletionPolicy sets how the gateway waits for a call to end.
func WithCompletionPolicy(p CompletionPolicy) GatewayOption {
	return gateway.WithCompletionPolicy(p)
}

// DefaultCompletionPolicy polls until the call ends.
func DefaultCompletionPolicy() CompletionPolicy {
	return gateway.DefaultCompletionPolicy()
}

// FixedCompletionPolicy waits d once, then fetches the outcome.
func FixedCompletionPolicy(d time.Duration) CompletionPolicy {
	return gateway.FixedCompletionPolicy(d)
}

// Schedule functions

// Daily creates a schedule that fires at a UTC wall-clock time each day.
func Daily(hour, minute int) Schedule {
	return schedule.Daily(hour, minute)
}

// ParseCron parses a five-field cron expression. A leading "CRON_TZ=<zone>"
// pins it to a timezone.
func ParseCron(expr string) (Schedule, error) {
	return schedule.ParseCron(expr)
}

// NewScheduler fires fn on every tick of sched.
func NewScheduler(name string, sched Schedule, fn func(context.Context) error) *Scheduler {
	return scheduler.New(name, sched, fn)
}

// Helpers

// ValidatePhoneNumber checks that phone is plausibly dialable.
func ValidatePhoneNumber(phone string) error {
	return security.ValidatePhoneNumber(phone)
}

// MaskPhone hides all but the last four digits of a phone number.
func MaskPhone(phone string) string {
	return security.MaskPhone(phone)
}
