package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/callops/batch-dialer/pkg/batch"
	"github.com/callops/batch-dialer/pkg/config"
	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/gateway"
	"github.com/callops/batch-dialer/pkg/ledger"
	"github.com/callops/batch-dialer/pkg/retry"
	"github.com/callops/batch-dialer/pkg/storage"
)

// newLogger builds the slog logger described by cfg.
func newLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), nil
}

// openStore opens the database and migrates the run-history tables.
func openStore(ctx context.Context, cfg *config.Config) (*storage.GormStorage, error) {
	lifetime, idle := cfg.ConnLifetimes()
	db, err := storage.Open(cfg.Database.URL,
		storage.MaxOpenConns(cfg.Database.MaxOpenConns),
		storage.MaxIdleConns(cfg.Database.MaxIdleConns),
		storage.ConnMaxLifetime(lifetime),
		storage.ConnMaxIdleTime(idle),
	)
	if err != nil {
		return nil, err
	}
	store := storage.NewGormStorage(db)
	if err := store.Migrate(ctx); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate run history: %w", err)
	}
	return store, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newLedgerProvider returns the configured ledger backend. The SQL backend
// shares the run-history database and is migrated here.
func newLedgerProvider(ctx context.Context, cfg *config.Config, db *gorm.DB) (core.LedgerProvider, error) {
	if err := cfg.RequireLedger(); err != nil {
		return nil, err
	}
	switch cfg.Ledger.Backend {
	case config.LedgerSQL:
		l := ledger.NewSQL(db, cfg.Ledger.SQL.Sheet)
		if err := l.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate ledger: %w", err)
		}
		return l, nil
	default:
		s := cfg.Ledger.Sheets
		return ledger.NewSheetsProvider(ledger.SheetsConfig{
			ContactsSheetID: s.ContactsSheetID,
			CursorSheetID:   s.CursorSheetID,
			ResultsSheetID:  s.ResultsSheetID,
			CredentialsFile: s.CredentialsFile,
		}), nil
	}
}

// newGateway builds the voice-agent client.
func newGateway(cfg *config.Config, logger *slog.Logger) (*gateway.Client, error) {
	if err := cfg.RequireGateway(); err != nil {
		return nil, err
	}
	g := cfg.Gateway
	fixedWait, initialDelay, pollInterval, maxPollInterval, maxWait := cfg.Completion()

	policy := gateway.CompletionPolicy{
		Mode:         gateway.Mode(g.Completion.Mode),
		FixedWait:    fixedWait,
		InitialDelay: initialDelay,
		Backoff: retry.Config{
			InitialBackoff:    pollInterval,
			MaxBackoff:        maxPollInterval,
			BackoffMultiplier: 1.5,
			JitterFraction:    0.1,
		},
		MaxWait: maxWait,
	}

	return gateway.New(
		gateway.WithBaseURL(g.BaseURL),
		gateway.WithAPIKey(g.APIKey),
		gateway.WithFromNumber(g.FromNumber),
		gateway.WithAgentID(g.AgentID),
		gateway.WithNameVariable(g.NameVariable),
		gateway.WithClassificationKey(g.ClassificationKey),
		gateway.WithTimeout(cfg.GatewayTimeout()),
		gateway.WithCompletionPolicy(policy),
		gateway.WithLogger(logger),
	)
}

// services is everything a batch run needs.
type services struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.GormStorage
	runner *batch.Runner
}

func (s *services) Close() {
	closeDB(s.store.DB())
}

// newServices wires config into a ready runner.
func (a *app) newServices(ctx context.Context, w io.Writer) (*services, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Logging, w)
	if err != nil {
		return nil, err
	}
	gw, err := newGateway(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	provider, err := newLedgerProvider(ctx, cfg, store.DB())
	if err != nil {
		closeDB(store.DB())
		return nil, err
	}

	runner := batch.NewRunner(provider, gw,
		batch.WithRunStore(store),
		batch.WithColumns(core.Columns{Phone: cfg.Batch.PhoneColumn, Name: cfg.Batch.NameColumn}),
		batch.WithLogger(logger),
	)
	return &services{cfg: cfg, logger: logger, store: store, runner: runner}, nil
}
