// Package storage provides run-history and run-lease persistence for the dialer.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/security"
)

// GormStorage implements core.RunStore using GORM.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying database handle.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.Run{}, &core.Attempt{}, &core.RunLease{})
}

// CreateRun records the start of a batch run.
func (s *GormStorage) CreateRun(ctx context.Context, run *core.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = core.RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(run).Error
}

// FinishRun stores the final counters and status of a run.
// Error messages are sanitized before storage.
func (s *GormStorage) FinishRun(ctx context.Context, run *core.Run) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	run.LastError = security.SanitizeErrorMessage(run.LastError)

	return s.db.WithContext(ctx).
		Model(&core.Run{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":        run.Status,
			"start_index":   run.StartIndex,
			"end_index":     run.EndIndex,
			"contact_count": run.ContactCount,
			"attempted":     run.Attempted,
			"succeeded":     run.Succeeded,
			"failed":        run.Failed,
			"skipped":       run.Skipped,
			"last_error":    run.LastError,
			"finished_at":   finished,
		}).Error
}

// SaveAttempt inserts or updates a Call Attempt record.
func (s *GormStorage) SaveAttempt(ctx context.Context, attempt *core.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	attempt.ContactName = security.SanitizeContactName(attempt.ContactName)
	attempt.LastError = security.SanitizeErrorMessage(attempt.LastError)
	return s.db.WithContext(ctx).Save(attempt).Error
}

// GetRun retrieves a run with its attempts. Returns nil, nil when the run does not exist.
func (s *GormStorage) GetRun(ctx context.Context, runID string) (*core.Run, error) {
	var run core.Run
	err := s.db.WithContext(ctx).
		Preload("Attempts", func(db *gorm.DB) *gorm.DB {
			return db.Order("row_index ASC, created_at ASC")
		}).
		First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *GormStorage) ListRuns(ctx context.Context, limit int) ([]*core.Run, error) {
	var runs []*core.Run
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(security.ClampListLimit(limit)).
		Find(&runs).Error
	return runs, err
}

// AcquireLease takes the named run lease for owner until ttl elapses.
// An unexpired lease held by another owner yields core.ErrRunInProgress.
func (s *GormStorage) AcquireLease(ctx context.Context, name, owner string, ttl time.Duration) error {
	now := time.Now()
	lockUntil := now.Add(ttl)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&core.RunLease{
			Name:            name,
			Owner:           owner,
			LockedUntil:     &lockUntil,
			LastHeartbeatAt: &now,
		})
		if created.Error != nil {
			return created.Error
		}
		if created.RowsAffected == 1 {
			return nil
		}

		result := tx.
			Model(&core.RunLease{}).
			Where("name = ?", name).
			Where("(owner = ? OR owner = '' OR locked_until IS NULL OR locked_until < ?)", owner, now).
			Updates(map[string]any{
				"owner":             owner,
				"locked_until":      lockUntil,
				"last_heartbeat_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return core.ErrRunInProgress
		}
		return nil
	})
}

// RenewLease extends a lease held by owner.
func (s *GormStorage) RenewLease(ctx context.Context, name, owner string, ttl time.Duration) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&core.RunLease{}).
		Where("name = ? AND owner = ?", name, owner).
		Updates(map[string]any{
			"locked_until":      now.Add(ttl),
			"last_heartbeat_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrLeaseNotOwned
	}
	return nil
}

// ReleaseLease clears a lease held by owner.
func (s *GormStorage) ReleaseLease(ctx context.Context, name, owner string) error {
	result := s.db.WithContext(ctx).
		Model(&core.RunLease{}).
		Where("name = ? AND owner = ?", name, owner).
		Updates(map[string]any{
			"owner":        "",
			"locked_until": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrLeaseNotOwned
	}
	return nil
}

// Compile-time check
var _ core.RunStore = (*GormStorage)(nil)
