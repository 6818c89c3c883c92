package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/callops/batch-dialer/pkg/core"
)

// LedgerRow is one row of a stored contact table. Position 0 is the header.
type LedgerRow struct {
	ID       uint     `gorm:"primaryKey"`
	Sheet    string   `gorm:"size:100;not null;uniqueIndex:idx_ledger_rows_sheet_position"`
	Position int      `gorm:"not null;uniqueIndex:idx_ledger_rows_sheet_position"`
	Cells    []string `gorm:"type:text;serializer:json"`
}

// LedgerCursor is a named integer cursor.
type LedgerCursor struct {
	Name      string `gorm:"primaryKey;size:100"`
	Value     int
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// CallResult is one appended call outcome.
type CallResult struct {
	ID               uint   `gorm:"primaryKey"`
	Sheet            string `gorm:"size:100;index"`
	CallID           string `gorm:"size:255;index"`
	DisplayName      string `gorm:"size:255"`
	RecordingURL     string `gorm:"type:text"`
	DisconnectReason string `gorm:"size:255"`
	DurationSeconds  float64
	Transcript       string    `gorm:"type:text"`
	Summary          string    `gorm:"type:text"`
	Classification   string    `gorm:"type:text"`
	Email            string    `gorm:"size:255"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index"`
}

// Outcome converts the stored result back to a CallOutcome.
func (r *CallResult) Outcome() *core.CallOutcome {
	return &core.CallOutcome{
		CallID:           r.CallID,
		DisplayName:      r.DisplayName,
		RecordingURL:     r.RecordingURL,
		DisconnectReason: r.DisconnectReason,
		DurationSeconds:  r.DurationSeconds,
		Transcript:       r.Transcript,
		Summary:          r.Summary,
		Classification:   r.Classification,
		Email:            r.Email,
	}
}

// DefaultSheet names the contact, cursor and result sets when none is configured.
const DefaultSheet = "default"

// SQL is a ledger stored in relational tables through GORM.
type SQL struct {
	db    *gorm.DB
	sheet string
}

// NewSQL creates a SQL ledger. Rows, cursor and results are scoped by
// sheet, so one database can hold several independent ledgers.
func NewSQL(db *gorm.DB, sheet string) *SQL {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &SQL{db: db, sheet: sheet}
}

// Sheet returns the ledger's scope name.
func (s *SQL) Sheet() string {
	return s.sheet
}

// Migrate creates the ledger tables.
func (s *SQL) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&LedgerRow{}, &LedgerCursor{}, &CallResult{})
}

// Open returns the ledger itself; the database handle is already connected.
func (s *SQL) Open(ctx context.Context) (core.Ledger, error) {
	if err := s.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("ledger: database unavailable: %w", err)
	}
	return s, nil
}

// Cursor reads the stored cursor. A ledger without a cursor reads as 0.
func (s *SQL) Cursor(ctx context.Context) (int, error) {
	var c LedgerCursor
	err := s.db.WithContext(ctx).First(&c, "name = ?", s.sheet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: read cursor: %w", err)
	}
	return c.Value, nil
}

// SetCursor overwrites the stored cursor.
func (s *SQL) SetCursor(ctx context.Context, index int) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&LedgerCursor{Name: s.sheet, Value: index}).Error
	if err != nil {
		return fmt.Errorf("ledger: write cursor: %w", err)
	}
	return nil
}

// Contacts returns the header followed by every data row, in position order.
func (s *SQL) Contacts(ctx context.Context) ([][]string, error) {
	var rows []LedgerRow
	err := s.db.WithContext(ctx).
		Where("sheet = ?", s.sheet).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: read contacts: %w", err)
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := r.Cells
		if cells == nil {
			cells = []string{}
		}
		out = append(out, cells)
	}
	return out, nil
}

// AppendResult inserts one result row.
func (s *SQL) AppendResult(ctx context.Context, outcome *core.CallOutcome) error {
	err := s.db.WithContext(ctx).Create(&CallResult{
		Sheet:            s.sheet,
		CallID:           outcome.CallID,
		DisplayName:      outcome.DisplayName,
		RecordingURL:     outcome.RecordingURL,
		DisconnectReason: outcome.DisconnectReason,
		DurationSeconds:  outcome.DurationSeconds,
		Transcript:       outcome.Transcript,
		Summary:          outcome.Summary,
		Classification:   outcome.Classification,
		Email:            outcome.Email,
	}).Error
	if err != nil {
		return fmt.Errorf("ledger: append result: %w", err)
	}
	return nil
}

// Results returns appended results in insertion order.
// A limit of 0 or less returns every result.
func (s *SQL) Results(ctx context.Context, limit int) ([]CallResult, error) {
	var results []CallResult
	q := s.db.WithContext(ctx).Where("sheet = ?", s.sheet).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&results).Error
	return results, err
}

// ImportContacts replaces the contact table with header and rows.
// The cursor is left untouched.
func (s *SQL) ImportContacts(ctx context.Context, header []string, rows [][]string) error {
	if len(header) == 0 {
		return errors.New("ledger: import requires a header row")
	}

	records := make([]LedgerRow, 0, len(rows)+1)
	records = append(records, LedgerRow{Sheet: s.sheet, Position: 0, Cells: header})
	for i, r := range rows {
		records = append(records, LedgerRow{Sheet: s.sheet, Position: i + 1, Cells: r})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sheet = ?", s.sheet).Delete(&LedgerRow{}).Error; err != nil {
			return fmt.Errorf("ledger: clear contacts: %w", err)
		}
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return fmt.Errorf("ledger: import contacts: %w", err)
		}
		return nil
	})
}

// Compile-time checks
var (
	_ core.Ledger         = (*SQL)(nil)
	_ core.LedgerProvider = (*SQL)(nil)
)
