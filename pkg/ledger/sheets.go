package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/callops/batch-dialer/pkg/core"
)

// Reference ranges used by the spreadsheet layout.
const (
	DefaultContactsRange = "Sheet1"
	DefaultCursorRange   = "Sheet1!A2"
	DefaultResultsRange  = "Sheet1"
)

// SheetsConfig identifies the three spreadsheets backing a Sheets ledger.
type SheetsConfig struct {
	ContactsSheetID string
	CursorSheetID   string
	ResultsSheetID  string

	ContactsRange string
	CursorRange   string
	ResultsRange  string

	// CredentialsFile is a service-account JSON key. When empty,
	// application-default credentials are used.
	CredentialsFile string
}

func (c SheetsConfig) withDefaults() SheetsConfig {
	if c.ContactsRange == "" {
		c.ContactsRange = DefaultContactsRange
	}
	if c.CursorRange == "" {
		c.CursorRange = DefaultCursorRange
	}
	if c.ResultsRange == "" {
		c.ResultsRange = DefaultResultsRange
	}
	return c
}

// Validate checks that all spreadsheet identifiers are present.
func (c SheetsConfig) Validate() error {
	var errs []error
	if c.ContactsSheetID == "" {
		errs = append(errs, errors.New("contacts sheet id is required"))
	}
	if c.CursorSheetID == "" {
		errs = append(errs, errors.New("cursor sheet id is required"))
	}
	if c.ResultsSheetID == "" {
		errs = append(errs, errors.New("results sheet id is required"))
	}
	return errors.Join(errs...)
}

// SheetsProvider authenticates against the Sheets API once per Open.
type SheetsProvider struct {
	cfg  SheetsConfig
	opts []option.ClientOption
}

// NewSheetsProvider creates a provider. Extra client options are appended
// after the credential options, so tests can point the client at a fake
// endpoint.
func NewSheetsProvider(cfg SheetsConfig, opts ...option.ClientOption) *SheetsProvider {
	return &SheetsProvider{cfg: cfg.withDefaults(), opts: opts}
}

// Open builds an authenticated Sheets service and returns a ledger bound to it.
func (p *SheetsProvider) Open(ctx context.Context) (core.Ledger, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ledger: sheets config: %w", err)
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if p.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(p.cfg.CredentialsFile))
	}
	opts = append(opts, p.opts...)

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ledger: sheets auth: %w", err)
	}
	return NewSheets(srv, p.cfg), nil
}

// Sheets is a ledger stored in Google spreadsheets.
type Sheets struct {
	values *sheets.SpreadsheetsValuesService
	cfg    SheetsConfig
}

// NewSheets wraps an authenticated service.
func NewSheets(srv *sheets.Service, cfg SheetsConfig) *Sheets {
	return &Sheets{values: srv.Spreadsheets.Values, cfg: cfg.withDefaults()}
}

// Cursor reads the cursor cell. A missing or blank cell reads as 0.
func (s *Sheets) Cursor(ctx context.Context) (int, error) {
	resp, err := s.values.Get(s.cfg.CursorSheetID, s.cfg.CursorRange).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("ledger: read cursor: %w", err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return 0, nil
	}
	return ParseCursor(cellString(resp.Values[0][0]))
}

// SetCursor overwrites the cursor cell with the raw integer.
func (s *Sheets) SetCursor(ctx context.Context, index int) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{{index}}}
	_, err := s.values.Update(s.cfg.CursorSheetID, s.cfg.CursorRange, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("ledger: write cursor: %w", err)
	}
	return nil
}

// Contacts reads the whole contact sheet. The first row is the header.
func (s *Sheets) Contacts(ctx context.Context) ([][]string, error) {
	resp, err := s.values.Get(s.cfg.ContactsSheetID, s.cfg.ContactsRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("ledger: read contacts: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, r := range resp.Values {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = cellString(c)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// AppendResult appends one outcome row, letting the sheet parse numbers.
func (s *Sheets) AppendResult(ctx context.Context, outcome *core.CallOutcome) error {
	row := outcome.Row()
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{cells}}
	_, err := s.values.Append(s.cfg.ResultsSheetID, s.cfg.ResultsRange, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("ledger: append result: %w", err)
	}
	return nil
}

// cellString renders a decoded cell. Numbers are written out in full so a
// phone number stored as a number keeps every digit.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Compile-time checks
var (
	_ core.Ledger         = (*Sheets)(nil)
	_ core.LedgerProvider = (*SheetsProvider)(nil)
)
