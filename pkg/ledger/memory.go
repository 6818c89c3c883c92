package ledger

import (
	"context"
	"strconv"
	"sync"

	"github.com/callops/batch-dialer/pkg/core"
)

// Op names a ledger operation for error injection.
type Op string

const (
	OpOpen      Op = "open"
	OpCursor    Op = "cursor"
	OpSetCursor Op = "set_cursor"
	OpContacts  Op = "contacts"
	OpAppend    Op = "append"
)

// MemoryStats counts calls made against a Memory ledger.
type MemoryStats struct {
	Opens        int
	CursorReads  int
	CursorWrites int
	ContactReads int
	Appends      int
}

// Memory is an in-process ledger. It is safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	contacts   [][]string
	cursorCell string
	results    []*core.CallOutcome
	cursorLog  []int
	failures   map[Op]error
	appendHook func(*core.CallOutcome) error
	stats      MemoryStats
}

// NewMemory creates a ledger holding contacts (header first) and a blank cursor.
func NewMemory(contacts [][]string) *Memory {
	return &Memory{
		contacts: cloneRows(contacts),
		failures: make(map[Op]error),
	}
}

// Open returns the ledger itself.
func (m *Memory) Open(_ context.Context) (core.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Opens++
	if err := m.failures[OpOpen]; err != nil {
		return nil, err
	}
	return m, nil
}

// Cursor parses the stored cursor cell.
func (m *Memory) Cursor(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CursorReads++
	if err := m.failures[OpCursor]; err != nil {
		return 0, err
	}
	return ParseCursor(m.cursorCell)
}

// SetCursor stores index in the cursor cell.
func (m *Memory) SetCursor(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CursorWrites++
	if err := m.failures[OpSetCursor]; err != nil {
		return err
	}
	m.cursorCell = strconv.Itoa(index)
	m.cursorLog = append(m.cursorLog, index)
	return nil
}

// Contacts returns a copy of the contact table.
func (m *Memory) Contacts(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.ContactReads++
	if err := m.failures[OpContacts]; err != nil {
		return nil, err
	}
	return cloneRows(m.contacts), nil
}

// AppendResult records outcome unless an injected failure applies.
func (m *Memory) AppendResult(ctx context.Context, outcome *core.CallOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Appends++
	if err := m.failures[OpAppend]; err != nil {
		return err
	}
	if m.appendHook != nil {
		if err := m.appendHook(outcome); err != nil {
			return err
		}
	}
	cp := *outcome
	m.results = append(m.results, &cp)
	return nil
}

// FailWith makes every later call of op return err. A nil err clears it.
func (m *Memory) FailWith(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// FailAppendIf rejects appends for which fn returns an error.
func (m *Memory) FailAppendIf(fn func(*core.CallOutcome) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendHook = fn
}

// SetCursorCell stores a raw cursor cell, which may be non-numeric.
func (m *Memory) SetCursorCell(cell string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorCell = cell
}

// CursorCell returns the raw cursor cell.
func (m *Memory) CursorCell() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursorCell
}

// CursorWrites returns every value written through SetCursor, in order.
func (m *Memory) CursorWrites() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.cursorLog...)
}

// Results returns the appended outcomes in order.
func (m *Memory) Results() []*core.CallOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.CallOutcome(nil), m.results...)
}

// Stats returns call counters.
func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Compile-time checks
var (
	_ core.Ledger         = (*Memory)(nil)
	_ core.LedgerProvider = (*Memory)(nil)
)
