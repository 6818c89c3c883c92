package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/ledger"
)

// fakeGateway records dialed numbers and returns synthetic outcomes.
type fakeGateway struct {
	mu      sync.Mutex
	dialed  []string
	names   map[string]string
	failOn  map[string]error // phone -> PlaceCall error
	onPlace func(phone string)
	panicOn string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{names: make(map[string]string), failOn: make(map[string]error)}
}

func (g *fakeGateway) PlaceCall(_ context.Context, phone, name string) (*core.PlacedCall, error) {
	g.mu.Lock()
	g.dialed = append(g.dialed, phone)
	hook := g.onPlace
	err := g.failOn[phone]
	g.names["call_"+phone] = name
	g.mu.Unlock()

	if hook != nil {
		hook(phone)
	}
	if phone == g.panicOn {
		panic("gateway exploded")
	}
	if err != nil {
		return nil, err
	}
	return &core.PlacedCall{CallID: "call_" + phone, Status: "registered"}, nil
}

func (g *fakeGateway) AwaitOutcome(ctx context.Context, callID string) (*core.CallOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return &core.CallOutcome{
		CallID:          callID,
		DisplayName:     g.names[callID],
		DurationSeconds: 30,
		Summary:         "ok",
	}, nil
}

func (g *fakeGateway) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.dialed...)
}

func phone(i int) string {
	return fmt.Sprintf("+1555000%04d", i)
}

// contactTable builds a header plus n contact rows.
func contactTable(n int) [][]string {
	rows := [][]string{{" phone Number ", "nurse Name", "ward"}}
	for i := 0; i < n; i++ {
		rows = append(rows, []string{phone(i), fmt.Sprintf("Nurse %d", i), "A"})
	}
	return rows
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(l *ledger.Memory, gw core.Gateway, opts ...RunnerOption) *Runner {
	return NewRunner(l, gw, append([]RunnerOption{WithLogger(quietLogger())}, opts...)...)
}

// ──────────────────────────────────────────────────────────────────────────────
// Window scenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_FirstBatch(t *testing.T) {
	l := ledger.NewMemory(contactTable(25))
	gw := newFakeGateway()

	summary, err := newTestRunner(l, gw).Run(context.Background(), core.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Start)
	assert.Equal(t, 19, summary.End)
	assert.Equal(t, 25, summary.Total)
	assert.Equal(t, 19, summary.Attempted)
	assert.Equal(t, 19, summary.Succeeded)
	assert.False(t, summary.Reset)
	assert.Equal(t, "Workflow batch completed. Processed 19 records.", summary.Message())

	assert.Equal(t, "19", l.CursorCell())
	assert.Len(t, gw.calls(), 19)
	assert.Equal(t, phone(0), gw.calls()[0])
	assert.Len(t, l.Results(), 19)
}

func TestRun_TailBatch(t *testing.T) {
	l := ledger.NewMemory(contactTable(25))
	l.SetCursorCell("19")
	gw := newFakeGateway()

	summary, err := newTestRunner(l, gw).Run(context.Background(), core.TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, 19, summary.Start)
	assert.Equal(t, 25, summary.End)
	assert.Equal(t, 6, summary.Attempted)
	assert.Equal(t, "25", l.CursorCell())
	assert.Equal(t, []string{phone(19), phone(20), phone(21), phone(22), phone(23), phone(24)}, gw.calls())
}

func TestRun_ExhaustedResetsCursor(t *testing.T) {
	for _, cell := range []string{"25", "99"} {
		t.Run(cell, func(t *testing.T) {
			l := ledger.NewMemory(contactTable(25))
			gw := newFakeGateway()
			r := newTestRunner(l, gw)

			// Idempotent: both runs reset and dial nobody.
			for i := 0; i < 2; i++ {
				l.SetCursorCell(cell)
				summary, err := r.Run(context.Background(), core.TriggerManual)
				require.NoError(t, err)
				assert.True(t, summary.Reset)
				assert.Equal(t, 0, summary.Attempted)
				assert.Equal(t, "Workflow finished, index reset.", summary.Message())
				assert.Equal(t, "0", l.CursorCell())
			}
			assert.Empty(t, gw.calls())
			assert.Empty(t, l.Results())
		})
	}
}

func TestRun_EveryCursorAdvancesByWindow(t *testing.T) {
	const n = 25
	for c := 0; c < n; c++ {
		l := ledger.NewMemory(contactTable(n))
		l.SetCursorCell(fmt.Sprint(c))
		gw := newFakeGateway()

		summary, err := newTestRunner(l, gw).Run(context.Background(), core.TriggerCLI)
		require.NoError(t, err)

		want := min(DefaultBatchSize, n-c)
		assert.Equal(t, want, summary.Attempted, "cursor %d", c)
		assert.Len(t, gw.calls(), want, "cursor %d", c)
		assert.Equal(t, fmt.Sprint(c+want), l.CursorCell(), "cursor %d", c)
	}
}

func TestRun_EmptyTableResets(t *testing.T) {
	l := ledger.NewMemory(nil)
	summary, err := newTestRunner(l, newFakeGateway()).Run(context.Background(), core.TriggerManual)
	require.NoError(t, err)
	assert.True(t, summary.Reset)
	assert.Equal(t, "0", l.CursorCell())
}

func TestRun_CustomBatchSize(t *testing.T) {
	l := ledger.NewMemory(contactTable(10))
	gw := newFakeGateway()

	_, err := newTestRunner(l, gw, WithBatchSize(4)).Run(context.Background(), core.TriggerManual)
	require.NoError(t, err)
	assert.Len(t, gw.calls(), 4)
	assert.Equal(t, "4", l.CursorCell())
}

// ──────────────────────────────────────────────────────────────────────────────
// Row handling
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_SkipsRowsMissingFields(t *testing.T) {
	table := contactTable(4)
	table[2][1] = "   "    // row 1: phone present, name blank
	table[3] = []string{""} // row 2: short row, no phone or name
	l := ledger.NewMemory(table)
	gw := newFakeGateway()

	summary, err := newTestRunner(l, gw).Run(context.Background(), core.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, []string{phone(0), phone(3)}, gw.calls())
	assert.Equal(t, 4, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, "4", l.CursorCell())

	for _, res := range l.Results() {
		assert.NotEqual(t, "", res.DisplayName)
	}
}

func TestRun_GatewayFailureIsIsolated(t *testing.T) {
	l := ledger.NewMemory(contactTable(5))
	gw := newFakeGateway()
	gw.failOn[phone(1)] = &core.GatewayError{Op: "create-phone-call", StatusCode: 500}
	gw.panicOn = phone(3)

	summary, err := newTestRunner(l, gw).Run(context.Background(), core.TriggerManual)
	require.NoError(t, err)

	assert.Len(t, gw.calls(), 5, "every row is still dialed")
	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Failures, 2)
	assert.Equal(t, 1, summary.Failures[0].Row)
	assert.Equal(t, "Nurse 1", summary.Failures[0].Name)
	assert.Contains(t, summary.Failures[0].Error, "status 500")
	assert.Contains(t, summary.Failures[1].Error, "panic")
	assert.Equal(t, "5", l.CursorCell())
	assert.Len(t, l.Results(), 3)
}

func TestRun_AppendFailureIsIsolated(t *testing.T) {
	l := ledger.NewMemory(contactTable(3))
	l.FailAppendIf(func(o *core.CallOutcome) error {
		if o.DisplayName == "Nurse 0" {
			return errors.New("quota exceeded")
		}
		return nil
	})

	summary, err := newTestRunner(l, newFakeGateway()).Run(context.Background(), core.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Contains(t, summary.Failures[0].Error, "quota exceeded")
	assert.Equal(t, "3", l.CursorCell())
}

// ──────────────────────────────────────────────────────────────────────────────
// Setup failures
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_CursorReadFailureStartsAtZero(t *testing.T) {
	l := ledger.NewMemory(contactTable(25))
	l.FailWith(ledger.OpCursor, errors.New("sheet unavailable"))

	summary, err := newTestRunner(l, newFakeGateway()).Run(context.Background(), core.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Start)
	assert.Equal(t, 19, summary.End)
	assert.Equal(t, "19", l.CursorCell())
}

func TestRun_InvalidCursorStartsAtZero(t *testing.T) {
	l := ledger.NewMemory(contactTable(5))
	l.SetCursorCell("not a number")

	summary, err := newTestRunner(l, newFakeGateway()).Run(context.Background(), core.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Start)
	assert.Equal(t, "5", l.CursorCell())
}

func TestRun_ContactsFailureIsFatal(t *testing.T) {
	l := ledger.NewMemory(contactTable(5))
	l.SetCursorCell("2")
	l.FailWith(ledger.OpContacts, errors.New("permission denied"))
	gw := newFakeGateway()

	summary, err := newTestRunner(l, gw).Run(context.Background(), core.TriggerManual)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Empty(t, gw.calls())
	assert.Equal(t, "2", l.CursorCell())
	assert.Equal(t, 0, l.Stats().CursorWrites)
}

func TestRun_OpenFailureIsFatal(t *testing.T) {
	l := ledger.NewMemory(contactTable(5))
	l.FailWith(ledger.OpOpen, errors.New("invalid credentials"))

	_, err := newTestRunner(l, newFakeGateway()).Run(context.Background(), core.TriggerManual)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open ledger")
	assert.Equal(t, 0, l.Stats().CursorReads)
}

func TestRun_CursorWriteFailureIsReported(t *testing.T) {
	l := ledger.NewMemory(contactTable(5))
	l.FailWith(ledger.OpSetCursor, errors.New("write refused"))
	gw := newFakeGateway()

	_, err := newTestRunner(l, gw).Run(context.Background(), core.TriggerManual)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist cursor 5")
	assert.Len(t, gw.calls(), 5)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrency and cancellation
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_ConcurrentRunIsRejected(t *testing.T) {
	l := ledger.NewMemory(contactTable(3))
	gw := newFakeGateway()

	entered := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	gw.onPlace = func(string) {
		once.Do(func() { close(entered) })
		<-unblock
	}
	r := newTestRunner(l, gw)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), core.TriggerScheduled)
		done <- err
	}()

	<-entered
	summary, err := r.Run(context.Background(), core.TriggerManual)
	assert.ErrorIs(t, err, core.ErrRunInProgress)
	assert.Nil(t, summary)

	close(unblock)
	require.NoError(t, <-done)
	assert.Equal(t, "3", l.CursorCell())
	assert.Equal(t, []int{3}, l.CursorWrites(), "rejected run never touched the cursor")
}

func TestRun_CancelPersistsProgress(t *testing.T) {
	l := ledger.NewMemory(contactTable(10))
	l.SetCursorCell("2")
	gw := newFakeGateway()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw.onPlace = func(p string) {
		if p == phone(4) {
			cancel()
		}
	}

	summary, err := newTestRunner(l, gw).Run(ctx, core.TriggerManual)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.True(t, summary.Cancelled)

	// Rows 2 and 3 completed, row 4 was interrupted mid-call.
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "5", l.CursorCell())
	assert.Len(t, gw.calls(), 3)
}

func TestRun_SequentialRunsAfterCompletion(t *testing.T) {
	l := ledger.NewMemory(contactTable(25))
	r := newTestRunner(l, newFakeGateway())

	var cursors []string
	for i := 0; i < 3; i++ {
		_, err := r.Run(context.Background(), core.TriggerScheduled)
		require.NoError(t, err)
		cursors = append(cursors, l.CursorCell())
	}
	assert.Equal(t, []string{"19", "25", "0"}, cursors)
}

func TestRun_LeaseHeartbeatStops(t *testing.T) {
	// Heartbeat goroutines must not outlive the run; goleak in TestMain checks.
	store := newTestStore(t)
	l := ledger.NewMemory(contactTable(2))
	r := newTestRunner(l, newFakeGateway(), WithRunStore(store), WithHeartbeatInterval(time.Millisecond))

	_, err := r.Run(context.Background(), core.TriggerManual)
	require.NoError(t, err)
}

func TestRun_UsesRunIDFromContext(t *testing.T) {
	l := ledger.NewMemory(contactTable(1))
	ctx := WithRunID(context.Background(), "run-fixed")

	summary, err := newTestRunner(l, newFakeGateway()).Run(ctx, core.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", summary.RunID)
}
