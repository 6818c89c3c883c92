package core

import "context"

// CursorStore reads and writes the persisted cursor. Implementations do
// not cache: every call reflects the authoritative remote state.
type CursorStore interface {
	Cursor(ctx context.Context) (int, error)
	SetCursor(ctx context.Context, index int) error
}

// ContactSource reads the full contact table. Element 0 is the header row.
type ContactSource interface {
	Contacts(ctx context.Context) ([][]string, error)
}

// ResultSink appends call outcomes to the append-only results table.
type ResultSink interface {
	AppendResult(ctx context.Context, outcome *CallOutcome) error
}

// Ledger is the external tabular store used by a batch run. The three
// resources are independent: there is no atomicity across them.
type Ledger interface {
	CursorStore
	ContactSource
	ResultSink
}

// LedgerProvider acquires an authenticated Ledger handle. A run opens
// exactly one handle and reuses it for every ledger call.
type LedgerProvider interface {
	Open(ctx context.Context) (Ledger, error)
}

// Gateway places calls through the voice-agent service and resolves
// their outcomes.
type Gateway interface {
	PlaceCall(ctx context.Context, phoneNumber, displayName string) (*PlacedCall, error)
	// AwaitOutcome blocks until the call has plausibly ended and returns
	// its outcome.
	AwaitOutcome(ctx context.Context, callID string) (*CallOutcome, error)
}
