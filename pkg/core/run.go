package core

import (
	"fmt"
	"time"
)

// Trigger identifies what started a run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerCLI       Trigger = "cli"
)

// RunStatus represents the current state of a batch run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunReset     RunStatus = "reset"     // Cursor was exhausted and wrapped to 0
	RunFailed    RunStatus = "failed"    // Setup or cursor persistence failed
	RunCancelled RunStatus = "cancelled" // Context cancelled mid-batch
)

// AttemptState is the lifecycle state of one Call Attempt.
type AttemptState string

const (
	AttemptCreated  AttemptState = "created"  // Gateway accepted the call
	AttemptAwaiting AttemptState = "awaiting" // Waiting for the call to complete
	AttemptResolved AttemptState = "resolved" // Outcome fetched
	AttemptRecorded AttemptState = "recorded" // Outcome appended to the results ledger
	AttemptFailed   AttemptState = "failed"
)

// Run is the persisted history record of one batch run.
type Run struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Trigger      Trigger    `gorm:"index;size:20" json:"trigger"`
	Status       RunStatus  `gorm:"index;size:20;default:'running'" json:"status"`
	Owner        string     `gorm:"size:255" json:"owner"`
	StartIndex   int        `json:"start_index"`
	EndIndex     int        `json:"end_index"`
	ContactCount int        `json:"contact_count"`
	Attempted    int        `json:"attempted"`
	Succeeded    int        `json:"succeeded"`
	Failed       int        `json:"failed"`
	Skipped      int        `json:"skipped"`
	LastError    string     `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt    time.Time  `gorm:"index" json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"-"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"-"`

	Attempts []Attempt `gorm:"foreignKey:RunID" json:"attempts,omitempty"`
}

// Attempt is the persisted record of one Call Attempt within a run.
type Attempt struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	RunID       string       `gorm:"index;size:36;not null" json:"run_id"`
	RowIndex    int          `gorm:"not null" json:"row_index"`
	ContactName string       `gorm:"size:255" json:"contact_name"`
	Phone       string       `gorm:"size:32" json:"phone"` // masked
	CallID      string       `gorm:"index;size:255" json:"call_id,omitempty"`
	State       AttemptState `gorm:"index;size:20" json:"state"`
	LastError   string       `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// RunLease is the persisted single-flight flag guarding batch runs across processes.
type RunLease struct {
	Name            string     `gorm:"primaryKey;size:255"`
	Owner           string     `gorm:"size:255"`
	LockedUntil     *time.Time `gorm:"index"`
	LastHeartbeatAt *time.Time
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// RowFailure describes one contact whose call-and-record sequence failed.
type RowFailure struct {
	Row   int    `json:"row"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// RunSummary is the structured result of one batch run.
type RunSummary struct {
	RunID      string       `json:"run_id"`
	Trigger    Trigger      `json:"trigger"`
	Start      int          `json:"start"`
	End        int          `json:"end"`
	Total      int          `json:"total"`
	Reset      bool         `json:"reset"`
	Cancelled  bool         `json:"cancelled,omitempty"`
	Attempted  int          `json:"attempted"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Failures   []RowFailure `json:"failures,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Message returns the human-readable status reported to trigger callers.
func (s *RunSummary) Message() string {
	if s.Reset {
		return "Workflow finished, index reset."
	}
	return fmt.Sprintf("Workflow batch completed. Processed %d records.", s.Attempted)
}
