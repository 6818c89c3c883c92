package core

import "strconv"

// PlacedCall is the gateway's acknowledgement of a create-call request.
type PlacedCall struct {
	CallID  string `json:"call_id"`
	Status  string `json:"call_status"`
	AgentID string `json:"agent_id"`
}

// CallOutcome is the flattened result of a completed call. It is written
// once to the results ledger and never mutated afterwards.
type CallOutcome struct {
	CallID           string  `json:"call_id"`
	DisplayName      string  `json:"display_name"`
	RecordingURL     string  `json:"recording_url"`
	DisconnectReason string  `json:"disconnect_reason"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Transcript       string  `json:"transcript"`
	Summary          string  `json:"summary"`
	Classification   string  `json:"classification"`
	Email            string  `json:"email"`
}

// ResultColumns is the fixed column order of the results table.
var ResultColumns = []string{
	"display name",
	"recording url",
	"disconnect reason",
	"duration seconds",
	"transcript",
	"summary",
	"classification",
	"email",
}

// Row renders the outcome in ResultColumns order.
func (o *CallOutcome) Row() []string {
	return []string{
		o.DisplayName,
		o.RecordingURL,
		o.DisconnectReason,
		FormatDuration(o.DurationSeconds),
		o.Transcript,
		o.Summary,
		o.Classification,
		o.Email,
	}
}

// FormatDuration renders seconds without trailing zeros ("42", "12.5").
func FormatDuration(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
