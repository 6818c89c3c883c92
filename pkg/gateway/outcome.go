package gateway

import (
	"fmt"

	"github.com/callops/batch-dialer/pkg/core"
)

// Call statuses after which the record no longer changes.
const (
	StatusEnded        = "ended"
	StatusError        = "error"
	StatusNotConnected = "not_connected"
)

type callCost struct {
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
}

type callAnalysis struct {
	CustomAnalysisData map[string]any `json:"custom_analysis_data"`
}

// callRecord is the subset of the get-call response the dialer reads.
type callRecord struct {
	CallID              string         `json:"call_id"`
	CallStatus          string         `json:"call_status"`
	DynamicVariables    map[string]any `json:"retell_llm_dynamic_variables"`
	RecordingURL        string         `json:"recording_url"`
	DisconnectionReason string         `json:"disconnection_reason"`
	Transcript          string         `json:"transcript"`
	CallCost            *callCost      `json:"call_cost"`
	CallAnalysis        *callAnalysis  `json:"call_analysis"`
}

// terminal reports whether the call has ended and been analysed.
func (r *callRecord) terminal() bool {
	switch r.CallStatus {
	case StatusEnded, StatusError, StatusNotConnected:
		return r.CallAnalysis != nil
	}
	return false
}

// extract flattens a call record. Cost, analysis and custom analysis data
// must be present; individual fields may be absent and read as "".
func (c *Client) extract(rec *callRecord) (*core.CallOutcome, error) {
	if rec.CallCost == nil {
		return nil, fmt.Errorf("%w: call %s has no call_cost", core.ErrMalformedOutcome, rec.CallID)
	}
	if rec.CallAnalysis == nil {
		return nil, fmt.Errorf("%w: call %s has no call_analysis", core.ErrMalformedOutcome, rec.CallID)
	}
	data := rec.CallAnalysis.CustomAnalysisData
	if data == nil {
		return nil, fmt.Errorf("%w: call %s has no custom_analysis_data", core.ErrMalformedOutcome, rec.CallID)
	}

	return &core.CallOutcome{
		CallID:           rec.CallID,
		DisplayName:      text(rec.DynamicVariables[c.nameVariable]),
		RecordingURL:     rec.RecordingURL,
		DisconnectReason: rec.DisconnectionReason,
		DurationSeconds:  rec.CallCost.TotalDurationSeconds,
		Transcript:       rec.Transcript,
		Summary:          text(data["summary"]),
		Classification:   text(data[c.classificationKey]),
		Email:            text(data["email"]),
	}, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
