package domain

import "time"

// Lead is the archived outcome of one completed intake conversation.
type Lead struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Profile         Profile   `json:"profile"`
	Summary         string    `json:"summary"`
	SummaryFallback bool      `json:"summary_fallback"`
	SinkRecordID    string    `json:"sink_record_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
