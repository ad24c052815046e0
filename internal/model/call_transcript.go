// internal/model/call_transcript.go
package model

import (
    "encoding/json"
    "time"
)

// CallTranscript stores the webhook/polled payload for one conversation,
// upserted by the unique ElevenLabs conversation id.
type CallTranscript struct {
    ID               int             `db:"id" json:"id"`
    ConversationID   string          `db:"conversation_id" json:"conversation_id"`
    OutboundCallID   *int            `db:"outbound_call_id" json:"outbound_call_id,omitempty"`
    EventType        string          `db:"event_type" json:"event_type"`
    Transcript       json.RawMessage `db:"transcript" json:"transcript,omitempty"`
    Summary          string          `db:"summary" json:"summary,omitempty"`
    DynamicVariables json.RawMessage `db:"dynamic_variables" json:"dynamic_variables,omitempty"`
    DurationSecs     int             `db:"duration_secs" json:"duration_secs"`
    ReceivedAt       time.Time       `db:"received_at" json:"received_at"`
}
