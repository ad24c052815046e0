// internal/model/outbound_call.go
package model

import (
    "encoding/json"
    "time"
)

// CallStatus is the execution state of a single outbound call attempt.
type CallStatus string

const (
    CallPending    CallStatus = "PENDING"
    CallScheduled  CallStatus = "SCHEDULED"
    CallInProgress CallStatus = "IN_PROGRESS"
    CallCompleted  CallStatus = "COMPLETED"
    CallFailed     CallStatus = "FAILED"
    CallCancelled  CallStatus = "CANCELLED"
)

func (s CallStatus) String() string { return string(s) }

func (s CallStatus) IsValid() bool {
    switch s {
    case CallPending, CallScheduled, CallInProgress, CallCompleted, CallFailed, CallCancelled:
        return true
    }
    return false
}

func (s CallStatus) IsTerminal() bool {
    return s == CallCompleted || s == CallFailed || s == CallCancelled
}

// AllCallStatuses lists every status, used to zero-fill aggregations.
var AllCallStatuses = []CallStatus{
    CallPending, CallScheduled, CallInProgress, CallCompleted, CallFailed, CallCancelled,
}

// OutboundCall is the execution ledger row for one call attempt. The
// ElevenLabs call id is set at most once, at submission-response time, and
// never overwritten. Variables holds the exact payload sent for the call.
type OutboundCall struct {
    ID               int             `db:"id" json:"id"`
    BatchID          int             `db:"batch_id" json:"batch_id"`
    ContactID        int             `db:"contact_id" json:"contact_id"`
    PhoneNumber      string          `db:"phone_number" json:"phone_number"`
    CallStatus       CallStatus      `db:"call_status" json:"call_status"`
    ElevenLabsCallID *string         `db:"elevenlabs_call_id" json:"elevenlabs_call_id,omitempty"`
    RetryCount       int             `db:"retry_count" json:"retry_count"`
    Result           string          `db:"result" json:"result,omitempty"`
    DurationSecs     int             `db:"duration_secs" json:"duration_secs"`
    Variables        json.RawMessage `db:"variables" json:"variables,omitempty"`
    CreatedAt        time.Time       `db:"created_at" json:"created_at"`
    UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
