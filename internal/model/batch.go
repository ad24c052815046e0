// internal/model/batch.go
package model

import "time"

// BatchStatus is the lifecycle state of a calling batch.
type BatchStatus string

const (
    BatchPending    BatchStatus = "PENDING"
    BatchProcessing BatchStatus = "PROCESSING"
    BatchCompleted  BatchStatus = "COMPLETED"
    BatchFailed     BatchStatus = "FAILED"
    BatchCancelled  BatchStatus = "CANCELLED"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
    switch s {
    case BatchPending, BatchProcessing, BatchCompleted, BatchFailed, BatchCancelled:
        return true
    }
    return false
}

// IsTerminal reports whether no further transitions are expected.
func (s BatchStatus) IsTerminal() bool {
    return s == BatchCompleted || s == BatchFailed || s == BatchCancelled
}

// Batch groups contacts submitted together as one outbound-calling job.
type Batch struct {
    ID               int         `db:"id" json:"id"`
    CampaignID       int         `db:"campaign_id" json:"campaign_id"`
    Name             string      `db:"name" json:"name"`
    Status           BatchStatus `db:"status" json:"status"`
    TotalCalls       int         `db:"total_calls" json:"total_calls"`
    CompletedCalls   int         `db:"completed_calls" json:"completed_calls"`
    FailedCalls      int         `db:"failed_calls" json:"failed_calls"`
    ElevenLabsBatchID *string    `db:"elevenlabs_batch_id" json:"elevenlabs_batch_id,omitempty"`
    LastError        string      `db:"last_error" json:"last_error,omitempty"`
    CreatedAt        time.Time   `db:"created_at" json:"created_at"`
    UpdatedAt        *time.Time  `db:"updated_at" json:"updated_at,omitempty"`
}
