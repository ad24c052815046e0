// internal/errors/errors.go
package appErrors

import (
    "fmt"
    "strings"
)

// ErrBatchNotFound is a sentinel error
type ErrBatchNotFound struct {
    BatchID int
}

func (e *ErrBatchNotFound) Error() string {
    return fmt.Sprintf("batch with ID %d not found", e.BatchID)
}

// Helper constructor
func NewBatchNotFound(id int) error {
    return &ErrBatchNotFound{BatchID: id}
}

// ErrCampaignNotFound marks a missing campaign container.
type ErrCampaignNotFound struct {
    CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
    return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
    return &ErrCampaignNotFound{CampaignID: id}
}

// ErrCallNotFound marks a missing outbound call row.
type ErrCallNotFound struct {
    CallID int
}

func (e *ErrCallNotFound) Error() string {
    return fmt.Sprintf("outbound call with ID %d not found", e.CallID)
}

func NewCallNotFound(id int) error {
    return &ErrCallNotFound{CallID: id}
}

// ErrInvalidBatchState marks an operation attempted against a batch whose
// status does not allow it.
type ErrInvalidBatchState struct {
    BatchID int
    Status  string
    Want    string
}

func (e *ErrInvalidBatchState) Error() string {
    return fmt.Sprintf("batch %d is %s, operation requires %s", e.BatchID, e.Status, e.Want)
}

func NewInvalidBatchState(id int, status, want string) error {
    return &ErrInvalidBatchState{BatchID: id, Status: status, Want: want}
}

// ErrEmptyBatch marks a submission attempt with no contacts to call.
type ErrEmptyBatch struct {
    BatchID int
}

func (e *ErrEmptyBatch) Error() string {
    return fmt.Sprintf("batch %d has no contacts to call", e.BatchID)
}

func NewEmptyBatch(id int) error {
    return &ErrEmptyBatch{BatchID: id}
}

// ErrMissingConfig lists every missing required configuration value, not
// just the first one.
type ErrMissingConfig struct {
    Missing []string
}

func (e *ErrMissingConfig) Error() string {
    return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

func NewMissingConfig(missing []string) error {
    return &ErrMissingConfig{Missing: missing}
}

// ErrPreflight marks a failed permission/resource probe against the voice
// API before a batch submission.
type ErrPreflight struct {
    Resource string
    Cause    error
}

func (e *ErrPreflight) Error() string {
    return fmt.Sprintf("preflight check failed for %s: %v", e.Resource, e.Cause)
}

func (e *ErrPreflight) Unwrap() error { return e.Cause }

func NewPreflight(resource string, cause error) error {
    return &ErrPreflight{Resource: resource, Cause: cause}
}

// ErrExternalAPI carries the non-success response of the voice API for
// diagnostics.
type ErrExternalAPI struct {
    StatusCode int
    Body       string
}

func (e *ErrExternalAPI) Error() string {
    return fmt.Sprintf("external API returned %d: %s", e.StatusCode, e.Body)
}

func NewExternalAPI(statusCode int, body string) error {
    return &ErrExternalAPI{StatusCode: statusCode, Body: body}
}
