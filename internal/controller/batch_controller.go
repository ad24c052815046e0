// internal/controller/batch_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"

    appErrors "github.com/ralborta/nutryhome-backend/internal/errors"
    "github.com/ralborta/nutryhome-backend/internal/model"
    "github.com/ralborta/nutryhome-backend/internal/service"
)

type BatchController struct {
    BatchService *service.BatchService
    Reconciler   *service.Reconciler
}

// CreateBatch registers a new batch with its contact list.
func (c *BatchController) CreateBatch(w http.ResponseWriter, r *http.Request) {
    var body struct {
        CampaignID int             `json:"campaign_id"`
        Name       string          `json:"name"`
        Contacts   []model.Contact `json:"contacts"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        writeJSON(w, http.StatusBadRequest, map[string]any{
            "success": false,
            "error":   "invalid body: " + err.Error(),
        })
        return
    }
    if body.Name == "" {
        writeJSON(w, http.StatusBadRequest, map[string]any{
            "success": false,
            "error":   "name is required",
        })
        return
    }

    result, err := c.BatchService.CreateBatch(r.Context(), body.CampaignID, body.Name, body.Contacts)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusCreated, map[string]any{
        "success":          true,
        "batch":            result.Batch,
        "contactsInserted": result.ContactsInserted,
    })
}

// ExecuteBatch claims a PENDING batch and kicks off the external
// submission. The response returns as soon as the batch is PROCESSING; the
// client polls the status endpoint for completion.
func (c *BatchController) ExecuteBatch(w http.ResponseWriter, r *http.Request) {
    batchID, ok := batchIDParam(w, r)
    if !ok {
        return
    }

    result, err := c.BatchService.Submit(r.Context(), batchID)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]any{
        "success":       true,
        "batchId":       result.BatchID,
        "status":        result.Status,
        "totalContacts": result.TotalContacts,
    })
}

// GetBatchStatus returns the batch row plus call counts by status.
func (c *BatchController) GetBatchStatus(w http.ResponseWriter, r *http.Request) {
    batchID, ok := batchIDParam(w, r)
    if !ok {
        return
    }

    report, err := c.BatchService.Status(r.Context(), batchID)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]any{
        "success": true,
        "batch":   report.Batch,
        "calls":   report.Calls,
    })
}

// CancelBatch cancels a PROCESSING batch.
func (c *BatchController) CancelBatch(w http.ResponseWriter, r *http.Request) {
    batchID, ok := batchIDParam(w, r)
    if !ok {
        return
    }

    result, err := c.BatchService.Cancel(r.Context(), batchID)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]any{
        "success":        true,
        "batchId":        result.BatchID,
        "status":         result.Status,
        "callsCancelled": result.CallsCancelled,
    })
}

// ResetBatch is the administrative reset back to PENDING from a terminal
// status.
func (c *BatchController) ResetBatch(w http.ResponseWriter, r *http.Request) {
    batchID, ok := batchIDParam(w, r)
    if !ok {
        return
    }

    if err := c.BatchService.ResetToPending(r.Context(), batchID); err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]any{
        "success": true,
        "batchId": batchID,
        "status":  "PENDING",
    })
}

// ReconcileBatch polls the voice API for every in-flight call of a batch.
func (c *BatchController) ReconcileBatch(w http.ResponseWriter, r *http.Request) {
    batchID, ok := batchIDParam(w, r)
    if !ok {
        return
    }

    reconciled, err := c.Reconciler.ReconcileBatch(r.Context(), batchID)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]any{
        "success":    true,
        "batchId":    batchID,
        "reconciled": reconciled,
    })
}

func batchIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
    idStr := chi.URLParam(r, "id")
    id, err := strconv.Atoi(idStr)
    if err != nil {
        writeJSON(w, http.StatusBadRequest, map[string]any{
            "success": false,
            "error":   "invalid batch id",
        })
        return 0, false
    }
    return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(body)
}

// writeError maps the typed application errors onto HTTP status codes:
// 404 for missing resources, 400 for state problems, 502 for configuration
// and external-API failures, 500 otherwise.
func writeError(w http.ResponseWriter, err error) {
    status := http.StatusInternalServerError

    var batchNotFound *appErrors.ErrBatchNotFound
    var campaignNotFound *appErrors.ErrCampaignNotFound
    var callNotFound *appErrors.ErrCallNotFound
    var invalidState *appErrors.ErrInvalidBatchState
    var emptyBatch *appErrors.ErrEmptyBatch
    var missingConfig *appErrors.ErrMissingConfig
    var preflight *appErrors.ErrPreflight
    var external *appErrors.ErrExternalAPI

    switch {
    case errors.As(err, &batchNotFound), errors.As(err, &campaignNotFound), errors.As(err, &callNotFound):
        status = http.StatusNotFound
    case errors.As(err, &invalidState), errors.As(err, &emptyBatch):
        status = http.StatusBadRequest
    case errors.As(err, &missingConfig), errors.As(err, &preflight), errors.As(err, &external):
        status = http.StatusBadGateway
    }

    writeJSON(w, status, map[string]any{
        "success": false,
        "error":   err.Error(),
    })
}
