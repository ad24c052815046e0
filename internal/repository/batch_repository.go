package repository

import (
    "database/sql"
    "time"

    appErrors "github.com/ralborta/nutryhome-backend/internal/errors"
    "github.com/ralborta/nutryhome-backend/internal/model"
)

type BatchRepositoryInterface interface {
    Create(b *model.Batch) error
    GetByID(id int) (*model.Batch, error)
    UpdateStatus(batchID int, status model.BatchStatus) error
    ClaimForProcessing(batchID int) (bool, error)
    SetExternalBatchID(batchID int, externalID string) error
    MarkFailed(batchID int, lastError string) error
    UpdateCounters(batchID, completed, failed int) error
    ResetToPending(batchID int) error
}

type BatchRepository struct {
    DB *sql.DB
}

func (r *BatchRepository) Create(b *model.Batch) error {
    b.CreatedAt = time.Now()
    if b.Status == "" {
        b.Status = model.BatchPending
    }
    query := `
        INSERT INTO batches (campaign_id, name, status, total_calls, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
    return r.DB.QueryRow(query, b.CampaignID, b.Name, b.Status, b.TotalCalls, b.CreatedAt).Scan(&b.ID)
}

func (r *BatchRepository) GetByID(id int) (*model.Batch, error) {
    query := `
        SELECT id, campaign_id, name, status, total_calls, completed_calls, failed_calls,
               elevenlabs_batch_id, last_error, created_at, updated_at
        FROM batches WHERE id=$1
    `
    var b model.Batch
    err := r.DB.QueryRow(query, id).Scan(
        &b.ID, &b.CampaignID, &b.Name, &b.Status, &b.TotalCalls, &b.CompletedCalls,
        &b.FailedCalls, &b.ElevenLabsBatchID, &b.LastError, &b.CreatedAt, &b.UpdatedAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewBatchNotFound(id)
        }
        return nil, err
    }
    return &b, nil
}

func (r *BatchRepository) UpdateStatus(batchID int, status model.BatchStatus) error {
    query := `UPDATE batches SET status=$1, updated_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, status, batchID)
    return err
}

// ClaimForProcessing transitions PENDING to PROCESSING atomically. A second
// concurrent submit observes zero affected rows and rejects itself, so the
// PENDING check cannot race between read and write.
func (r *BatchRepository) ClaimForProcessing(batchID int) (bool, error) {
    query := `UPDATE batches SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
    res, err := r.DB.Exec(query, model.BatchProcessing, batchID, model.BatchPending)
    if err != nil {
        return false, err
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return affected == 1, nil
}

func (r *BatchRepository) SetExternalBatchID(batchID int, externalID string) error {
    query := `UPDATE batches SET elevenlabs_batch_id=$1, updated_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, externalID, batchID)
    return err
}

func (r *BatchRepository) MarkFailed(batchID int, lastError string) error {
    query := `UPDATE batches SET status=$1, last_error=$2, updated_at=NOW() WHERE id=$3`
    _, err := r.DB.Exec(query, model.BatchFailed, lastError, batchID)
    return err
}

func (r *BatchRepository) UpdateCounters(batchID, completed, failed int) error {
    query := `UPDATE batches SET completed_calls=$1, failed_calls=$2, updated_at=NOW() WHERE id=$3`
    _, err := r.DB.Exec(query, completed, failed, batchID)
    return err
}

// ResetToPending is the explicit administrative reset out of a terminal
// status. The conditional guard keeps PROCESSING batches untouched.
func (r *BatchRepository) ResetToPending(batchID int) error {
    query := `
        UPDATE batches
        SET status=$1, elevenlabs_batch_id=NULL, last_error='', updated_at=NOW()
        WHERE id=$2 AND status IN ($3, $4, $5)
    `
    res, err := r.DB.Exec(query, model.BatchPending, batchID,
        model.BatchCompleted, model.BatchFailed, model.BatchCancelled)
    if err != nil {
        return err
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        return appErrors.NewInvalidBatchState(batchID, "non-terminal", "COMPLETED, FAILED or CANCELLED")
    }
    return nil
}

var _ BatchRepositoryInterface = (*BatchRepository)(nil)
