package repository

import (
    "database/sql"
    "time"

    appErrors "github.com/ralborta/nutryhome-backend/internal/errors"
    "github.com/ralborta/nutryhome-backend/internal/model"
)

type OutboundCallRepositoryInterface interface {
    Create(call *model.OutboundCall) error
    GetByID(id int) (*model.OutboundCall, error)
    GetByExternalID(conversationID string) (*model.OutboundCall, error)
    ListNonTerminalByBatch(batchID int) ([]*model.OutboundCall, error)
    UpdateReconciled(id int, status model.CallStatus, result string, durationSecs int) error
    RefreshDuration(id, durationSecs int) error
    CancelPending(batchID int) (int, error)
    StatsByBatch(batchID int) (map[string]int, error)
}

type OutboundCallRepository struct {
    DB *sql.DB
}

const outboundCallColumns = `id, batch_id, contact_id, phone_number, call_status,
        elevenlabs_call_id, retry_count, result, duration_secs, variables, created_at, updated_at`

// Create inserts the ledger row for one submitted call. The external call
// id is written here once and never overwritten afterwards.
func (r *OutboundCallRepository) Create(call *model.OutboundCall) error {
    now := time.Now()
    call.CreatedAt = now
    call.UpdatedAt = now
    if call.CallStatus == "" {
        call.CallStatus = model.CallPending
    }

    query := `
        INSERT INTO outbound_calls
        (batch_id, contact_id, phone_number, call_status, elevenlabs_call_id, retry_count, variables, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
    return r.DB.QueryRow(
        query,
        call.BatchID,
        call.ContactID,
        call.PhoneNumber,
        call.CallStatus,
        call.ElevenLabsCallID,
        call.RetryCount,
        call.Variables,
        call.CreatedAt,
        call.UpdatedAt,
    ).Scan(&call.ID)
}

func (r *OutboundCallRepository) GetByID(id int) (*model.OutboundCall, error) {
    query := `SELECT ` + outboundCallColumns + ` FROM outbound_calls WHERE id=$1`
    call, err := r.scanOne(r.DB.QueryRow(query, id))
    if err == sql.ErrNoRows {
        return nil, appErrors.NewCallNotFound(id)
    }
    return call, err
}

// GetByExternalID returns nil, nil when no row carries the conversation id.
func (r *OutboundCallRepository) GetByExternalID(conversationID string) (*model.OutboundCall, error) {
    query := `SELECT ` + outboundCallColumns + ` FROM outbound_calls WHERE elevenlabs_call_id=$1`
    call, err := r.scanOne(r.DB.QueryRow(query, conversationID))
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return call, err
}

func (r *OutboundCallRepository) ListNonTerminalByBatch(batchID int) ([]*model.OutboundCall, error) {
    query := `
        SELECT ` + outboundCallColumns + `
        FROM outbound_calls
        WHERE batch_id=$1 AND call_status IN ($2, $3, $4)
        ORDER BY id
    `
    rows, err := r.DB.Query(query, batchID, model.CallPending, model.CallScheduled, model.CallInProgress)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    calls := []*model.OutboundCall{}
    for rows.Next() {
        var c model.OutboundCall
        if err := rows.Scan(
            &c.ID, &c.BatchID, &c.ContactID, &c.PhoneNumber, &c.CallStatus,
            &c.ElevenLabsCallID, &c.RetryCount, &c.Result, &c.DurationSecs,
            &c.Variables, &c.CreatedAt, &c.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        calls = append(calls, &c)
    }
    return calls, rows.Err()
}

func (r *OutboundCallRepository) UpdateReconciled(id int, status model.CallStatus, result string, durationSecs int) error {
    query := `
        UPDATE outbound_calls
        SET call_status=$1, result=$2, duration_secs=$3, updated_at=NOW()
        WHERE id=$4
    `
    _, err := r.DB.Exec(query, status, result, durationSecs, id)
    return err
}

func (r *OutboundCallRepository) RefreshDuration(id, durationSecs int) error {
    query := `UPDATE outbound_calls SET duration_secs=$1, updated_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, durationSecs, id)
    return err
}

// CancelPending cancels every row still waiting to be dialled. Rows already
// IN_PROGRESS or terminal are left untouched.
func (r *OutboundCallRepository) CancelPending(batchID int) (int, error) {
    query := `
        UPDATE outbound_calls
        SET call_status=$1, updated_at=NOW()
        WHERE batch_id=$2 AND call_status IN ($3, $4)
    `
    res, err := r.DB.Exec(query, model.CallCancelled, batchID, model.CallPending, model.CallScheduled)
    if err != nil {
        return 0, err
    }
    affected, err := res.RowsAffected()
    return int(affected), err
}

// StatsByBatch aggregates rows by call status, zero-filling every status so
// the response shape is stable.
func (r *OutboundCallRepository) StatsByBatch(batchID int) (map[string]int, error) {
    query := `SELECT call_status, COUNT(*) FROM outbound_calls WHERE batch_id=$1 GROUP BY call_status`
    rows, err := r.DB.Query(query, batchID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    stats := map[string]int{"total": 0}
    for _, s := range model.AllCallStatuses {
        stats[s.String()] = 0
    }
    for rows.Next() {
        var status string
        var count int
        if err := rows.Scan(&status, &count); err != nil {
            return nil, err
        }
        stats[status] = count
        stats["total"] += count
    }
    return stats, rows.Err()
}

func (r *OutboundCallRepository) scanOne(row *sql.Row) (*model.OutboundCall, error) {
    var c model.OutboundCall
    err := row.Scan(
        &c.ID, &c.BatchID, &c.ContactID, &c.PhoneNumber, &c.CallStatus,
        &c.ElevenLabsCallID, &c.RetryCount, &c.Result, &c.DurationSecs,
        &c.Variables, &c.CreatedAt, &c.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &c, nil
}

var _ OutboundCallRepositoryInterface = (*OutboundCallRepository)(nil)
