package repository

import (
    "database/sql"

    "github.com/ralborta/nutryhome-backend/internal/model"
)

type TranscriptRepositoryInterface interface {
    Upsert(t *model.CallTranscript) error
    GetByConversationID(conversationID string) (*model.CallTranscript, error)
}

type TranscriptRepository struct {
    DB *sql.DB
}

// Upsert writes the transcript keyed by the unique conversation id.
// Applying the same payload twice overwrites fields instead of creating a
// duplicate row, which is what makes webhook ingestion idempotent.
func (r *TranscriptRepository) Upsert(t *model.CallTranscript) error {
    query := `
        INSERT INTO call_transcripts
        (conversation_id, outbound_call_id, event_type, transcript, summary, dynamic_variables, duration_secs, received_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        ON CONFLICT (conversation_id) DO UPDATE
        SET outbound_call_id=EXCLUDED.outbound_call_id,
            event_type=EXCLUDED.event_type,
            transcript=EXCLUDED.transcript,
            summary=EXCLUDED.summary,
            dynamic_variables=EXCLUDED.dynamic_variables,
            duration_secs=EXCLUDED.duration_secs,
            received_at=NOW()
        RETURNING id, received_at
    `
    return r.DB.QueryRow(
        query,
        t.ConversationID,
        t.OutboundCallID,
        t.EventType,
        t.Transcript,
        t.Summary,
        t.DynamicVariables,
        t.DurationSecs,
    ).Scan(&t.ID, &t.ReceivedAt)
}

func (r *TranscriptRepository) GetByConversationID(conversationID string) (*model.CallTranscript, error) {
    query := `
        SELECT id, conversation_id, outbound_call_id, event_type, transcript, summary, dynamic_variables, duration_secs, received_at
        FROM call_transcripts
        WHERE conversation_id=$1
    `
    var t model.CallTranscript
    err := r.DB.QueryRow(query, conversationID).Scan(
        &t.ID, &t.ConversationID, &t.OutboundCallID, &t.EventType,
        &t.Transcript, &t.Summary, &t.DynamicVariables, &t.DurationSecs, &t.ReceivedAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return &t, nil
}

var _ TranscriptRepositoryInterface = (*TranscriptRepository)(nil)
