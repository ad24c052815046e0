// internal/service/reconciler.go
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "strings"

    "github.com/ralborta/nutryhome-backend/internal/model"
    "github.com/ralborta/nutryhome-backend/internal/repository"
)

// Reconciler folds webhook pushes and polling results back into the local
// call ledger.
type Reconciler struct {
    BatchRepo      repository.BatchRepositoryInterface
    CallRepo       repository.OutboundCallRepositoryInterface
    ContactRepo    repository.ContactRepositoryInterface
    TranscriptRepo repository.TranscriptRepositoryInterface
    Client         VoiceAPI
}

// WebhookPayload is the inbound post-call event pushed by ElevenLabs.
type WebhookPayload struct {
    ConversationID string          `json:"conversation_id"`
    Type           string          `json:"type"`
    Transcript     json.RawMessage `json:"transcript"`
    Summary        string          `json:"summary"`
    Analysis       struct {
        TranscriptSummary string `json:"transcript_summary"`
    } `json:"analysis"`
    ConversationInitiationClientData struct {
        DynamicVariables map[string]string `json:"dynamic_variables"`
    } `json:"conversation_initiation_client_data"`
    Metadata struct {
        CallDurationSecs int `json:"call_duration_secs"`
    } `json:"metadata"`
}

// IngestWebhook upserts the transcript record keyed by conversation id, so
// the same payload delivered twice overwrites instead of duplicating. When
// the event is a post-call transcription and the conversation maps to a
// local call, that call is marked COMPLETED in the background; the caller
// gets its success response as soon as the transcript is persisted.
func (r *Reconciler) IngestWebhook(ctx context.Context, p *WebhookPayload) error {
    if p.ConversationID == "" {
        return fmt.Errorf("webhook payload missing conversation_id")
    }

    call, err := r.CallRepo.GetByExternalID(p.ConversationID)
    if err != nil {
        return err
    }

    summary := p.Summary
    if summary == "" {
        summary = p.Analysis.TranscriptSummary
    }

    dynVars, _ := json.Marshal(p.ConversationInitiationClientData.DynamicVariables)
    t := &model.CallTranscript{
        ConversationID:   p.ConversationID,
        EventType:        p.Type,
        Transcript:       p.Transcript,
        Summary:          summary,
        DynamicVariables: dynVars,
        DurationSecs:     p.Metadata.CallDurationSecs,
    }
    if call != nil {
        t.OutboundCallID = &call.ID
    }
    if err := r.TranscriptRepo.Upsert(t); err != nil {
        return err
    }

    if call != nil && p.Type == "post_call_transcription" && !call.CallStatus.IsTerminal() {
        go r.completeFromWebhook(call, summary, p.Metadata.CallDurationSecs)
    }

    return nil
}

// completeFromWebhook runs after the webhook response has been sent, so
// failures here are logged rather than returned.
func (r *Reconciler) completeFromWebhook(call *model.OutboundCall, summary string, durationSecs int) {
    defer func() {
        if rec := recover(); rec != nil {
            log.Printf("⚠️ panic completing call %d from webhook: %v", call.ID, rec)
        }
    }()

    if err := r.CallRepo.UpdateReconciled(call.ID, model.CallCompleted, summary, durationSecs); err != nil {
        log.Printf("⚠️ failed to complete call %d from webhook: %v", call.ID, err)
        return
    }
    if cErr := r.ContactRepo.UpdateCallOutcome(call.ContactID, model.CallCompleted.String(), summary, durationSecs); cErr != nil {
        log.Printf("⚠️ failed to update contact %d outcome: %v", call.ContactID, cErr)
    }
}

// ReconcileCall polls the voice API for one call and updates the local row.
// Terminal external statuses map one-to-one to local terminal statuses;
// non-terminal ones only refresh the duration. API failures are surfaced,
// never papered over with fabricated results.
func (r *Reconciler) ReconcileCall(ctx context.Context, callID int) error {
    call, err := r.CallRepo.GetByID(callID)
    if err != nil {
        return err
    }
    if call.ElevenLabsCallID == nil {
        log.Printf("call %d has no external id, nothing to reconcile", call.ID)
        return nil
    }
    if call.CallStatus.IsTerminal() {
        return nil
    }

    conv, err := r.Client.GetConversation(ctx, *call.ElevenLabsCallID)
    if err != nil {
        return err
    }

    status, terminal := mapConversationStatus(conv.Status)
    duration := conv.Metadata.CallDurationSecs
    if !terminal {
        if duration > 0 && duration != call.DurationSecs {
            return r.CallRepo.RefreshDuration(call.ID, duration)
        }
        return nil
    }

    summary := conv.Analysis.TranscriptSummary
    if err := r.CallRepo.UpdateReconciled(call.ID, status, summary, duration); err != nil {
        return err
    }
    if cErr := r.ContactRepo.UpdateCallOutcome(call.ContactID, status.String(), summary, duration); cErr != nil {
        log.Printf("⚠️ failed to update contact %d outcome: %v", call.ContactID, cErr)
    }
    return nil
}

// ReconcileBatch polls every non-terminal call of a batch, then rolls the
// counters up and closes the batch once nothing is left in flight.
func (r *Reconciler) ReconcileBatch(ctx context.Context, batchID int) (int, error) {
    batch, err := r.BatchRepo.GetByID(batchID)
    if err != nil {
        return 0, err
    }

    calls, err := r.CallRepo.ListNonTerminalByBatch(batchID)
    if err != nil {
        return 0, err
    }

    reconciled := 0
    for _, c := range calls {
        if err := r.ReconcileCall(ctx, c.ID); err != nil {
            log.Printf("⚠️ reconcile of call %d failed: %v", c.ID, err)
            continue
        }
        reconciled++
    }

    stats, err := r.CallRepo.StatsByBatch(batchID)
    if err != nil {
        return reconciled, err
    }
    completed := stats[model.CallCompleted.String()]
    failed := stats[model.CallFailed.String()]
    if err := r.BatchRepo.UpdateCounters(batchID, completed, failed); err != nil {
        return reconciled, err
    }

    inFlight := stats[model.CallPending.String()] +
        stats[model.CallScheduled.String()] +
        stats[model.CallInProgress.String()]
    if batch.Status == model.BatchProcessing && inFlight == 0 && stats["total"] > 0 {
        final := model.BatchCompleted
        if failed == stats["total"] {
            final = model.BatchFailed
        }
        if err := r.BatchRepo.UpdateStatus(batchID, final); err != nil {
            return reconciled, err
        }
    }

    return reconciled, nil
}

func mapConversationStatus(external string) (model.CallStatus, bool) {
    switch strings.ToLower(external) {
    case "done", "completed":
        return model.CallCompleted, true
    case "failed":
        return model.CallFailed, true
    case "cancelled", "canceled":
        return model.CallCancelled, true
    default:
        // queued, initiated, in-progress, processing
        return model.CallInProgress, false
    }
}
