// internal/service/batch_service.go
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/ralborta/nutryhome-backend/internal/config"
    "github.com/ralborta/nutryhome-backend/internal/elevenlabs"
    appErrors "github.com/ralborta/nutryhome-backend/internal/errors"
    "github.com/ralborta/nutryhome-backend/internal/model"
    "github.com/ralborta/nutryhome-backend/internal/phone"
    "github.com/ralborta/nutryhome-backend/internal/queue"
    "github.com/ralborta/nutryhome-backend/internal/repository"
    "github.com/ralborta/nutryhome-backend/internal/variables"
)

// ReconcileTopic is the queue topic carrying outbound call ids that need a
// status poll against the voice API.
const ReconcileTopic = "call_reconciliation"

// BatchService orchestrates the submission and cancellation of calling
// batches against the ElevenLabs batch-calling API.
type BatchService struct {
    BatchRepo    repository.BatchRepositoryInterface
    CampaignRepo repository.CampaignRepositoryInterface
    ContactRepo  repository.ContactRepositoryInterface
    CallRepo     repository.OutboundCallRepositoryInterface
    Client       VoiceAPI
    Validator    *ConfigValidator
    Queue        queue.Queue
    Config       *config.Config
    Phones       *phone.Normalizer
}

// SubmitResult is returned to the route layer immediately after the batch
// is claimed; the external submission continues in the background.
type SubmitResult struct {
    BatchID       int               `json:"batchId"`
    Status        model.BatchStatus `json:"status"`
    TotalContacts int               `json:"totalContacts"`
}

// CancelResult reports a local cancellation.
type CancelResult struct {
    BatchID        int               `json:"batchId"`
    Status         model.BatchStatus `json:"status"`
    CallsCancelled int               `json:"callsCancelled"`
}

// BatchStatusReport aggregates the ledger rows of one batch by status.
type BatchStatusReport struct {
    Batch *model.Batch   `json:"batch"`
    Calls map[string]int `json:"calls"`
}

// CreateResult reports a batch registration.
type CreateResult struct {
    Batch            *model.Batch `json:"batch"`
    ContactsInserted int          `json:"contactsInserted"`
}

// CreateBatch registers a PENDING batch and its contacts in one call.
// Phones are normalized at intake; contacts whose phone cannot be
// normalized are still stored (raw phone kept) and skipped later at
// submission time. Duplicate phones within the batch are dropped by the
// unique index.
func (s *BatchService) CreateBatch(ctx context.Context, campaignID int, name string, contacts []model.Contact) (*CreateResult, error) {
    campaign, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return nil, err
    }
    if campaign == nil {
        return nil, appErrors.NewCampaignNotFound(campaignID)
    }
    if len(contacts) == 0 {
        return nil, appErrors.NewEmptyBatch(0)
    }

    batch := &model.Batch{
        CampaignID: campaignID,
        Name:       name,
        Status:     model.BatchPending,
        TotalCalls: len(contacts),
    }
    if err := s.BatchRepo.Create(batch); err != nil {
        return nil, err
    }

    for i := range contacts {
        contacts[i].BatchID = batch.ID
        if contacts[i].NormalizedPhone == "" {
            contacts[i].NormalizedPhone = s.Phones.Normalize(contacts[i].Phone)
        }
    }

    inserted, err := s.ContactRepo.BulkCreate(contacts)
    if err != nil {
        return nil, err
    }
    log.Printf("✅ batch %d created with %d contacts", batch.ID, inserted)

    return &CreateResult{Batch: batch, ContactsInserted: inserted}, nil
}

// Submit validates config and batch state, claims the batch atomically and
// hands the external submission to a background goroutine. The caller gets
// the PROCESSING acknowledgement without waiting for the voice API.
func (s *BatchService) Submit(ctx context.Context, batchID int) (*SubmitResult, error) {
    if err := s.Validator.CheckStatic(); err != nil {
        return nil, err
    }

    batch, err := s.BatchRepo.GetByID(batchID)
    if err != nil {
        return nil, err
    }
    if batch.Status != model.BatchPending {
        return nil, appErrors.NewInvalidBatchState(batchID, batch.Status.String(), model.BatchPending.String())
    }

    contacts, err := s.ContactRepo.ListByBatch(batchID)
    if err != nil {
        return nil, err
    }
    if len(contacts) == 0 {
        return nil, appErrors.NewEmptyBatch(batchID)
    }

    if err := s.Validator.Preflight(ctx); err != nil {
        return nil, err
    }

    claimed, err := s.BatchRepo.ClaimForProcessing(batchID)
    if err != nil {
        return nil, err
    }
    if !claimed {
        // Someone else claimed it between our read and the conditional
        // update. Reject this attempt instead of double-submitting.
        return nil, appErrors.NewInvalidBatchState(batchID, model.BatchProcessing.String(), model.BatchPending.String())
    }

    go s.dispatch(context.Background(), batch, contacts)

    return &SubmitResult{
        BatchID:       batchID,
        Status:        model.BatchProcessing,
        TotalContacts: len(contacts),
    }, nil
}

type dispatchEntry struct {
    contact model.Contact
    phone   string
    vars    map[string]string
}

// dispatch runs after the batch has been claimed. Any failure here marks
// the batch FAILED best-effort so it never stays stuck in PROCESSING; the
// compensating write's own failure is logged, never propagated.
func (s *BatchService) dispatch(ctx context.Context, batch *model.Batch, contacts []model.Contact) {
    var err error
    defer func() {
        if r := recover(); r != nil {
            err = fmt.Errorf("panic during batch submission: %v", r)
        }
        if err != nil {
            log.Printf("⚠️ batch %d submission failed: %v", batch.ID, err)
            if mErr := s.BatchRepo.MarkFailed(batch.ID, err.Error()); mErr != nil {
                log.Printf("⚠️ could not mark batch %d as FAILED: %v", batch.ID, mErr)
            }
        }
    }()

    entries := make([]dispatchEntry, 0, len(contacts))
    recipients := make([]elevenlabs.BatchCallRecipient, 0, len(contacts))
    for i := range contacts {
        c := contacts[i]
        normalized := c.NormalizedPhone
        if normalized == "" {
            normalized = s.Phones.Normalize(c.Phone)
        }
        if normalized == "" {
            log.Printf("⚠️ contact %d has no dialable phone (%q), skipping", c.ID, c.Phone)
            continue
        }

        vars := variables.BuildContactVariables(&c)
        entries = append(entries, dispatchEntry{contact: c, phone: normalized, vars: vars})
        recipients = append(recipients, elevenlabs.BatchCallRecipient{
            PhoneNumber: normalized,
            ConversationInitiationClientData: elevenlabs.ConversationInitiationClientData{
                Type:             "conversation_initiation_client_data",
                DynamicVariables: vars,
            },
        })
    }
    if len(recipients) == 0 {
        err = fmt.Errorf("batch %d has no contacts with dialable phone numbers", batch.ID)
        return
    }

    req := &elevenlabs.BatchCallRequest{
        CallName:           fmt.Sprintf("%s-%s", batch.Name, uuid.NewString()[:8]),
        AgentID:            s.Config.ElevenLabsAgentID,
        AgentPhoneNumberID: s.Config.ElevenLabsPhoneNumberID,
        ScheduledTimeUnix:  time.Now().Unix(),
        Recipients:         recipients,
    }

    resp, submitErr := s.Client.SubmitBatchCalling(ctx, req)
    if submitErr != nil {
        err = submitErr
        return
    }

    callIDByPhone := make(map[string]string, len(resp.Calls))
    for _, c := range resp.Calls {
        callIDByPhone[c.PhoneNumber] = c.CallID
    }

    for _, e := range entries {
        snapshot, _ := json.Marshal(e.vars)
        call := &model.OutboundCall{
            BatchID:     batch.ID,
            ContactID:   e.contact.ID,
            PhoneNumber: e.phone,
            CallStatus:  model.CallPending,
            Variables:   snapshot,
        }
        if id, ok := callIDByPhone[e.phone]; ok {
            call.ElevenLabsCallID = &id
        } else {
            // Recipient missing from the response is non-fatal: the row is
            // created without an external id and cannot be reconciled.
            log.Printf("⚠️ no call id matched for %s in batch %d", e.phone, batch.ID)
        }

        if cErr := s.CallRepo.Create(call); cErr != nil {
            log.Printf("⚠️ failed to persist outbound call for contact %d: %v", e.contact.ID, cErr)
            continue
        }

        if call.ElevenLabsCallID != nil && s.Queue != nil {
            if qErr := s.Queue.Publish(ReconcileTopic, call.ID); qErr != nil {
                log.Printf("⚠️ failed to enqueue reconcile job for call %d: %v", call.ID, qErr)
            }
        }
    }

    if sErr := s.BatchRepo.SetExternalBatchID(batch.ID, resp.ExternalBatchID()); sErr != nil {
        err = sErr
        return
    }

    log.Printf("✅ batch %d submitted as %s with %d recipients", batch.ID, resp.ExternalBatchID(), len(recipients))
}

// Cancel stops a PROCESSING batch. The external cancel is best effort;
// local state is cancelled regardless. Calls already in progress or in a
// terminal status are left untouched.
func (s *BatchService) Cancel(ctx context.Context, batchID int) (*CancelResult, error) {
    batch, err := s.BatchRepo.GetByID(batchID)
    if err != nil {
        return nil, err
    }
    if batch.Status != model.BatchProcessing {
        return nil, appErrors.NewInvalidBatchState(batchID, batch.Status.String(), model.BatchProcessing.String())
    }

    if batch.ElevenLabsBatchID != nil {
        if cErr := s.Client.CancelBatch(ctx, *batch.ElevenLabsBatchID); cErr != nil {
            log.Printf("⚠️ external cancel of batch %s failed: %v", *batch.ElevenLabsBatchID, cErr)
        }
    }

    if err := s.BatchRepo.UpdateStatus(batchID, model.BatchCancelled); err != nil {
        return nil, err
    }

    cancelled, err := s.CallRepo.CancelPending(batchID)
    if err != nil {
        return nil, err
    }

    return &CancelResult{
        BatchID:        batchID,
        Status:         model.BatchCancelled,
        CallsCancelled: cancelled,
    }, nil
}

// Status is a pure read: the batch row plus call counts by status. No
// external call is made here.
func (s *BatchService) Status(ctx context.Context, batchID int) (*BatchStatusReport, error) {
    batch, err := s.BatchRepo.GetByID(batchID)
    if err != nil {
        return nil, err
    }
    stats, err := s.CallRepo.StatsByBatch(batchID)
    if err != nil {
        return nil, err
    }
    return &BatchStatusReport{Batch: batch, Calls: stats}, nil
}

// ResetToPending is the explicit administrative escape hatch back to
// PENDING from a terminal status.
func (s *BatchService) ResetToPending(ctx context.Context, batchID int) error {
    if _, err := s.BatchRepo.GetByID(batchID); err != nil {
        return err
    }
    return s.BatchRepo.ResetToPending(batchID)
}
