package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ralborta/nutryhome-backend/internal/config"
	"github.com/ralborta/nutryhome-backend/internal/controller"
	"github.com/ralborta/nutryhome-backend/internal/elevenlabs"
	appErrors "github.com/ralborta/nutryhome-backend/internal/errors"
	"github.com/ralborta/nutryhome-backend/internal/model"
	"github.com/ralborta/nutryhome-backend/internal/phone"
	"github.com/ralborta/nutryhome-backend/internal/service"
)

// --- Mocks ---

type stubBatchRepo struct {
	mu       sync.Mutex
	batch    *model.Batch
	done     chan struct{}
	doneOnce sync.Once
}

func newStubBatchRepo(b *model.Batch) *stubBatchRepo {
	return &stubBatchRepo{batch: b, done: make(chan struct{})}
}

func (m *stubBatchRepo) Create(b *model.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = 1
	}
	copied := *b
	m.batch = &copied
	return nil
}

func (m *stubBatchRepo) GetByID(id int) (*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batch == nil || m.batch.ID != id {
		return nil, appErrors.NewBatchNotFound(id)
	}
	copied := *m.batch
	return &copied, nil
}

func (m *stubBatchRepo) UpdateStatus(batchID int, status model.BatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batch.Status = status
	return nil
}

func (m *stubBatchRepo) ClaimForProcessing(batchID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batch.Status != model.BatchPending {
		return false, nil
	}
	m.batch.Status = model.BatchProcessing
	return true, nil
}

func (m *stubBatchRepo) SetExternalBatchID(batchID int, externalID string) error {
	m.mu.Lock()
	m.batch.ElevenLabsBatchID = &externalID
	m.mu.Unlock()
	m.doneOnce.Do(func() { close(m.done) })
	return nil
}

func (m *stubBatchRepo) MarkFailed(batchID int, lastError string) error {
	m.mu.Lock()
	m.batch.Status = model.BatchFailed
	m.batch.LastError = lastError
	m.mu.Unlock()
	m.doneOnce.Do(func() { close(m.done) })
	return nil
}

func (m *stubBatchRepo) UpdateCounters(batchID, completed, failed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batch.CompletedCalls = completed
	m.batch.FailedCalls = failed
	return nil
}

func (m *stubBatchRepo) ResetToPending(batchID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.batch.Status.IsTerminal() {
		return appErrors.NewInvalidBatchState(batchID, m.batch.Status.String(), "terminal")
	}
	m.batch.Status = model.BatchPending
	m.batch.ElevenLabsBatchID = nil
	m.batch.LastError = ""
	return nil
}

func (m *stubBatchRepo) waitDispatch(t *testing.T) {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async dispatch")
	}
}

type stubCampaignRepo struct {
	campaigns map[int]*model.Campaign
}

func (m *stubCampaignRepo) Create(c *model.Campaign) error { return nil }

func (m *stubCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

type stubContactRepo struct {
	contacts []model.Contact
}

func (m *stubContactRepo) ListByBatch(batchID int) ([]model.Contact, error) {
	out := []model.Contact{}
	for _, c := range m.contacts {
		if c.BatchID == batchID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *stubContactRepo) BulkCreate(contacts []model.Contact) (int, error) {
	m.contacts = append(m.contacts, contacts...)
	return len(contacts), nil
}

func (m *stubContactRepo) UpdateCallOutcome(contactID int, status, result string, durationSecs int) error {
	return nil
}

type stubCallRepo struct {
	mu     sync.Mutex
	calls  []*model.OutboundCall
	nextID int
}

func (m *stubCallRepo) Create(call *model.OutboundCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	call.ID = m.nextID
	copied := *call
	m.calls = append(m.calls, &copied)
	return nil
}

func (m *stubCallRepo) GetByID(id int) (*model.OutboundCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, appErrors.NewCallNotFound(id)
}

func (m *stubCallRepo) GetByExternalID(conversationID string) (*model.OutboundCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.ElevenLabsCallID != nil && *c.ElevenLabsCallID == conversationID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *stubCallRepo) ListNonTerminalByBatch(batchID int) ([]*model.OutboundCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.OutboundCall{}
	for _, c := range m.calls {
		if c.BatchID == batchID && !c.CallStatus.IsTerminal() {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *stubCallRepo) UpdateReconciled(id int, status model.CallStatus, result string, durationSecs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.ID == id {
			c.CallStatus = status
			c.Result = result
			c.DurationSecs = durationSecs
			return nil
		}
	}
	return appErrors.NewCallNotFound(id)
}

func (m *stubCallRepo) RefreshDuration(id, durationSecs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.ID == id {
			c.DurationSecs = durationSecs
			return nil
		}
	}
	return appErrors.NewCallNotFound(id)
}

func (m *stubCallRepo) CancelPending(batchID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancelled := 0
	for _, c := range m.calls {
		if c.BatchID == batchID && (c.CallStatus == model.CallPending || c.CallStatus == model.CallScheduled) {
			c.CallStatus = model.CallCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

func (m *stubCallRepo) StatsByBatch(batchID int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{"total": 0}
	for _, s := range model.AllCallStatuses {
		stats[s.String()] = 0
	}
	for _, c := range m.calls {
		if c.BatchID == batchID {
			stats[c.CallStatus.String()]++
			stats["total"]++
		}
	}
	return stats, nil
}

type stubTranscriptRepo struct {
	mu     sync.Mutex
	byConv map[string]*model.CallTranscript
}

func (m *stubTranscriptRepo) Upsert(t *model.CallTranscript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byConv == nil {
		m.byConv = map[string]*model.CallTranscript{}
	}
	if existing, ok := m.byConv[t.ConversationID]; ok {
		t.ID = existing.ID
	} else {
		t.ID = len(m.byConv) + 1
	}
	copied := *t
	m.byConv[t.ConversationID] = &copied
	return nil
}

func (m *stubTranscriptRepo) GetByConversationID(conversationID string) (*model.CallTranscript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byConv[conversationID]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

type stubVoiceAPI struct {
	submitResp *elevenlabs.BatchCallResponse
}

func (f *stubVoiceAPI) GetSettings(ctx context.Context) (*elevenlabs.Settings, error) {
	return &elevenlabs.Settings{CanUseConvAI: true}, nil
}

func (f *stubVoiceAPI) GetAgent(ctx context.Context, agentID string) (*elevenlabs.Agent, error) {
	return &elevenlabs.Agent{AgentID: agentID}, nil
}

func (f *stubVoiceAPI) GetPhoneNumber(ctx context.Context, phoneNumberID string) (*elevenlabs.PhoneNumber, error) {
	return &elevenlabs.PhoneNumber{PhoneNumberID: phoneNumberID}, nil
}

func (f *stubVoiceAPI) SubmitBatchCalling(ctx context.Context, req *elevenlabs.BatchCallRequest) (*elevenlabs.BatchCallResponse, error) {
	return f.submitResp, nil
}

func (f *stubVoiceAPI) CancelBatch(ctx context.Context, batchID string) error { return nil }

func (f *stubVoiceAPI) GetConversation(ctx context.Context, conversationID string) (*elevenlabs.Conversation, error) {
	return nil, appErrors.NewExternalAPI(404, "conversation not found")
}

// --- Helpers ---

type fixture struct {
	batchRepo      *stubBatchRepo
	contactRepo    *stubContactRepo
	callRepo       *stubCallRepo
	transcriptRepo *stubTranscriptRepo
	router         *chi.Mux
}

func newFixture(batch *model.Batch) *fixture {
	cfg := &config.Config{
		ElevenLabsAPIKey:        "key",
		ElevenLabsAgentID:       "agent_1",
		ElevenLabsPhoneNumberID: "phone_1",
		ElevenLabsBaseURL:       "https://api.example.test",
	}
	f := &fixture{
		batchRepo:      newStubBatchRepo(batch),
		contactRepo:    &stubContactRepo{},
		callRepo:       &stubCallRepo{},
		transcriptRepo: &stubTranscriptRepo{},
	}

	api := &stubVoiceAPI{
		submitResp: &elevenlabs.BatchCallResponse{BatchID: "batch_ext_1"},
	}
	svc := &service.BatchService{
		BatchRepo: f.batchRepo,
		CampaignRepo: &stubCampaignRepo{campaigns: map[int]*model.Campaign{
			1: {ID: 1, Name: "NutryHome entregas"},
		}},
		ContactRepo: f.contactRepo,
		CallRepo:    f.callRepo,
		Client:      api,
		Validator:   &service.ConfigValidator{Config: cfg, Client: api},
		Config:      cfg,
		Phones:      phone.Argentina,
	}
	reconciler := &service.Reconciler{
		BatchRepo:      f.batchRepo,
		CallRepo:       f.callRepo,
		ContactRepo:    f.contactRepo,
		TranscriptRepo: f.transcriptRepo,
		Client:         api,
	}
	batchController := &controller.BatchController{BatchService: svc, Reconciler: reconciler}
	webhookController := &controller.WebhookController{Reconciler: reconciler}

	r := chi.NewRouter()
	r.Post("/batches", batchController.CreateBatch)
	r.Post("/batch/{id}/execute", batchController.ExecuteBatch)
	r.Get("/batch/{id}/status", batchController.GetBatchStatus)
	r.Post("/batch/{id}/cancel", batchController.CancelBatch)
	r.Post("/batch/{id}/reset", batchController.ResetBatch)
	r.Post("/batch/{id}/reconcile", batchController.ReconcileBatch)
	r.Post("/webhooks/elevenlabs", webhookController.ElevenLabsWebhook)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return rec, decoded
}

// --- Tests ---

func TestCreateBatchEndpoint(t *testing.T) {
	f := newFixture(nil)

	payload := `{
		"campaign_id": 1,
		"name": "Entregas CABA",
		"contacts": [
			{"phone": "011 3771-0010", "contact_name": "Maria Lopez"},
			{"phone": "0351 15 765-4321", "contact_name": "Carlos Diaz"}
		]
	}`
	rec, body := f.do(t, http.MethodPost, "/batches", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	if body["contactsInserted"] != float64(2) {
		t.Errorf("contactsInserted = %v, want 2", body["contactsInserted"])
	}
	if len(f.contactRepo.contacts) != 2 || f.contactRepo.contacts[0].NormalizedPhone != "+5491137710010" {
		t.Errorf("contacts not normalized at intake: %+v", f.contactRepo.contacts)
	}
}

func TestCreateBatchUnknownCampaign(t *testing.T) {
	f := newFixture(nil)

	payload := `{"campaign_id": 99, "name": "Entregas", "contacts": [{"phone": "01137710010"}]}`
	rec, _ := f.do(t, http.MethodPost, "/batches", payload)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateBatchRequiresName(t *testing.T) {
	f := newFixture(nil)

	payload := `{"campaign_id": 1, "contacts": [{"phone": "01137710010"}]}`
	rec, _ := f.do(t, http.MethodPost, "/batches", payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExecuteBatchReturnsProcessing(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, CampaignID: 1, Name: "Entregas CABA", Status: model.BatchPending})
	f.contactRepo.contacts = []model.Contact{
		{ID: 10, BatchID: 1, Phone: "01137710010", NormalizedPhone: "+5491137710010", ContactName: "Maria Lopez"},
	}

	rec, body := f.do(t, http.MethodPost, "/batch/1/execute", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["batchId"] != float64(1) {
		t.Errorf("batchId = %v, want 1", body["batchId"])
	}
	if body["status"] != model.BatchProcessing.String() {
		t.Errorf("status = %v, want PROCESSING", body["status"])
	}
	if body["totalContacts"] != float64(1) {
		t.Errorf("totalContacts = %v, want 1", body["totalContacts"])
	}
	f.batchRepo.waitDispatch(t)
}

func TestExecuteBatchNotFound(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchPending})

	rec, body := f.do(t, http.MethodPost, "/batch/99/execute", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestExecuteBatchInvalidID(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchPending})

	rec, _ := f.do(t, http.MethodPost, "/batch/abc/execute", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExecuteBatchWrongState(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchProcessing})
	f.contactRepo.contacts = []model.Contact{{ID: 10, BatchID: 1, Phone: "01137710010"}}

	rec, body := f.do(t, http.MethodPost, "/batch/1/execute", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
	}
	errMsg, _ := body["error"].(string)
	if !strings.Contains(errMsg, "PROCESSING") {
		t.Errorf("error %q should mention current status", errMsg)
	}
}

func TestExecuteEmptyBatch(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchPending})

	rec, _ := f.do(t, http.MethodPost, "/batch/1/execute", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for batch without contacts", rec.Code)
	}
}

func TestGetBatchStatusCounts(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchProcessing})
	ext := "conv_1"
	f.callRepo.Create(&model.OutboundCall{BatchID: 1, ContactID: 10, CallStatus: model.CallCompleted, ElevenLabsCallID: &ext})
	f.callRepo.Create(&model.OutboundCall{BatchID: 1, ContactID: 11, CallStatus: model.CallPending})

	rec, body := f.do(t, http.MethodGet, "/batch/1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	calls, ok := body["calls"].(map[string]any)
	if !ok {
		t.Fatalf("calls missing from response: %v", body)
	}
	if calls["COMPLETED"] != float64(1) || calls["PENDING"] != float64(1) || calls["total"] != float64(2) {
		t.Errorf("calls = %v, want 1 COMPLETED, 1 PENDING, total 2", calls)
	}
	if calls["FAILED"] != float64(0) {
		t.Errorf("absent statuses should be zero-filled, calls = %v", calls)
	}
}

func TestCancelBatch(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchProcessing})
	f.callRepo.Create(&model.OutboundCall{BatchID: 1, ContactID: 10, CallStatus: model.CallPending})
	f.callRepo.Create(&model.OutboundCall{BatchID: 1, ContactID: 11, CallStatus: model.CallScheduled})

	rec, body := f.do(t, http.MethodPost, "/batch/1/cancel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if body["status"] != model.BatchCancelled.String() {
		t.Errorf("status = %v, want CANCELLED", body["status"])
	}
	if body["callsCancelled"] != float64(2) {
		t.Errorf("callsCancelled = %v, want 2", body["callsCancelled"])
	}
}

func TestCancelBatchRequiresProcessing(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchPending})

	rec, _ := f.do(t, http.MethodPost, "/batch/1/cancel", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestResetBatch(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchFailed, LastError: "boom"})

	rec, body := f.do(t, http.MethodPost, "/batch/1/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if body["status"] != "PENDING" {
		t.Errorf("status = %v, want PENDING", body["status"])
	}
}

func TestResetBatchRejectsNonTerminal(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchProcessing})

	rec, _ := f.do(t, http.MethodPost, "/batch/1/reset", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReconcileBatchEndpoint(t *testing.T) {
	f := newFixture(&model.Batch{ID: 1, Status: model.BatchProcessing})
	ext := "conv_1"
	f.callRepo.Create(&model.OutboundCall{BatchID: 1, ContactID: 10, CallStatus: model.CallCompleted, ElevenLabsCallID: &ext})

	rec, body := f.do(t, http.MethodPost, "/batch/1/reconcile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if body["reconciled"] != float64(0) {
		t.Errorf("reconciled = %v, want 0 when nothing is in flight", body["reconciled"])
	}
}
