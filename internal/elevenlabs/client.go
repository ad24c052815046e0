// internal/elevenlabs/client.go
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appErrors "github.com/ralborta/nutryhome-backend/internal/errors"
)

// Client talks to the ElevenLabs conversational-AI API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL and key. A nil
// httpClient gets a default with a 30s timeout.
func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Settings is the account settings probe response. Only presence matters
// for the preflight check, so fields are kept minimal.
type Settings struct {
	CanUseConvAI bool `json:"can_use_convai"`
}

// Agent is the configured conversational agent resource.
type Agent struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
}

// PhoneNumber is the outbound caller-id resource.
type PhoneNumber struct {
	PhoneNumberID string `json:"phone_number_id"`
	PhoneNumber   string `json:"phone_number"`
	Label         string `json:"label"`
}

// ConversationInitiationClientData carries the per-call prompt variables.
type ConversationInitiationClientData struct {
	Type             string            `json:"type"`
	DynamicVariables map[string]string `json:"dynamic_variables"`
}

// BatchCallRecipient is one entry of the bulk submit payload.
type BatchCallRecipient struct {
	PhoneNumber                      string                           `json:"phone_number"`
	ConversationInitiationClientData ConversationInitiationClientData `json:"conversation_initiation_client_data"`
}

// BatchCallRequest is the bulk submit payload.
type BatchCallRequest struct {
	CallName           string               `json:"call_name"`
	AgentID            string               `json:"agent_id"`
	AgentPhoneNumberID string               `json:"agent_phone_number_id"`
	ScheduledTimeUnix  int64                `json:"scheduled_time_unix"`
	Recipients         []BatchCallRecipient `json:"recipients"`
}

// BatchCallResult is one accepted recipient, matched back to a local row by
// phone number.
type BatchCallResult struct {
	CallID      string `json:"call_id"`
	PhoneNumber string `json:"phone_number"`
}

// BatchCallResponse is the accepted bulk job: the batch id plus one call id
// per recipient.
type BatchCallResponse struct {
	BatchID string            `json:"batch_id"`
	ID      string            `json:"id"`
	Calls   []BatchCallResult `json:"calls"`
}

// ExternalBatchID returns whichever of the two id fields the API filled.
func (r *BatchCallResponse) ExternalBatchID() string {
	if r.BatchID != "" {
		return r.BatchID
	}
	return r.ID
}

// Conversation is the polled state of one call.
type Conversation struct {
	ConversationID string          `json:"conversation_id"`
	Status         string          `json:"status"`
	Transcript     json.RawMessage `json:"transcript"`
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

// GetSettings probes account access, the cheapest permission check.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	var out Settings
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAgent probes that the configured agent exists and is readable.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	var out Agent
	if err := c.do(ctx, http.MethodGet, "/agents/"+agentID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPhoneNumber probes that the configured caller-id resource exists.
func (c *Client) GetPhoneNumber(ctx context.Context, phoneNumberID string) (*PhoneNumber, error) {
	var out PhoneNumber
	if err := c.do(ctx, http.MethodGet, "/phone-numbers/"+phoneNumberID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitBatchCalling submits the whole batch in a single call. The batch is
// either accepted for processing or it is not; there is no partial retry.
func (c *Client) SubmitBatchCalling(ctx context.Context, req *BatchCallRequest) (*BatchCallResponse, error) {
	var out BatchCallResponse
	if err := c.do(ctx, http.MethodPost, "/batch-calling/submit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelBatch asks the API to stop an accepted batch. Best effort; callers
// proceed with local cancellation even when this fails.
func (c *Client) CancelBatch(ctx context.Context, batchID string) error {
	return c.do(ctx, http.MethodPost, "/batch-calls/"+batchID+"/cancel", nil, nil)
}

// GetConversation fetches the current status/result of one call.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	var out Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+conversationID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return appErrors.NewExternalAPI(resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
