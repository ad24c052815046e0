// internal/service/voice_api.go
package service

import (
    "context"

    "github.com/ralborta/nutryhome-backend/internal/elevenlabs"
)

// VoiceAPI is the slice of the ElevenLabs client the services depend on,
// kept as an interface so tests can fake the external system.
type VoiceAPI interface {
    GetSettings(ctx context.Context) (*elevenlabs.Settings, error)
    GetAgent(ctx context.Context, agentID string) (*elevenlabs.Agent, error)
    GetPhoneNumber(ctx context.Context, phoneNumberID string) (*elevenlabs.PhoneNumber, error)
    SubmitBatchCalling(ctx context.Context, req *elevenlabs.BatchCallRequest) (*elevenlabs.BatchCallResponse, error)
    CancelBatch(ctx context.Context, batchID string) error
    GetConversation(ctx context.Context, conversationID string) (*elevenlabs.Conversation, error)
}

var _ VoiceAPI = (*elevenlabs.Client)(nil)
