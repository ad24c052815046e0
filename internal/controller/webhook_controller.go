// internal/controller/webhook_controller.go
package controller

import (
    "encoding/json"
    "net/http"

    "github.com/ralborta/nutryhome-backend/internal/service"
)

type WebhookController struct {
    Reconciler *service.Reconciler
}

// ElevenLabsWebhook receives post-call events. The transcript is persisted
// and success is returned immediately; nothing downstream blocks the
// external caller.
func (c *WebhookController) ElevenLabsWebhook(w http.ResponseWriter, r *http.Request) {
    var payload service.WebhookPayload
    if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
        writeJSON(w, http.StatusBadRequest, map[string]any{
            "success": false,
            "error":   "invalid webhook body: " + err.Error(),
        })
        return
    }
    if payload.ConversationID == "" {
        writeJSON(w, http.StatusBadRequest, map[string]any{
            "success": false,
            "error":   "webhook payload missing conversation_id",
        })
        return
    }

    if err := c.Reconciler.IngestWebhook(r.Context(), &payload); err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
