package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"code_arena/internal/app/service"
	"code_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

type WebhookHandler struct {
	webhookService *service.WebhookService
}

func NewWebhookHandler(ws *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: ws}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	// This endpoint should be secured, e.g., with a shared secret in a header
	// or by checking the source IP of the judge service.
	r.Post("/judge", h.handleJudgeResult)
}

func (h *WebhookHandler) handleJudgeResult(w http.ResponseWriter, r *http.Request) {
	var payload service.JudgeResultPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("ERROR: Webhook: Invalid payload: %v", err)
		common.RespondWithError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	defer r.Body.Close()

	if err := h.webhookService.HandleJudgeResult(r.Context(), payload); err != nil {
		log.Printf("ERROR: Webhook: Error handling result for challenge %s: %v", payload.ChallengeID, err)
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Webhook processed for challenge " + payload.ChallengeID})
}
