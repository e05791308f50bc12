package handler

import (
	"net/http"

	"github.com/folioapp/api/internal/app"
	"github.com/folioapp/api/internal/infra/llm"
	"github.com/folioapp/api/pkg/apierror"
	"github.com/folioapp/api/pkg/logger"
	"github.com/folioapp/api/pkg/sanitize"
	"github.com/folioapp/api/pkg/validator"
)

// ChatHandler serves the visitor chat endpoint.
type ChatHandler struct {
	service   *app.ChatService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(service *app.ChatService, v *validator.Validator, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		validator: v,
		logger:    log,
	}
}

type chatMessage struct {
	Role    string `json:"role" validate:"required,chat_role"`
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
}

type chatResponse struct {
	Message string `json:"message"`
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	// sanitize before validation so length limits apply to what is kept
	for i := range req.Messages {
		req.Messages[i].Content = sanitize.Text(req.Messages[i].Content)
	}

	if err := h.validator.Validate(req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	for _, m := range req.Messages {
		if sanitize.ContainsXSS(m.Content) || sanitize.ContainsSQLInjection(m.Content) {
			// generic response, the input is never echoed back
			h.logger.WithContext(r.Context()).Warn("chat message rejected by injection heuristics")
			respondError(w, r, h.logger, apierror.SafeBadRequest(nil))
			return
		}
	}

	messages := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := h.service.Respond(r.Context(), messages)
	if err != nil {
		respondError(w, r, h.logger, apierror.InternalError(err))
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{Message: reply})
}
