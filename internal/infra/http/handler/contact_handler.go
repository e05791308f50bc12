package handler

import (
	"net/http"

	"github.com/folioapp/api/internal/app"
	"github.com/folioapp/api/internal/infra/http/middleware"
	"github.com/folioapp/api/pkg/apierror"
	"github.com/folioapp/api/pkg/logger"
	"github.com/folioapp/api/pkg/sanitize"
	"github.com/folioapp/api/pkg/validator"
)

// ContactHandler serves the contact form endpoint.
type ContactHandler struct {
	service   *app.ContactService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewContactHandler creates a contact handler.
func NewContactHandler(service *app.ContactService, v *validator.Validator, log *logger.Logger) *ContactHandler {
	return &ContactHandler{
		service:   service,
		validator: v,
		logger:    log,
	}
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=10,max=5000"`

	// Website is a honeypot. The form hides it, so a value means a bot.
	Website string `json:"website"`
}

type contactResponse struct {
	OK bool `json:"ok"`
}

// Contact handles POST /api/contact.
func (h *ContactHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	// Bots that filled the honeypot get a success response and nothing
	// else: no validation, no rate-limit feedback, no stored record.
	if req.Website != "" {
		h.logger.WithContext(r.Context()).Info("contact honeypot triggered",
			"client", middleware.ClientIdentifier(r),
		)
		respondJSON(w, http.StatusOK, contactResponse{OK: true})
		return
	}

	req.Name = sanitize.Text(req.Name)
	req.Email = sanitize.Email(req.Email)
	req.Message = sanitize.Text(req.Message)

	if err := h.validator.Validate(req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	for _, field := range []string{req.Name, req.Message} {
		if sanitize.ContainsXSS(field) || sanitize.ContainsSQLInjection(field) {
			h.logger.WithContext(r.Context()).Warn("contact submission rejected by injection heuristics")
			respondError(w, r, h.logger, apierror.SafeBadRequest(nil))
			return
		}
	}

	submission := &app.ContactSubmission{
		Name:     req.Name,
		Email:    req.Email,
		Message:  req.Message,
		ClientIP: middleware.ClientIdentifier(r),
	}

	if err := h.service.Submit(r.Context(), submission); err != nil {
		respondError(w, r, h.logger, apierror.InternalError(err))
		return
	}

	respondJSON(w, http.StatusOK, contactResponse{OK: true})
}
