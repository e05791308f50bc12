package handler

import (
	"context"
	"net/http"

	"github.com/folioapp/api/internal/app"
	"github.com/folioapp/api/internal/infra/http/middleware"
	"github.com/folioapp/api/internal/ratelimit"
	"github.com/folioapp/api/pkg/apierror"
	"github.com/folioapp/api/pkg/logger"
)

// SubmissionLister lists recent contact submissions.
type SubmissionLister interface {
	Recent(ctx context.Context, limit int) ([]*app.ContactSubmission, error)
}

// AdminHandler serves the admin-only operational endpoints. Access
// control happens in the admission middleware; these handlers assume an
// admin identity.
type AdminHandler struct {
	policies    map[string]ratelimit.Policy
	memory      *ratelimit.MemoryLimiter
	submissions SubmissionLister
	logger      *logger.Logger
}

// NewAdminHandler creates an admin handler. submissions may be nil when
// no database is configured.
func NewAdminHandler(policies map[string]ratelimit.Policy, memory *ratelimit.MemoryLimiter, submissions SubmissionLister, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		policies:    policies,
		memory:      memory,
		submissions: submissions,
		logger:      log,
	}
}

type policyStats struct {
	Limit         int    `json:"limit"`
	WindowSeconds int    `json:"window_seconds"`
	Name          string `json:"name"`
}

type adminStatsResponse struct {
	Policies       []policyStats `json:"policies"`
	TrackedClients int           `json:"tracked_clients"`
	AdminUser      string        `json:"admin_user,omitempty"`
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := adminStatsResponse{
		TrackedClients: h.memory.Len(),
	}
	for _, p := range h.policies {
		resp.Policies = append(resp.Policies, policyStats{
			Name:          p.Name,
			Limit:         p.Limit,
			WindowSeconds: int(p.Window.Seconds()),
		})
	}
	if id := middleware.IdentityFromContext(r.Context()); id != nil {
		resp.AdminUser = id.UserID
	}

	respondJSON(w, http.StatusOK, resp)
}

type submissionSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// Submissions handles GET /api/admin/submissions.
func (h *AdminHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	if h.submissions == nil {
		respondError(w, r, h.logger, apierror.NotFound("Submission store"))
		return
	}

	recent, err := h.submissions.Recent(r.Context(), 50)
	if err != nil {
		respondError(w, r, h.logger, apierror.InternalError(err))
		return
	}

	out := make([]submissionSummary, 0, len(recent))
	for _, s := range recent {
		out = append(out, submissionSummary{
			ID:        s.ID,
			Name:      s.Name,
			Email:     s.Email,
			Message:   s.Message,
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"submissions": out})
}
