package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/folioapp/api/pkg/logger"
)

// ContactSubmission is a sanitized, validated contact form entry.
type ContactSubmission struct {
	ID        string
	Name      string
	Email     string
	Message   string
	ClientIP  string
	CreatedAt time.Time
}

// ContactRepository persists contact submissions.
type ContactRepository interface {
	Save(ctx context.Context, submission *ContactSubmission) error
}

// ContactService records contact form submissions. Persistence is
// optional: without a repository, submissions are only logged.
type ContactService struct {
	repo   ContactRepository
	logger *logger.Logger
}

// NewContactService creates a contact service. repo may be nil.
func NewContactService(repo ContactRepository, log *logger.Logger) *ContactService {
	return &ContactService{
		repo:   repo,
		logger: log,
	}
}

// Submit records a submission.
func (s *ContactService) Submit(ctx context.Context, submission *ContactSubmission) error {
	submission.ID = uuid.New().String()
	submission.CreatedAt = time.Now().UTC()

	log := s.logger.WithContext(ctx)

	if s.repo != nil {
		if err := s.repo.Save(ctx, submission); err != nil {
			return fmt.Errorf("save contact submission: %w", err)
		}
	}

	// email is redacted by the logger
	log.Info("contact submission received",
		"submission_id", submission.ID,
		"name", submission.Name,
		"email", submission.Email,
		"message_length", len(submission.Message),
		"persisted", s.repo != nil,
	)

	return nil
}
