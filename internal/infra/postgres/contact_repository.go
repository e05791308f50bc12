package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/folioapp/api/internal/app"
)

// ContactRepository persists contact submissions in Postgres.
type ContactRepository struct {
	db *sql.DB
}

var _ app.ContactRepository = (*ContactRepository)(nil)

// NewContactRepository creates a repository over an open connection.
func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Save inserts a submission.
func (r *ContactRepository) Save(ctx context.Context, s *app.ContactSubmission) error {
	const query = `
		INSERT INTO contact_submissions (id, name, email, message, client_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Email, s.Message, s.ClientIP, s.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert contact submission: %w", err)
	}

	return nil
}

// Recent returns the most recent submissions, newest first. Used by the
// admin stats endpoint.
func (r *ContactRepository) Recent(ctx context.Context, limit int) ([]*app.ContactSubmission, error) {
	const query = `
		SELECT id, name, email, message, client_ip, created_at
		FROM contact_submissions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list contact submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*app.ContactSubmission
	for rows.Next() {
		s := &app.ContactSubmission{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Message, &s.ClientIP, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact submission: %w", err)
		}
		submissions = append(submissions, s)
	}

	return submissions, rows.Err()
}
