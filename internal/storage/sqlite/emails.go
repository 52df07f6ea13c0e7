package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deskops/mailtriage/internal/types"
)

// CreateEmail inserts an email, replacing any stored email with the same id
func (s *SQLiteStorage) CreateEmail(ctx context.Context, email *types.RawEmail) error {
	if email == nil {
		return fmt.Errorf("email cannot be nil")
	}
	if err := email.Validate(); err != nil {
		return fmt.Errorf("validation failed for email %q: %w", email.ID, err)
	}

	to := email.To
	if to == nil {
		to = []string{}
	}
	recipients, err := json.Marshal(to)
	if err != nil {
		return fmt.Errorf("failed to encode recipients: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emails (id, subject, sender, recipients, body, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			sender = excluded.sender,
			recipients = excluded.recipients,
			body = excluded.body,
			received_at = excluded.received_at
	`, email.ID, email.Subject, email.From, string(recipients), email.Body, formatTime(email.ReceivedAt))
	if err != nil {
		return fmt.Errorf("failed to insert email %s: %w", email.ID, err)
	}
	return nil
}

// ListEmails returns every stored email, oldest first
func (s *SQLiteStorage) ListEmails(ctx context.Context) ([]*types.RawEmail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, sender, recipients, body, received_at
		FROM emails
		ORDER BY received_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer rows.Close()

	emails := []*types.RawEmail{}
	for rows.Next() {
		var email types.RawEmail
		var recipients, receivedAt string
		if err := rows.Scan(&email.ID, &email.Subject, &email.From, &recipients, &email.Body, &receivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		if err := json.Unmarshal([]byte(recipients), &email.To); err != nil {
			return nil, fmt.Errorf("failed to decode recipients of %s: %w", email.ID, err)
		}
		if email.ReceivedAt, err = parseTime(receivedAt); err != nil {
			return nil, fmt.Errorf("email %s: %w", email.ID, err)
		}
		emails = append(emails, &email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate emails: %w", err)
	}
	return emails, nil
}
