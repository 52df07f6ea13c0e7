package sqlite

import (
	"context"
	"fmt"

	"github.com/deskops/mailtriage/internal/types"
)

// CreateTicket inserts a ticket, replacing any stored ticket with the same id
func (s *SQLiteStorage) CreateTicket(ctx context.Context, ticket *types.RawTicket) error {
	if ticket == nil {
		return fmt.Errorf("ticket cannot be nil")
	}
	if err := ticket.Validate(); err != nil {
		return fmt.Errorf("validation failed for ticket %q: %w", ticket.ID, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, title, description, status, priority, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			category = excluded.category,
			created_at = excluded.created_at
	`, ticket.ID, ticket.Title, ticket.Description, ticket.Status, ticket.Priority, ticket.Category,
		formatTime(ticket.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert ticket %s: %w", ticket.ID, err)
	}
	return nil
}

// ListTickets returns every stored ticket ordered by id
func (s *SQLiteStorage) ListTickets(ctx context.Context) ([]*types.RawTicket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, status, priority, category, created_at
		FROM tickets
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*types.RawTicket{}
	for rows.Next() {
		var t types.RawTicket
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Category, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("ticket %s: %w", t.ID, err)
		}
		tickets = append(tickets, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}
	return tickets, nil
}
