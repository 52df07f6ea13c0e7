// Package storage defines where emails and tickets come from.
//
// The analysis engine never talks to a mailbox or a ticket tracker directly.
// Callers fetch a snapshot through EmailSource and TicketSource and hand the
// records to deduplication.CrossAnalyze. Two implementations ship: a JSON
// snapshot file and a SQLite store (package sqlite).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/deskops/mailtriage/internal/types"
)

// EmailSource lists the current incoming emails
type EmailSource interface {
	ListEmails(ctx context.Context) ([]*types.RawEmail, error)
}

// TicketSource lists the existing tickets
type TicketSource interface {
	ListTickets(ctx context.Context) ([]*types.RawTicket, error)
}

// Source supplies both sides of an analysis run
type Source interface {
	EmailSource
	TicketSource
}

// Store is a Source that can also be written to
type Store interface {
	Source
	CreateEmail(ctx context.Context, email *types.RawEmail) error
	CreateTicket(ctx context.Context, ticket *types.RawTicket) error
	Close() error
}

// Snapshot is a point-in-time copy of emails and tickets
type Snapshot struct {
	Emails  []*types.RawEmail  `json:"emails"`
	Tickets []*types.RawTicket `json:"tickets"`
}

// ListEmails implements EmailSource
func (s *Snapshot) ListEmails(ctx context.Context) ([]*types.RawEmail, error) {
	return s.Emails, nil
}

// ListTickets implements TicketSource
func (s *Snapshot) ListTickets(ctx context.Context) ([]*types.RawTicket, error) {
	return s.Tickets, nil
}

// ReadSnapshot decodes a JSON snapshot. Missing arrays decode as empty.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Emails == nil {
		snap.Emails = []*types.RawEmail{}
	}
	if snap.Tickets == nil {
		snap.Tickets = []*types.RawTicket{}
	}
	return &snap, nil
}

// ReadSnapshotFile decodes the JSON snapshot at path
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// LoadSnapshot fetches emails and tickets from src concurrently
func LoadSnapshot(ctx context.Context, src Source) (*Snapshot, error) {
	snap := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		emails, err := src.ListEmails(gctx)
		if err != nil {
			return fmt.Errorf("failed to list emails: %w", err)
		}
		snap.Emails = emails
		return nil
	})
	g.Go(func() error {
		tickets, err := src.ListTickets(gctx)
		if err != nil {
			return fmt.Errorf("failed to list tickets: %w", err)
		}
		snap.Tickets = tickets
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// CopySnapshot writes every email and ticket of snap into dst. Records that
// fail to insert are logged and counted, not fatal.
func CopySnapshot(ctx context.Context, snap *Snapshot, dst Store) (emails, tickets, failed int, err error) {
	for _, e := range snap.Emails {
		if err := ctx.Err(); err != nil {
			return emails, tickets, failed, err
		}
		if err := dst.CreateEmail(ctx, e); err != nil {
			log.Printf("[STORE] Skipping email: %v", err)
			failed++
			continue
		}
		emails++
	}
	for _, t := range snap.Tickets {
		if err := ctx.Err(); err != nil {
			return emails, tickets, failed, err
		}
		if err := dst.CreateTicket(ctx, t); err != nil {
			log.Printf("[STORE] Skipping ticket: %v", err)
			failed++
			continue
		}
		tickets++
	}
	return emails, tickets, failed, nil
}
