package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/mailtriage/internal/storage"
	"github.com/deskops/mailtriage/internal/storage/migrations"
	"github.com/deskops/mailtriage/internal/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "triage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewAppliesSchema(t *testing.T) {
	store := setupTestDB(t)

	version, err := migrations.Version(context.Background(), store.db)
	require.NoError(t, err)
	assert.Equal(t, len(schemaMigrations), version)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "triage.db")

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.CreateTicket(ctx, &types.RawTicket{ID: "T-1", Title: "kept"}))
	require.NoError(t, store.Close())

	store, err = New(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	tickets, err := store.ListTickets(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "kept", tickets[0].Title)
}

func TestEmailRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	received := time.Date(2024, 2, 1, 10, 30, 15, 123000000, time.FixedZone("CET", 3600))
	later := &types.RawEmail{
		ID:         "m-2",
		Subject:    "Second",
		From:       "Bob <bob@example.test>",
		Body:       "later",
		ReceivedAt: received.Add(time.Hour),
	}
	earlier := &types.RawEmail{
		ID:         "m-1",
		Subject:    "First",
		From:       "alice@example.test",
		To:         []string{"support@example.test", "ops@example.test"},
		Body:       "<p>hello</p>",
		ReceivedAt: received,
	}
	require.NoError(t, store.CreateEmail(ctx, later))
	require.NoError(t, store.CreateEmail(ctx, earlier))

	emails, err := store.ListEmails(ctx)
	require.NoError(t, err)
	require.Len(t, emails, 2)

	assert.Equal(t, "m-1", emails[0].ID)
	assert.Equal(t, earlier.To, emails[0].To)
	assert.Equal(t, earlier.Body, emails[0].Body)
	assert.True(t, earlier.ReceivedAt.Equal(emails[0].ReceivedAt))

	assert.Equal(t, "m-2", emails[1].ID)
	assert.Equal(t, []string{}, emails[1].To)
	assert.Equal(t, "Bob <bob@example.test>", emails[1].From)
}

func TestCreateEmailUpserts(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateEmail(ctx, &types.RawEmail{ID: "m-1", Subject: "old", ReceivedAt: at}))
	require.NoError(t, store.CreateEmail(ctx, &types.RawEmail{ID: "m-1", Subject: "new", ReceivedAt: at}))

	emails, err := store.ListEmails(ctx)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "new", emails[0].Subject)
}

func TestCreateRejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	assert.ErrorContains(t, store.CreateEmail(ctx, nil), "cannot be nil")
	assert.ErrorContains(t, store.CreateEmail(ctx, &types.RawEmail{ID: "m"}), "received_at is required")
	assert.ErrorContains(t, store.CreateTicket(ctx, nil), "cannot be nil")
	assert.ErrorContains(t, store.CreateTicket(ctx, &types.RawTicket{Title: "no id"}), "id is required")

	emails, tickets, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, emails)
	assert.Zero(t, tickets)
}

func TestTicketRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	created := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	want := []*types.RawTicket{
		{ID: "T-1", Title: "Printer offline", Description: "Label printer", Status: "open", Priority: "high", Category: "printing", CreatedAt: created},
		{ID: "T-2", Title: "No created time", Status: "closed"},
	}
	// Inserted in reverse to check ordering
	require.NoError(t, store.CreateTicket(ctx, want[1]))
	require.NoError(t, store.CreateTicket(ctx, want[0]))

	got, err := store.ListTickets(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[0], got[0])
	assert.Equal(t, want[1], got[1])
	assert.True(t, got[1].CreatedAt.IsZero())
}

func TestCopyAndLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	at := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
	snap := &storage.Snapshot{
		Emails: []*types.RawEmail{
			{ID: "m-1", Subject: "a", ReceivedAt: at},
			{ID: "", Subject: "bad"},
			{ID: "m-2", Subject: "b", ReceivedAt: at.Add(time.Minute)},
		},
		Tickets: []*types.RawTicket{{ID: "T-1", Status: "open"}},
	}

	emails, tickets, failed, err := storage.CopySnapshot(ctx, snap, store)
	require.NoError(t, err)
	assert.Equal(t, 2, emails)
	assert.Equal(t, 1, tickets)
	assert.Equal(t, 1, failed)

	loaded, err := storage.LoadSnapshot(ctx, store)
	require.NoError(t, err)
	require.Len(t, loaded.Emails, 2)
	require.Len(t, loaded.Tickets, 1)
	assert.Equal(t, "m-1", loaded.Emails[0].ID)
	assert.Equal(t, "T-1", loaded.Tickets[0].ID)

	nEmails, nTickets, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nEmails)
	assert.Equal(t, 1, nTickets)
}

func TestListEmailsOrdersSubSecondTimes(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	at := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateEmail(ctx, &types.RawEmail{ID: "b", ReceivedAt: at.Add(500 * time.Millisecond)}))
	require.NoError(t, store.CreateEmail(ctx, &types.RawEmail{ID: "c", ReceivedAt: at.Add(time.Second)}))
	require.NoError(t, store.CreateEmail(ctx, &types.RawEmail{ID: "a", ReceivedAt: at}))

	emails, err := store.ListEmails(ctx)
	require.NoError(t, err)
	require.Len(t, emails, 3)
	assert.Equal(t, "a", emails[0].ID)
	assert.Equal(t, "b", emails[1].ID)
	assert.Equal(t, "c", emails[2].ID)
	assert.True(t, at.Add(500*time.Millisecond).Equal(emails[1].ReceivedAt))
}

func TestFormatTimeIsFixedWidth(t *testing.T) {
	whole := formatTime(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	half := formatTime(time.Date(2024, 2, 1, 9, 0, 0, 500000000, time.UTC))

	assert.Equal(t, "2024-02-01T09:00:00.000000000Z", whole)
	assert.Equal(t, len(whole), len(half))
	assert.Less(t, whole, half)
	assert.Equal(t, "", formatTime(time.Time{}))
}
