package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/mailtriage/internal/types"
)

const snapshotJSON = `{
  "emails": [
    {
      "id": "m-1",
      "subject": "Printer offline",
      "from": "alice@acme.test",
      "to": ["support@example.test"],
      "body": "The label printer is offline again",
      "received_at": "2024-03-11T09:00:00Z"
    }
  ],
  "tickets": [
    {
      "id": "T-1",
      "title": "Printer offline",
      "description": "",
      "status": "open",
      "priority": "high",
      "category": "printing",
      "created_at": "2024-03-10T12:00:00Z"
    }
  ]
}`

func TestReadSnapshot(t *testing.T) {
	snap, err := ReadSnapshot(strings.NewReader(snapshotJSON))
	require.NoError(t, err)

	require.Len(t, snap.Emails, 1)
	assert.Equal(t, "m-1", snap.Emails[0].ID)
	assert.Equal(t, []string{"support@example.test"}, snap.Emails[0].To)
	assert.Equal(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), snap.Emails[0].ReceivedAt)

	require.Len(t, snap.Tickets, 1)
	assert.Equal(t, "printing", snap.Tickets[0].Category)
}

func TestReadSnapshotMissingArrays(t *testing.T) {
	snap, err := ReadSnapshot(strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, snap.Emails)
	assert.NotNil(t, snap.Tickets)
	assert.Empty(t, snap.Emails)
}

func TestReadSnapshotInvalid(t *testing.T) {
	_, err := ReadSnapshot(strings.NewReader(`{"emails": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode snapshot")
}

func TestReadSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshotJSON), 0644))

	snap, err := ReadSnapshotFile(path)
	require.NoError(t, err)
	assert.Len(t, snap.Emails, 1)

	_, err = ReadSnapshotFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

type failingSource struct {
	Snapshot
	emailErr  error
	ticketErr error
}

func (f *failingSource) ListEmails(ctx context.Context) ([]*types.RawEmail, error) {
	if f.emailErr != nil {
		return nil, f.emailErr
	}
	return f.Snapshot.ListEmails(ctx)
}

func (f *failingSource) ListTickets(ctx context.Context) ([]*types.RawTicket, error) {
	if f.ticketErr != nil {
		return nil, f.ticketErr
	}
	return f.Snapshot.ListTickets(ctx)
}

func TestLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	src := &failingSource{Snapshot: Snapshot{
		Emails:  []*types.RawEmail{{ID: "m-1"}},
		Tickets: []*types.RawTicket{{ID: "T-1"}, {ID: "T-2"}},
	}}

	snap, err := LoadSnapshot(ctx, src)
	require.NoError(t, err)
	assert.Len(t, snap.Emails, 1)
	assert.Len(t, snap.Tickets, 2)

	boom := errors.New("mailbox unavailable")
	src.emailErr = boom
	_, err = LoadSnapshot(ctx, src)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to list emails")

	src.emailErr = nil
	src.ticketErr = boom
	_, err = LoadSnapshot(ctx, src)
	assert.ErrorContains(t, err, "failed to list tickets")
}

func TestDiscoverDatabaseInDir(t *testing.T) {
	dir := t.TempDir()

	_, err := discoverDatabaseInDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triage init")

	hidden := filepath.Join(dir, ".triage", DefaultDatabaseName)
	require.NoError(t, os.MkdirAll(filepath.Dir(hidden), 0755))
	require.NoError(t, os.WriteFile(hidden, nil, 0644))
	path, err := discoverDatabaseInDir(dir)
	require.NoError(t, err)
	assert.Equal(t, hidden, path)

	top := filepath.Join(dir, DefaultDatabaseName)
	require.NoError(t, os.WriteFile(top, nil, 0644))
	path, err = discoverDatabaseInDir(dir)
	require.NoError(t, err)
	assert.Equal(t, top, path, "top-level database wins")
}

func TestDiscoverDatabaseEnvOverride(t *testing.T) {
	t.Setenv("TRIAGE_DB_PATH", "/tmp/elsewhere.db")
	path, err := DiscoverDatabase()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.db", path)
}
