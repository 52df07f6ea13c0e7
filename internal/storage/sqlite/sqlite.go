// Package sqlite stores email and ticket snapshots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deskops/mailtriage/internal/storage"
	"github.com/deskops/mailtriage/internal/storage/migrations"
)

// SQLiteStorage implements storage.Store using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ storage.Store = (*SQLiteStorage)(nil)

// New opens (creating if needed) the database at path and brings its schema
// up to date
func New(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	applied, err := migrations.NewManager(schemaMigrations...).Apply(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if applied > 0 {
		log.Printf("[STORE] Applied %d schema migration(s) to %s", applied, path)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Counts returns the number of stored emails and tickets
func (s *SQLiteStorage) Counts(ctx context.Context) (emails, tickets int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM emails), (SELECT COUNT(*) FROM tickets)
	`).Scan(&emails, &tickets)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	return emails, tickets, nil
}

// storedTimeLayout is RFC 3339 with a fixed nine-digit fraction. Times are
// stored as UTC text in this layout so ORDER BY on the column is chronological.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}
