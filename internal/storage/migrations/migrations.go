// Package migrations applies versioned schema changes to a SQL database.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration is a single schema change
type Migration struct {
	Version     int
	Description string
	Up          string // SQL to apply the migration
	Down        string // SQL to revert the migration
}

// Manager applies registered migrations in version order
type Manager struct {
	migrations []Migration
}

// NewManager creates a manager with the given migrations
func NewManager(migrations ...Migration) *Manager {
	m := &Manager{}
	for _, mig := range migrations {
		m.Register(mig)
	}
	return m
}

// Register adds a migration to the manager
func (m *Manager) Register(migration Migration) {
	m.migrations = append(m.migrations, migration)
	sort.SliceStable(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
}

// Latest is the highest registered version, or 0
func (m *Manager) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

func (m *Manager) check() error {
	seen := make(map[int]bool, len(m.migrations))
	for _, mig := range m.migrations {
		if mig.Version <= 0 {
			return fmt.Errorf("migration version must be positive (got %d)", mig.Version)
		}
		if seen[mig.Version] {
			return fmt.Errorf("duplicate migration version %d", mig.Version)
		}
		seen[mig.Version] = true
	}
	return nil
}

// Apply runs every migration newer than the database's current version.
// Each migration runs in its own transaction. Returns the number applied.
func (m *Manager) Apply(ctx context.Context, db *sql.DB) (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	if err := createVersionTable(ctx, db); err != nil {
		return 0, fmt.Errorf("failed to create version table: %w", err)
	}

	current, err := Version(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}

	applied := 0
	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := apply(ctx, db, mig); err != nil {
			return applied, fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}
		applied++
	}
	return applied, nil
}

// Rollback reverts the most recently applied migration
func (m *Manager) Rollback(ctx context.Context, db *sql.DB) error {
	current, err := Version(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if current == 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	for _, mig := range m.migrations {
		if mig.Version == current {
			if err := rollback(ctx, db, mig); err != nil {
				return fmt.Errorf("failed to rollback migration %d: %w", mig.Version, err)
			}
			return nil
		}
	}
	return fmt.Errorf("migration %d not found", current)
}

// Version returns the highest applied version, 0 for a fresh database
func Version(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func createVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func apply(ctx context.Context, db *sql.DB, mig Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, mig.Up); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)",
		mig.Version, mig.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

func rollback(ctx context.Context, db *sql.DB, mig Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, mig.Down); err != nil {
		return fmt.Errorf("failed to execute rollback SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", mig.Version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}

	return tx.Commit()
}
