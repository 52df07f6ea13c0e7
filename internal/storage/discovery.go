package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDatabaseName is the SQLite file created by `triage init`
const DefaultDatabaseName = "triage.db"

// DiscoverDatabase finds the snapshot database for the current directory.
//
// TRIAGE_DB_PATH wins when set. Otherwise ./triage.db and then
// ./.triage/triage.db are tried. The parent directories are not searched.
func DiscoverDatabase() (string, error) {
	if dbPath := os.Getenv("TRIAGE_DB_PATH"); dbPath != "" {
		return dbPath, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return discoverDatabaseInDir(dir)
}

func discoverDatabaseInDir(dir string) (string, error) {
	candidates := []string{
		filepath.Join(dir, DefaultDatabaseName),
		filepath.Join(dir, ".triage", DefaultDatabaseName),
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return "", fmt.Errorf("failed to get absolute path: %w", err)
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("no %s found in %s (run 'triage init' first)", DefaultDatabaseName, dir)
}
