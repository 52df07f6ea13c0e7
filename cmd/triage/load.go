package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deskops/mailtriage/internal/storage"
	"github.com/deskops/mailtriage/internal/storage/sqlite"
)

var (
	loadFile string
	loadDB   string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import a JSON snapshot into the database",
	Long: `Import emails and tickets from a JSON snapshot into the SQLite store.

Records are upserted by id, so loading the same snapshot twice is safe.
Records that fail validation are skipped and counted.

The snapshot has the shape:
  {"emails": [...], "tickets": [...]}

Examples:
  triage load --file snapshot.json
  triage load --file snapshot.json --db /var/lib/triage/triage.db`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if loadFile == "" {
			fmt.Fprintf(os.Stderr, "Error: --file is required\n")
			os.Exit(1)
		}

		snap, err := storage.ReadSnapshotFile(loadFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		dbPath, err := resolveDatabase(loadDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		store, err := sqlite.New(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()

		ctx := context.Background()
		emails, tickets, failed, err := storage.CopySnapshot(ctx, snap, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("%s Loaded %d email(s) and %d ticket(s) into %s\n", green("✓"), emails, tickets, cyan(dbPath))
		if failed > 0 {
			fmt.Printf("%s Skipped %d invalid record(s)\n", yellow("⚠"), failed)
		}
	},
}

// resolveDatabase returns flagPath when set, otherwise the discovered database
func resolveDatabase(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	return storage.DiscoverDatabase()
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().StringVarP(&loadFile, "file", "f", "", "JSON snapshot to import")
	loadCmd.Flags().StringVar(&loadDB, "db", "", "Database path (default: discovered from TRIAGE_DB_PATH or .triage/)")
}
