package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deskops/mailtriage/internal/config"
	"github.com/deskops/mailtriage/internal/storage"
	"github.com/deskops/mailtriage/internal/storage/sqlite"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file and snapshot database in the current directory",
	Long: `Initialize triage in the current directory.

This creates:
  - triage.yaml (default thresholds, weights and server settings)
  - .triage/triage.db (SQLite snapshot store)

An existing triage.yaml is left alone unless --force is given.

Example:
  triage init
  triage init --force`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		wrote, err := writeDefaultConfig(configPath, initForce)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		dbPath := filepath.Join(".triage", storage.DefaultDatabaseName)
		store, err := sqlite.New(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize database: %v\n", err)
			os.Exit(1)
		}
		_ = store.Close()

		fmt.Printf("\n%s Initialized triage\n\n", green("✓"))
		if wrote {
			fmt.Printf("  Config:   %s\n", cyan(configPath))
		} else {
			fmt.Printf("  Config:   %s %s\n", cyan(configPath), yellow("(kept existing, use --force to overwrite)"))
		}
		fmt.Printf("  Database: %s\n", cyan(dbPath))
		fmt.Println()

		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("triage load --file snapshot.json"))
		fmt.Printf("  %s\n", gray("triage analyze"))
		fmt.Println()
	},
}

// writeDefaultConfig writes the default configuration to path. It reports
// false without touching the file when one exists and force is not set.
func writeDefaultConfig(path string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("failed to check %s: %w", path, err)
		}
	}
	if err := config.Default().Write(path); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}
