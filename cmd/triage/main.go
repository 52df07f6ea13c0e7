// Command triage groups related support emails and matches them against
// existing tickets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deskops/mailtriage/internal/config"
	"github.com/deskops/mailtriage/internal/deduplication"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Group support emails and match them against tickets",
	Long: `triage analyzes a mailbox snapshot, clusters emails that describe the same
problem, and recommends whether each cluster is a duplicate of an existing
ticket, related to one, or needs a new ticket.

Settings come from triage.yaml (see 'triage init') and TRIAGE_* environment
variables, which take precedence over the file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "Path to the configuration file")
}

// loadConfig reads the configuration file (or defaults when it is absent)
// and layers TRIAGE_* overrides on top of the engine settings.
func loadConfig() (*config.File, deduplication.Config, error) {
	file, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, deduplication.Config{}, err
	}
	engineCfg, err := deduplication.ApplyEnv(file.Engine())
	if err != nil {
		return nil, deduplication.Config{}, err
	}
	return file, engineCfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
