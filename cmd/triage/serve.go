package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deskops/mailtriage/internal/api"
	"github.com/deskops/mailtriage/internal/deduplication"
	"github.com/deskops/mailtriage/internal/storage"
	"github.com/deskops/mailtriage/internal/storage/sqlite"
)

var (
	serveAddr string
	serveDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve cross analysis over HTTP",
	Long: `Start the HTTP API.

  POST /api/v1/analyze   analyze the snapshot in the request body
  GET  /api/v1/analyze   analyze the snapshot database
  GET  /health           liveness

The snapshot database is taken from --db, then server.db_path in the config.
If it does not exist, GET /api/v1/analyze answers 503.

Examples:
  triage serve
  triage serve --addr :9090 --db .triage/triage.db`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		file, engineCfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		serverCfg := file.Server
		if serveAddr != "" {
			serverCfg.Addr = serveAddr
		}
		if serveDB != "" {
			serverCfg.DBPath = serveDB
		}

		engine, err := deduplication.NewEngine(engineCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()

		var source storage.Source
		if _, statErr := os.Stat(serverCfg.DBPath); statErr == nil {
			store, err := sqlite.New(serverCfg.DBPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
				os.Exit(1)
			}
			defer func() { _ = store.Close() }()
			source = store
		} else {
			fmt.Printf("%s No database at %s, GET /api/v1/analyze is disabled\n", yellow("⚠"), serverCfg.DBPath)
		}

		srv, err := api.NewServer(engine, source, serverCfg, version)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s Serving on %s\n", green("✓"), serverCfg.Addr)
		if err := srv.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Snapshot database (overrides server.db_path)")
}
