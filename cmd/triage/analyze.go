package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/deskops/mailtriage/internal/deduplication"
	"github.com/deskops/mailtriage/internal/storage"
	"github.com/deskops/mailtriage/internal/storage/sqlite"
)

const subjectWidth = 48

var (
	analyzeFile string
	analyzeDB   string
	analyzeJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Group emails and recommend skip, link or create for each group",
	Long: `Run cross analysis over a snapshot of emails and tickets.

The snapshot is read from --file, or from the database given by --db.
Without either, the database is discovered from TRIAGE_DB_PATH,
./triage.db or ./.triage/triage.db.

Examples:
  triage analyze --file snapshot.json
  triage analyze --db .triage/triage.db
  triage analyze --json > result.json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		_, engineCfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		engine, err := deduplication.NewEngine(engineCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		snap, err := readInput(ctx, analyzeFile, analyzeDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		result, err := engine.CrossAnalyze(ctx, snap.Emails, snap.Tickets)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: analysis failed: %v\n", err)
			os.Exit(1)
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to encode result: %v\n", err)
				os.Exit(1)
			}
			return
		}
		printResult(os.Stdout, result)
	},
}

// readInput loads the snapshot from a JSON file or from a database
func readInput(ctx context.Context, file, db string) (*storage.Snapshot, error) {
	if file != "" && db != "" {
		return nil, fmt.Errorf("--file and --db are mutually exclusive")
	}
	if file != "" {
		return storage.ReadSnapshotFile(file)
	}

	dbPath, err := resolveDatabase(db)
	if err != nil {
		return nil, err
	}
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()
	return storage.LoadSnapshot(ctx, store)
}

func printResult(w io.Writer, result *deduplication.Result) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n\n", cyan("Cross Analysis"))

	if len(result.GroupsWithMatches) == 0 {
		fmt.Fprintf(w, "  %s\n\n", gray("No emails to analyze"))
	} else {
		table := tablewriter.NewTable(w,
			tablewriter.WithConfig(tablewriter.Config{
				Row: tw.CellConfig{
					Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
					Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				},
				Header: tw.CellConfig{
					Formatting: tw.CellFormatting{AutoFormat: tw.On},
					Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				},
			}),
			tablewriter.WithRendition(tw.Rendition{
				Borders: tw.BorderNone,
				Settings: tw.Settings{
					Separators: tw.Separators{ShowHeader: tw.Off},
				},
			}),
		)
		table.Header([]string{"#", "Action", "Emails", "Subject", "Ticket", "Score", "Priority"})
		rows := make([][]string, 0, len(result.GroupsWithMatches))
		for i := range result.GroupsWithMatches {
			rows = append(rows, groupRow(i+1, &result.GroupsWithMatches[i]))
		}
		table.Bulk(rows)
		table.Render()
		fmt.Fprintln(w)

		for i, gm := range result.GroupsWithMatches {
			fmt.Fprintf(w, "  %s %s\n", gray(fmt.Sprintf("%d.", i+1)), gm.Reason)
		}
		fmt.Fprintln(w)
	}

	s := result.Stats
	fmt.Fprintf(w, "%s %d email(s) in %d group(s) against %d ticket(s)\n", cyan("Summary:"), s.TotalEmails, s.TotalGroups, s.TotalTickets)
	fmt.Fprintf(w, "  %s %d   %s %d   %s %d\n",
		recommendationLabel(deduplication.RecommendSkip), s.SkipCount,
		recommendationLabel(deduplication.RecommendLink), s.LinkCount,
		recommendationLabel(deduplication.RecommendCreate), s.CreateCount)

	if len(result.Rejected) > 0 {
		fmt.Fprintf(w, "\n%s Rejected %d email(s) and %d ticket(s):\n", yellow("⚠"), s.RejectedEmails, s.RejectedTickets)
		for _, r := range result.Rejected {
			fmt.Fprintf(w, "  %s\n", rejectionLine(r))
		}
	}
	fmt.Fprintln(w)
}

// groupRow renders one group as a table row
func groupRow(n int, gm *deduplication.GroupMatches) []string {
	ticket, score := "-", "-"
	if len(gm.Matches) > 0 {
		best := gm.Matches[0]
		ticket = best.Ticket.ID
		score = fmt.Sprintf("%d (%s)", best.SimilarityScore, best.Confidence)
	}
	return []string{
		strconv.Itoa(n),
		recommendationLabel(gm.Recommendation),
		strconv.Itoa(gm.Group.Size()),
		truncate(gm.Group.PrimaryEmail.Subject, subjectWidth),
		ticket,
		score,
		gm.Group.SuggestedPriority,
	}
}

func recommendationLabel(r deduplication.Recommendation) string {
	label := strings.ToUpper(string(r))
	switch r {
	case deduplication.RecommendSkip:
		return color.New(color.FgHiBlack).Sprint(label)
	case deduplication.RecommendLink:
		return color.New(color.FgYellow).Sprint(label)
	case deduplication.RecommendCreate:
		return color.New(color.FgGreen).Sprint(label)
	default:
		return label
	}
}

func rejectionLine(r deduplication.Rejection) string {
	id := r.ID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("%s #%d %s: %s", r.Kind, r.Index, id, r.Reason)
}

// truncate shortens s to at most width runes, marking the cut with "..."
func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "JSON snapshot to analyze")
	analyzeCmd.Flags().StringVar(&analyzeDB, "db", "", "Database to analyze (default: discovered)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the full result as JSON")
}
