package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/notecrawl/internal/config"
	"github.com/nao1215/notecrawl/internal/database"
	"github.com/nao1215/notecrawl/internal/model"
	"github.com/nao1215/notecrawl/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past crawl runs",
		Long: `History lists past crawl runs from the run database, newest first.

Examples:
  # Show the last 20 runs
  notecrawl history

  # Show every run as a Markdown table
  notecrawl history --limit 0 --markdown`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Number of runs to show (0 shows all)")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Run database directory")
	cmd.Flags().BoolP("json", "j", false, "Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output a Markdown table (mutually exclusive with --json)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	runs, err := loadHistory(cmd, dbDir, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch report.FormatFromFlags(jsonOutput, markdownOutput) {
	case report.FormatJSON:
		return report.NewJSONWriter(out, report.WithPrettyPrint()).WriteHistory(runs)
	case report.FormatMarkdown:
		return report.HistoryMarkdown(out, runs)
	default:
		return report.HistoryText(out, runs)
	}
}

// loadHistory reads runs from the database. A missing database means no
// run has been recorded yet.
func loadHistory(cmd *cobra.Command, dbDir string, limit int) ([]model.RunSummary, error) {
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	records, err := db.ListRuns(cmd.Context(), limit)
	if err != nil {
		return nil, err
	}
	runs := make([]model.RunSummary, len(records))
	for i, rec := range records {
		runs[i] = rec.Summary()
	}
	return runs, nil
}
