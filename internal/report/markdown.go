package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/notecrawl/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format.
// This format is designed for sharing a run's result in an issue or a
// dataset README.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s model.RunSummary) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("notecrawl Run Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.RunID + "`"},
			{"Status", stateLabel(s.State)},
			{"Started", formatTime(s.StartedAt)},
			{"Duration", s.Duration().Round(time.Second).String()},
			{"Rounds", strconv.Itoa(s.Rounds)},
			{"Media", fmt.Sprintf("%s / %s (%.1f%%)", humanize.Comma(int64(s.FinalCount)), humanize.Comma(int64(s.Target)), s.Progress())},
			{"New media", humanize.Comma(int64(s.NewMedia()))},
			{"Processed items", humanize.Comma(int64(s.Processed))},
			{"Media directory", "`" + s.MediaDir + "`"},
		},
	})
	md.PlainText("")

	w.writeAlert(md, s)
	w.writeOutcomes(md, s.Tally)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by notecrawl*")

	return md.Build()
}

// writeAlert writes an alert describing how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s model.RunSummary) {
	switch s.State {
	case model.StateCompleted:
		md.Tip("Target reached.")
	case model.StateStagnationStopped:
		md.Note(fmt.Sprintf("No new media for several rounds; the run stopped at %.1f%% of the target.", s.Progress()))
	case model.StateUserAborted:
		md.Importantf("The operator stopped the run at %.1f%% of the target.", s.Progress())
	case model.StateCancelled:
		md.Warningf("The run was cancelled at %.1f%% of the target.", s.Progress())
	}
	md.PlainText("")

	if s.Tally.RateLimited > 0 {
		md.Cautionf("%d detail request(s) were throttled. Consider longer pauses.", s.Tally.RateLimited)
		md.PlainText("")
	}
}

// writeOutcomes writes the outcome table and its distribution chart.
func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, t model.Tally) {
	md.H2("Item Outcomes")
	md.PlainText("")

	rows := make([][]string, 0, 8)
	for _, row := range tallyRows(t) {
		rows = append(rows, []string{row.label, strconv.Itoa(row.count)})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(t.Total()) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if t.Total() == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Item Outcome Distribution"),
		piechart.WithShowData(true),
	)
	for _, row := range tallyRows(t) {
		if row.count > 0 {
			chart.LabelAndIntValue(row.label, uint64(row.count)) //nolint:gosec // counts are non-negative
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// HistoryMarkdown renders past runs as a Markdown table, newest first as
// given.
func HistoryMarkdown(output io.Writer, runs []model.RunSummary) error {
	md := markdown.NewMarkdown(output)

	md.H1("notecrawl Run History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return md.Build()
	}

	rows := make([][]string, len(runs))
	for i, s := range runs {
		rows[i] = []string{
			"`" + shortID(s.RunID) + "`",
			formatTime(s.StartedAt),
			runState(s),
			strconv.Itoa(s.Rounds),
			fmt.Sprintf("%d / %d", s.FinalCount, s.Target),
			strconv.Itoa(s.NewMedia()),
			strconv.Itoa(s.Processed),
			s.Duration().Round(time.Second).String(),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "State", "Rounds", "Media", "New", "Processed", "Duration"},
		Rows:   rows,
	})
	return md.Build()
}

// HistoryText renders past runs as plain text lines.
func HistoryText(output io.Writer, runs []model.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(output, "No runs recorded.")
		return err
	}
	for _, s := range runs {
		started := "-"
		if !s.StartedAt.IsZero() {
			started = humanize.Time(s.StartedAt)
		}
		_, err := fmt.Fprintf(output, "%s  %-18s  %s/%s media  +%d  %d rounds  started %s\n",
			shortID(s.RunID),
			runState(s),
			humanize.Comma(int64(s.FinalCount)),
			humanize.Comma(int64(s.Target)),
			s.NewMedia(),
			s.Rounds,
			started,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// runState returns the stored state, or "running" for unfinished runs.
func runState(s model.RunSummary) string {
	if s.State == "" {
		return "running"
	}
	return string(s.State)
}

// shortID shortens a UUID to its first block.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}
