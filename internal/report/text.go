package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/notecrawl/internal/model"
)

// TextWriter outputs human-readable run summaries.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in human-readable format.
func (w *TextWriter) Write(s model.RunSummary) error {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                    NOTECRAWL RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Run ID:      %s\n", s.RunID)
	fmt.Fprintf(&sb, "Status:      %s\n", stateLabel(s.State))
	fmt.Fprintf(&sb, "Rounds:      %d\n", s.Rounds)
	fmt.Fprintf(&sb, "Duration:    %s\n", s.Duration().Round(time.Second))
	fmt.Fprintf(&sb, "Media:       %s / %s (%.1f%%)\n",
		humanize.Comma(int64(s.FinalCount)), humanize.Comma(int64(s.Target)), s.Progress())
	fmt.Fprintf(&sb, "New media:   %s\n", humanize.Comma(int64(s.NewMedia())))
	fmt.Fprintf(&sb, "Processed:   %s distinct items\n", humanize.Comma(int64(s.Processed)))
	fmt.Fprintf(&sb, "Stored in:   %s\n", s.MediaDir)
	sb.WriteString("\n")

	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("ITEM OUTCOMES\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")
	for _, row := range tallyRows(s.Tally) {
		fmt.Fprintf(&sb, "  %-14s %s\n", row.label+":", humanize.Comma(int64(row.count)))
	}
	fmt.Fprintf(&sb, "  %-14s %s\n", "TOTAL:", humanize.Comma(int64(s.Tally.Total())))
	sb.WriteString("\n")

	_, err := w.output.Write([]byte(sb.String()))
	return err
}

// tallyRow is one line of the outcome table.
type tallyRow struct {
	label string
	count int
}

// tallyRows lists the outcome counters in report order.
func tallyRows(t model.Tally) []tallyRow {
	return []tallyRow{
		{"Stored", t.Stored},
		{"Already seen", t.SkippedSeen},
		{"Not a note", t.SkippedKind},
		{"Filtered", t.Filtered},
		{"Rate limited", t.RateLimited},
		{"Fetch failed", t.FetchFailed},
		{"Errors", t.Errors},
	}
}
