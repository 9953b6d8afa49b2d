package report

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/notecrawl/internal/crawl"
	"github.com/nao1215/notecrawl/internal/model"
)

// ConsoleReporter prints a progress line after every round and the run
// summary at the end. It satisfies crawl.Reporter.
type ConsoleReporter struct {
	progress io.Writer
	summary  Writer
	target   int
	err      error
}

// NewConsoleReporter creates a reporter that writes round progress to
// progress and the final summary to summary. A nil progress writer
// suppresses round lines.
func NewConsoleReporter(progress io.Writer, summary Writer, target int) *ConsoleReporter {
	return &ConsoleReporter{
		progress: progress,
		summary:  summary,
		target:   target,
	}
}

// RoundFinished prints one line for the finished round.
func (r *ConsoleReporter) RoundFinished(_ context.Context, round crawl.RoundState) {
	if r.progress == nil {
		return
	}
	_, err := fmt.Fprintf(r.progress, "round %d: %s/%s media (%.1f%%), %+d new, %d items\n",
		round.Number,
		humanize.Comma(int64(round.EndCount)),
		humanize.Comma(int64(r.target)),
		model.Percent(round.EndCount, r.target),
		round.NewMedia(),
		round.Tally.Total(),
	)
	r.keep(err)
}

// RunFinished writes the run summary.
func (r *ConsoleReporter) RunFinished(_ context.Context, summary model.RunSummary) {
	if r.summary == nil {
		return
	}
	r.keep(r.summary.Write(summary))
}

// Err returns the first write error, if any.
func (r *ConsoleReporter) Err() error {
	return r.err
}

func (r *ConsoleReporter) keep(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}

// MultiReporter fans events out to several reporters in order.
type MultiReporter []crawl.Reporter

// RoundFinished forwards the event.
func (m MultiReporter) RoundFinished(ctx context.Context, round crawl.RoundState) {
	for _, r := range m {
		r.RoundFinished(ctx, round)
	}
}

// RunFinished forwards the event.
func (m MultiReporter) RunFinished(ctx context.Context, summary model.RunSummary) {
	for _, r := range m {
		r.RunFinished(ctx, summary)
	}
}
