package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/notecrawl/internal/crawl"
)

// promptDecider asks the operator on the terminal whether a stagnated run
// should continue. It satisfies crawl.Decider.
type promptDecider struct {
	in  *bufio.Reader
	out io.Writer
}

// newPromptDecider creates a decider reading answers from in.
func newPromptDecider(in io.Reader, out io.Writer) *promptDecider {
	return &promptDecider{in: bufio.NewReader(in), out: out}
}

// ShouldContinueAfterStagnation prints the progress and reads a y/n answer.
// Anything but an explicit yes stops the run, including EOF and a
// cancelled context.
func (d *promptDecider) ShouldContinueAfterStagnation(ctx context.Context, p crawl.Progress) bool {
	fmt.Fprintf(d.out, "\nNo new media for %d consecutive rounds (round %d, %d/%d, %.1f%%, %d items processed).\n",
		p.ConsecutiveNoNew, p.Round, p.Count, p.Target, p.Percent(), p.Processed)
	fmt.Fprint(d.out, "Continue crawling? [y/N]: ")

	// On cancellation the reader goroutine stays blocked until stdin is
	// closed. The run ends right after a cancelled prompt, so it exits with
	// the process.
	answer := make(chan string, 1)
	go func() {
		line, err := d.in.ReadString('\n')
		if err != nil && line == "" {
			close(answer)
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(d.out)
		return false
	case line, ok := <-answer:
		if !ok {
			fmt.Fprintln(d.out)
			return false
		}
		return isYes(line)
	}
}

// isYes reports whether an answer means yes.
func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
