package report

import (
	"errors"
	"io"

	"github.com/nao1215/notecrawl/internal/model"
)

// Format selects the output format of a Writer.
type Format string

const (
	// FormatText is the human-readable terminal format.
	FormatText Format = "text"

	// FormatJSON is machine-readable JSON.
	FormatJSON Format = "json"

	// FormatMarkdown is GitHub-flavored Markdown.
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer defines the interface for run summary output.
type Writer interface {
	// Write outputs the run summary to the configured destination.
	Write(summary model.RunSummary) error
}

// MultiWriter writes to multiple Writers.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary model.RunSummary) error {
	for _, w := range m.writers {
		if err := w.Write(summary); err != nil {
			return err
		}
	}
	return nil
}

// FormatFromFlags maps the mutually exclusive --json and --markdown flags to
// a Format. Conflicts are rejected earlier by config validation.
func FormatFromFlags(jsonOutput, markdownOutput bool) Format {
	switch {
	case jsonOutput:
		return FormatJSON
	case markdownOutput:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// NewWriter creates a Writer for format that writes to output.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, ErrUnknownFormat
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// stateLabel returns a short human description of a terminal state.
func stateLabel(state model.TerminalState) string {
	switch state {
	case model.StateCompleted:
		return "Completed (target reached)"
	case model.StateStagnationStopped:
		return "Stopped (no new media)"
	case model.StateUserAborted:
		return "Stopped by operator"
	case model.StateCancelled:
		return "Cancelled"
	default:
		return string(state)
	}
}
