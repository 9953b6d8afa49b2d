package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/notecrawl/internal/model"
)

// JSONWriter outputs run summaries in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONSummary is the JSON document for one run.
// Derived values are included so consumers do not need to recompute them.
type JSONSummary struct {
	model.RunSummary

	// ProgressPercent is FinalCount relative to Target.
	ProgressPercent float64 `json:"progress_percent"`

	// NewMedia is the number of files added by the run.
	NewMedia int `json:"new_media"`

	// DurationSeconds is the wall-clock duration of the run.
	DurationSeconds float64 `json:"duration_seconds"`
}

// NewJSONSummary wraps a summary with its derived values.
func NewJSONSummary(s model.RunSummary) JSONSummary {
	return JSONSummary{
		RunSummary:      s,
		ProgressPercent: s.Progress(),
		NewMedia:        s.NewMedia(),
		DurationSeconds: s.Duration().Seconds(),
	}
}

// Write outputs the summary in JSON format.
func (w *JSONWriter) Write(s model.RunSummary) error {
	return w.writeJSON(NewJSONSummary(s))
}

// WriteHistory outputs a list of runs as a JSON array.
func (w *JSONWriter) WriteHistory(runs []model.RunSummary) error {
	docs := make([]JSONSummary, len(runs))
	for i, s := range runs {
		docs[i] = NewJSONSummary(s)
	}
	return w.writeJSON(docs)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) error {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	// Trailing newline for terminal output.
	data = append(data, '\n')
	_, err = w.output.Write(data)
	return err
}
