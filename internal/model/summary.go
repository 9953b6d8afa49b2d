package model

import "time"

// TerminalState is the state a crawl run ends in.
type TerminalState string

const (
	// StateCompleted means the media target was reached.
	StateCompleted TerminalState = "completed"

	// StateStagnationStopped means too many consecutive rounds produced no new
	// media and no operator was available to decide.
	StateStagnationStopped TerminalState = "stagnation_stopped"

	// StateUserAborted means the operator declined to continue after stagnation.
	StateUserAborted TerminalState = "user_aborted"

	// StateCancelled means the run context was cancelled.
	StateCancelled TerminalState = "cancelled"
)

// RunSummary describes a finished crawl run.
type RunSummary struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run reached its terminal state.
	FinishedAt time.Time `json:"finished_at"`

	// State is the terminal state of the run.
	State TerminalState `json:"state"`

	// Rounds is the number of search rounds started.
	Rounds int `json:"rounds"`

	// Target is the requested media count.
	Target int `json:"target"`

	// InitialCount is the media count found on disk before the first round.
	InitialCount int `json:"initial_count"`

	// FinalCount is the media count on disk when the run ended.
	FinalCount int `json:"final_count"`

	// Processed is the number of distinct item identifiers processed.
	Processed int `json:"processed"`

	// Tally aggregates item outcomes across the run.
	Tally Tally `json:"tally"`

	// MediaDir is where media was stored.
	MediaDir string `json:"media_dir"`
}

// Percent returns the completion percentage of count against target.
// A non-positive target counts as complete.
func Percent(count, target int) float64 {
	if target <= 0 {
		return 100
	}
	return float64(count) / float64(target) * 100
}

// Progress returns the completion percentage of the run.
func (s RunSummary) Progress() float64 {
	return Percent(s.FinalCount, s.Target)
}

// NewMedia returns how many media files were added during the run.
func (s RunSummary) NewMedia() int {
	return s.FinalCount - s.InitialCount
}

// Duration returns the wall-clock duration of the run.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
