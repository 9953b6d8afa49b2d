package crawl

import (
	"sort"

	"github.com/nao1215/notecrawl/internal/model"
)

// Target is the immutable description of what a run collects.
// It is built once at startup and never mutated by the controller.
type Target struct {
	// Count is the number of media files to reach. Zero means the run
	// completes as soon as it starts.
	Count int

	// Keywords and Sorts define the pairs of a round, keyword-major.
	Keywords []string
	Sorts    []model.SortStrategy

	// Blacklist rejects items whose title or description contains any
	// of its terms.
	Blacklist []string

	// Dir is the media destination directory.
	Dir string

	// Kind selects which media of a detail are stored and counted.
	Kind model.MediaKind

	// Search parameters passed to every search call.
	PageSize    int
	NoteType    model.NoteType
	NoteTime    int
	NoteRange   int
	PosDistance int
	Geo         string
}

// request builds the search request for one pair.
func (t Target) request(keyword string, strategy model.SortStrategy) model.SearchRequest {
	return model.SearchRequest{
		Keyword:     keyword,
		Sort:        strategy,
		PageSize:    t.PageSize,
		NoteType:    t.NoteType,
		NoteTime:    t.NoteTime,
		NoteRange:   t.NoteRange,
		PosDistance: t.PosDistance,
		Geo:         t.Geo,
	}
}

// SeenSet holds the IDs of items processed in this run.
// An ID is added at most once.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet returns an empty SeenSet.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Add inserts id and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id has been added.
func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of IDs in the set.
func (s *SeenSet) Len() int {
	return len(s.ids)
}

// IDs returns the IDs in sorted order.
func (s *SeenSet) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StagnationTracker counts consecutive rounds that added no media.
type StagnationTracker struct {
	threshold   int
	consecutive int
}

// NewStagnationTracker returns a tracker that is reached after threshold
// consecutive empty rounds. A threshold below 1 is treated as 1.
func NewStagnationTracker(threshold int) *StagnationTracker {
	if threshold < 1 {
		threshold = 1
	}
	return &StagnationTracker{threshold: threshold}
}

// Observe records the result of a round and reports whether the threshold
// is now reached. Any positive delta resets the count.
func (t *StagnationTracker) Observe(newMedia int) bool {
	if newMedia > 0 {
		t.consecutive = 0
		return false
	}
	t.consecutive++
	return t.Reached()
}

// Reached reports whether the threshold has been hit.
func (t *StagnationTracker) Reached() bool {
	return t.consecutive >= t.threshold
}

// Consecutive returns the current number of consecutive empty rounds.
func (t *StagnationTracker) Consecutive() int {
	return t.consecutive
}

// Threshold returns the configured threshold.
func (t *StagnationTracker) Threshold() int {
	return t.threshold
}

// Reset clears the count, used when the operator chooses to continue.
func (t *StagnationTracker) Reset() {
	t.consecutive = 0
}

// RoundState describes one finished round.
type RoundState struct {
	// Number is the 1-based round number.
	Number int

	// StartCount and EndCount are the media counts at the round boundaries.
	StartCount int
	EndCount   int

	// Tally aggregates the item outcomes of the round.
	Tally model.Tally
}

// NewMedia returns the media count delta of the round.
func (r RoundState) NewMedia() int {
	return r.EndCount - r.StartCount
}

// Progress is the snapshot handed to a Decider.
type Progress struct {
	Round            int
	Count            int
	Target           int
	ConsecutiveNoNew int
	Processed        int
}

// Percent returns the completion percentage.
func (p Progress) Percent() float64 {
	return model.Percent(p.Count, p.Target)
}
