package model

// ItemOutcome is the result of processing one search result item.
// Every item handled by the crawl controller ends in exactly one outcome,
// so failures stay observable instead of being silently discarded.
type ItemOutcome int

const (
	// OutcomeStored means the detail was fetched and handed to the sink.
	OutcomeStored ItemOutcome = iota

	// OutcomeSkippedSeen means the item was already processed in this run.
	OutcomeSkippedSeen

	// OutcomeSkippedKind means the result was not a note.
	OutcomeSkippedKind

	// OutcomeFiltered means the item matched the content blacklist.
	OutcomeFiltered

	// OutcomeRateLimited means the detail call was throttled.
	OutcomeRateLimited

	// OutcomeFetchFailed means the detail call failed or returned no usable media.
	OutcomeFetchFailed

	// OutcomeError means an unexpected error occurred while handling the item.
	OutcomeError
)

// String returns the outcome name used in logs and reports.
func (o ItemOutcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeSkippedSeen:
		return "skipped_seen"
	case OutcomeSkippedKind:
		return "skipped_kind"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Tally counts item outcomes.
type Tally struct {
	Stored      int `json:"stored"`
	SkippedSeen int `json:"skipped_seen"`
	SkippedKind int `json:"skipped_kind"`
	Filtered    int `json:"filtered"`
	RateLimited int `json:"rate_limited"`
	FetchFailed int `json:"fetch_failed"`
	Errors      int `json:"errors"`
}

// Record increments the counter for the given outcome.
func (t *Tally) Record(o ItemOutcome) {
	switch o {
	case OutcomeStored:
		t.Stored++
	case OutcomeSkippedSeen:
		t.SkippedSeen++
	case OutcomeSkippedKind:
		t.SkippedKind++
	case OutcomeFiltered:
		t.Filtered++
	case OutcomeRateLimited:
		t.RateLimited++
	case OutcomeFetchFailed:
		t.FetchFailed++
	case OutcomeError:
		t.Errors++
	}
}

// Add folds another tally into t.
func (t *Tally) Add(other Tally) {
	t.Stored += other.Stored
	t.SkippedSeen += other.SkippedSeen
	t.SkippedKind += other.SkippedKind
	t.Filtered += other.Filtered
	t.RateLimited += other.RateLimited
	t.FetchFailed += other.FetchFailed
	t.Errors += other.Errors
}

// Total returns the number of items recorded.
func (t Tally) Total() int {
	return t.Stored + t.SkippedSeen + t.SkippedKind + t.Filtered +
		t.RateLimited + t.FetchFailed + t.Errors
}
