package crawl

import (
	"context"

	"github.com/nao1215/notecrawl/internal/model"
)

// Searcher runs one search call.
//
// A call that reaches the service but is rejected returns a nil error and a
// Status with Success == false. The error return is reserved for transport
// failures.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest) ([]model.Item, model.Status, error)
}

// DetailFetcher looks up the full detail of a search result.
type DetailFetcher interface {
	Detail(ctx context.Context, item model.Item) (*model.Detail, model.Status, error)
}

// MediaStore persists the media of a detail below dir.
// Implementations must not leave partially written files that the
// MediaCounter would count.
type MediaStore interface {
	Store(ctx context.Context, detail *model.Detail, dir string, kind model.MediaKind) error
}

// MediaCounter reports how many media files exist below dir.
// A missing directory counts as zero.
type MediaCounter interface {
	CountMedia(dir string) (int, error)
}

// Decider is asked whether to keep going once the stagnation threshold is
// reached. Returning false ends the run as user aborted.
type Decider interface {
	ShouldContinueAfterStagnation(ctx context.Context, progress Progress) bool
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, progress Progress) bool

// ShouldContinueAfterStagnation calls f.
func (f DeciderFunc) ShouldContinueAfterStagnation(ctx context.Context, progress Progress) bool {
	return f(ctx, progress)
}

// SeenJournal persists processed item IDs across runs.
// Load is called once before the first round; Record is called each time
// an ID is added to the SeenSet.
type SeenJournal interface {
	Load(ctx context.Context) ([]string, error)
	Record(ctx context.Context, id string) error
}

// Reporter receives progress events. Both methods are called from the
// controller goroutine and must not block for long.
type Reporter interface {
	RoundFinished(ctx context.Context, round RoundState)
	RunFinished(ctx context.Context, summary model.RunSummary)
}
