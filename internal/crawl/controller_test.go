package crawl

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/nao1215/notecrawl/internal/model"
)

// TestNewController tests constructor validation.
func TestNewController(t *testing.T) {
	t.Parallel()

	t.Run("nil collaborator is rejected", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.target.Dir = t.TempDir()
		_, err := NewController(h.target, nil, h.details, h.store, h.disk)
		if !errors.Is(err, ErrNilCollaborator) {
			t.Errorf("expected ErrNilCollaborator, got %v", err)
		}
	})

	t.Run("target without sorts is rejected", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.target.Sorts = nil
		if _, err := h.controller(t.TempDir()); !errors.Is(err, ErrNoPairs) {
			t.Errorf("expected ErrNoPairs, got %v", err)
		}
	})

	t.Run("target without directory is rejected", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		if _, err := h.controller(""); !errors.Is(err, ErrEmptyMediaDir) {
			t.Errorf("expected ErrEmptyMediaDir, got %v", err)
		}
	})
}

// TestController_CompletesWithoutNetwork covers runs whose target is met
// before the first round.
func TestController_CompletesWithoutNetwork(t *testing.T) {
	t.Parallel()

	t.Run("zero target with empty directory", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.target.Count = 0
		c, err := h.controller(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}

		summary, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.State != model.StateCompleted {
			t.Errorf("expected completed, got %s", summary.State)
		}
		if len(h.searcher.calls) != 0 || len(h.details.calls) != 0 {
			t.Errorf("expected no network calls, got %d searches and %d details",
				len(h.searcher.calls), len(h.details.calls))
		}
		if summary.Rounds != 0 {
			t.Errorf("expected 0 rounds, got %d", summary.Rounds)
		}
	})

	t.Run("existing count equals target", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.target.Count = 5
		h.disk.count = 5
		c, err := h.controller(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}

		summary, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.State != model.StateCompleted {
			t.Errorf("expected completed, got %s", summary.State)
		}
		if len(h.searcher.calls) != 0 {
			t.Errorf("expected no search calls, got %d", len(h.searcher.calls))
		}
		if summary.InitialCount != 5 || summary.FinalCount != 5 {
			t.Errorf("unexpected counts: %d -> %d", summary.InitialCount, summary.FinalCount)
		}
	})
}

// TestController_AllItemsSeen covers a search whose results were all
// processed before.
func TestController_AllItemsSeen(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.searcher.results[pairKey("kw", model.SortGeneral)] = notes("a", "b", "c")
	journal := &memoryJournal{initial: []string{"a", "b", "c"}}

	t.Run("cycle succeeds without detail calls", func(t *testing.T) {
		t.Parallel()

		c, err := h.controller(t.TempDir(), WithJournal(journal))
		if err != nil {
			t.Fatal(err)
		}
		for _, id := range journal.initial {
			c.seen.Add(id)
		}

		var tally model.Tally
		if ok := c.searchAndDownload(context.Background(), "kw", model.SortGeneral, &tally); !ok {
			t.Error("expected cycle to report success")
		}
		if len(h.details.calls) != 0 {
			t.Errorf("expected no detail calls, got %v", h.details.calls)
		}
		if tally.SkippedSeen != 3 {
			t.Errorf("expected 3 skipped items, got %d", tally.SkippedSeen)
		}
	})

	t.Run("round counts toward stagnation", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.searcher.results[pairKey("kw", model.SortGeneral)] = notes("a", "b", "c")
		reporter := &recordingReporter{}
		c, err := h.controller(t.TempDir(),
			WithJournal(&memoryJournal{initial: []string{"a", "b", "c"}}),
			WithMaxNoNewRounds(1),
			WithReporter(reporter),
		)
		if err != nil {
			t.Fatal(err)
		}

		summary, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.State != model.StateStagnationStopped {
			t.Errorf("expected stagnation_stopped, got %s", summary.State)
		}
		if summary.Rounds != 1 {
			t.Errorf("expected 1 round, got %d", summary.Rounds)
		}
		if c.stagnation.Consecutive() != 1 {
			t.Errorf("expected stagnation count 1, got %d", c.stagnation.Consecutive())
		}
		if len(reporter.rounds) != 1 || reporter.rounds[0].NewMedia() != 0 {
			t.Errorf("unexpected reported rounds: %+v", reporter.rounds)
		}
		if summary.Processed != 0 {
			t.Errorf("expected 0 processed items, got %d", summary.Processed)
		}
	})
}

// TestController_RateLimitMidCycle covers throttling on the second of
// three items.
func TestController_RateLimitMidCycle(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.details.respond = func(item model.Item) (*model.Detail, model.Status, error) {
		if item.ID == "n2" {
			return nil, model.Failed(300013, "访问频次异常，请勿频繁操作"), nil
		}
		return imageDetail(item.ID), model.OK(), nil
	}
	h.searcher.results[pairKey("kw", model.SortGeneral)] = notes("n1", "n2", "n3")
	c, err := h.controller(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var tally model.Tally
	ok := c.searchAndDownload(context.Background(), "kw", model.SortGeneral, &tally)

	if ok {
		t.Error("expected cycle to report failure")
	}
	if n := h.sleeper.count(PauseRateLimit); n != 1 {
		t.Errorf("expected 1 cooldown, got %d", n)
	}
	if !slices.Equal(h.details.calls, []string{"n1", "n2", "n3"}) {
		t.Errorf("expected every item to be attempted, got %v", h.details.calls)
	}
	if tally.RateLimited != 1 || tally.Stored != 2 {
		t.Errorf("unexpected tally: %+v", tally)
	}

	t.Run("cooldown happens before the next item", func(t *testing.T) {
		want := []string{
			"search:kw/general",
			"detail:n1", "store:n1", "sleep:item",
			"detail:n2", "sleep:rate_limit",
			"detail:n3", "store:n3", "sleep:item",
		}
		if !slices.Equal(h.rec.events, want) {
			t.Errorf("unexpected event order:\n got %v\nwant %v", h.rec.events, want)
		}
	})
}

// TestController_InterruptedDetail tests that a detail call failing
// because the run was cancelled is not mistaken for throttling.
func TestController_InterruptedDetail(t *testing.T) {
	t.Parallel()

	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.details.respond = func(item model.Item) (*model.Detail, model.Status, error) {
		cancel()
		return nil, model.Status{}, fmt.Errorf("rate limiter: %w", context.Canceled)
	}
	h.searcher.results[pairKey("kw", model.SortGeneral)] = notes("n1", "n2")
	c, err := h.controller(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var tally model.Tally
	ok := c.searchAndDownload(ctx, "kw", model.SortGeneral, &tally)

	if !ok {
		t.Error("expected an interrupted cycle not to report throttling")
	}
	if n := h.sleeper.count(PauseRateLimit); n != 0 {
		t.Errorf("expected no cooldown, got %d", n)
	}
	if tally.RateLimited != 0 || tally.FetchFailed != 1 {
		t.Errorf("unexpected tally: %+v", tally)
	}
	if !slices.Equal(h.details.calls, []string{"n1"}) {
		t.Errorf("expected no detail call after cancellation, got %v", h.details.calls)
	}
}

// TestController_Dedup tests that an item returned by several pairs is
// fetched once.
func TestController_Dedup(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.target.Sorts = []model.SortStrategy{model.SortGeneral, model.SortLatest}
	h.target.Count = 2
	h.searcher.results[pairKey("kw", model.SortGeneral)] = notes("same")
	h.searcher.results[pairKey("kw", model.SortLatest)] = notes("same", "other")
	journal := &memoryJournal{}
	c, err := h.controller(t.TempDir(), WithJournal(journal))
	if err != nil {
		t.Fatal(err)
	}

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(h.details.calls, []string{"same", "other"}) {
		t.Errorf("expected one detail call per id, got %v", h.details.calls)
	}
	if summary.Tally.SkippedSeen != 1 {
		t.Errorf("expected 1 skipped item, got %d", summary.Tally.SkippedSeen)
	}
	if summary.Processed != 2 {
		t.Errorf("expected 2 processed items, got %d", summary.Processed)
	}
	if !slices.Equal(journal.recorded, []string{"same", "other"}) {
		t.Errorf("expected journal to record each id once, got %v", journal.recorded)
	}
}

// TestController_StopsAtTarget tests that no detail is fetched once the
// target is reached.
func TestController_StopsAtTarget(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.target.Count = 2
	h.target.Keywords = []string{"kw", "second"}
	h.searcher.results[pairKey("kw", model.SortGeneral)] = notes("n1", "n2", "n3", "n4", "n5")
	c, err := h.controller(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.State != model.StateCompleted {
		t.Errorf("expected completed, got %s", summary.State)
	}
	if len(h.details.calls) != 2 {
		t.Errorf("expected 2 detail calls, got %v", h.details.calls)
	}
	if len(h.searcher.calls) != 1 {
		t.Errorf("expected the second keyword not to be searched, got %d searches", len(h.searcher.calls))
	}
	if summary.FinalCount != 2 || summary.NewMedia() != 2 {
		t.Errorf("unexpected final count %d", summary.FinalCount)
	}
}

// TestController_Blacklist tests that filtered items are never fetched.
func TestController_Blacklist(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.target.Blacklist = []string{"广告", "giveaway"}
	items := []model.Item{
		{ID: "ad1", Kind: model.ItemKindNote, Title: "限时广告"},
		{ID: "ad2", Kind: model.ItemKindNote, Description: "Big ＧＩＶＥＡＷＡＹ today"},
		{ID: "ok", Kind: model.ItemKindNote, Title: "糖尿病足护理"},
	}
	h.searcher.results[pairKey("kw", model.SortGeneral)] = items
	c, err := h.controller(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var tally model.Tally
	c.searchAndDownload(context.Background(), "kw", model.SortGeneral, &tally)

	if !slices.Equal(h.details.calls, []string{"ok"}) {
		t.Errorf("expected only the clean item to be fetched, got %v", h.details.calls)
	}
	if tally.Filtered != 2 {
		t.Errorf("expected 2 filtered items, got %d", tally.Filtered)
	}
	if !c.seen.Has("ad1") {
		t.Error("expected filtered items to be marked seen")
	}
}

// TestController_Stagnation tests the termination paths after empty rounds.
func TestController_Stagnation(t *testing.T) {
	t.Parallel()

	t.Run("stops after exactly the threshold", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		c, err := h.controller(t.TempDir(), WithMaxNoNewRounds(3))
		if err != nil {
			t.Fatal(err)
		}

		summary, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.State != model.StateStagnationStopped {
			t.Errorf("expected stagnation_stopped, got %s", summary.State)
		}
		if summary.Rounds != 3 {
			t.Errorf("expected 3 rounds, got %d", summary.Rounds)
		}
	})

	t.Run("a productive round resets the count", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		// The first round stores one note, later rounds see it again.
		h.searcher.results[pairKey("kw", model.SortGeneral)] = notes("n1")
		c, err := h.controller(t.TempDir(), WithMaxNoNewRounds(2))
		if err != nil {
			t.Fatal(err)
		}

		summary, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Rounds != 3 {
			t.Errorf("expected 3 rounds, got %d", summary.Rounds)
		}
	})

	t.Run("decider continue resets and decider stop aborts", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		var asked []Progress
		decider := DeciderFunc(func(_ context.Context, p Progress) bool {
			asked = append(asked, p)
			return len(asked) == 1
		})
		c, err := h.controller(t.TempDir(), WithMaxNoNewRounds(2), WithDecider(decider))
		if err != nil {
			t.Fatal(err)
		}

		summary, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.State != model.StateUserAborted {
			t.Errorf("expected user_aborted, got %s", summary.State)
		}
		if summary.Rounds != 4 {
			t.Errorf("expected 4 rounds, got %d", summary.Rounds)
		}
		if len(asked) != 2 {
			t.Fatalf("expected decider to be asked twice, got %d", len(asked))
		}
		if asked[0].Round != 2 || asked[0].ConsecutiveNoNew != 2 {
			t.Errorf("unexpected progress: %+v", asked[0])
		}
	})
}

// TestController_PairPauses tests which pause follows each pair.
func TestController_PairPauses(t *testing.T) {
	t.Parallel()

	t.Run("search error uses the failure pause without cooldown", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.searcher.err = errNetwork
		c, err := h.controller(t.TempDir(), WithMaxNoNewRounds(1))
		if err != nil {
			t.Fatal(err)
		}

		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(h.sleeper.pauses, []Pause{PausePairFailure}) {
			t.Errorf("unexpected pauses: %v", h.sleeper.pauses)
		}
	})

	t.Run("rejected search uses the failure pause", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.searcher.status = model.Failed(461, "blocked")
		c, err := h.controller(t.TempDir(), WithMaxNoNewRounds(1))
		if err != nil {
			t.Fatal(err)
		}

		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.sleeper.count(PausePairFailure) != 1 || h.sleeper.count(PauseRateLimit) != 0 {
			t.Errorf("unexpected pauses: %v", h.sleeper.pauses)
		}
	})

	t.Run("successful pairs use the success pause in keyword-major order", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.target.Keywords = []string{"a", "b"}
		h.target.Sorts = []model.SortStrategy{model.SortGeneral, model.SortMostLiked}
		c, err := h.controller(t.TempDir(), WithMaxNoNewRounds(1))
		if err != nil {
			t.Fatal(err)
		}

		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var order []string
		for _, req := range h.searcher.calls {
			order = append(order, pairKey(req.Keyword, req.Sort))
		}
		want := []string{"a/general", "a/most_liked", "b/general", "b/most_liked"}
		if !slices.Equal(order, want) {
			t.Errorf("expected %v, got %v", want, order)
		}
		if h.sleeper.count(PausePairSuccess) != 4 {
			t.Errorf("expected 4 success pauses, got %v", h.sleeper.pauses)
		}
	})
}

// TestController_ItemOutcomes tests per-item failure handling.
func TestController_ItemOutcomes(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.details.respond = func(item model.Item) (*model.Detail, model.Status, error) {
		switch item.ID {
		case "broken":
			return nil, model.Status{}, errNetwork
		case "video":
			return &model.Detail{ID: item.ID, Type: "video", VideoURL: "https://v.local/1.mp4"}, model.OK(), nil
		case "missing":
			return nil, model.Failed(-1, "note not found"), nil
		default:
			return imageDetail(item.ID), model.OK(), nil
		}
	}
	h.store.panicOn = "boom"
	h.store.failFor["disk-full"] = errors.New("no space left on device")
	items := append(notes("broken", "video", "missing", "boom", "disk-full", "good"),
		model.Item{ID: "u1", Kind: model.ItemKindUser},
		model.Item{ID: "q1", Kind: model.ItemKindQuery},
	)
	h.searcher.results[pairKey("kw", model.SortGeneral)] = items
	c, err := h.controller(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var tally model.Tally
	if ok := c.searchAndDownload(context.Background(), "kw", model.SortGeneral, &tally); !ok {
		t.Error("expected cycle to report success")
	}

	want := model.Tally{Stored: 1, SkippedKind: 2, FetchFailed: 3, Errors: 2}
	if tally != want {
		t.Errorf("expected %+v, got %+v", want, tally)
	}
	if !slices.Equal(h.store.stored, []string{"good"}) {
		t.Errorf("expected only good to be stored, got %v", h.store.stored)
	}
}

// TestController_Cancellation tests that cancellation ends the run with
// the context error and a summary.
func TestController_Cancellation(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.searcher.results[pairKey("kw", model.SortGeneral)] = notes("n1", "n2")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sleeper.onSleep = func(int) { cancel() }

	reporter := &recordingReporter{}
	c, err := h.controller(t.TempDir(), WithReporter(reporter))
	if err != nil {
		t.Fatal(err)
	}

	summary, err := c.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if summary.State != model.StateCancelled {
		t.Errorf("expected cancelled, got %s", summary.State)
	}
	if !slices.Equal(h.store.stored, []string{"n1"}) {
		t.Errorf("expected the in-flight store to finish, got %v", h.store.stored)
	}
	if slices.Contains(h.details.calls, "n2") {
		t.Error("expected no detail call after cancellation")
	}
	if reporter.summary == nil || reporter.summary.State != model.StateCancelled {
		t.Error("expected reporter to receive the cancelled summary")
	}
}

// TestController_SetupErrors tests failures before the first round.
func TestController_SetupErrors(t *testing.T) {
	t.Parallel()

	t.Run("journal load failure aborts", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		loadErr := errors.New("database locked")
		c, err := h.controller(t.TempDir(), WithJournal(&memoryJournal{loadErr: loadErr}))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Run(context.Background()); !errors.Is(err, loadErr) {
			t.Errorf("expected wrapped load error, got %v", err)
		}
		if len(h.searcher.calls) != 0 {
			t.Error("expected no search after setup failure")
		}
	})

	t.Run("initial count failure aborts", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.disk.countErr = errors.New("permission denied")
		c, err := h.controller(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Run(context.Background()); !errors.Is(err, h.disk.countErr) {
			t.Errorf("expected wrapped count error, got %v", err)
		}
	})
}

// TestController_Summary tests the fields of a finished summary.
func TestController_Summary(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.target.Count = 1
	h.searcher.results[pairKey("kw", model.SortGeneral)] = notes("n1")
	dir := t.TempDir()
	c, err := h.controller(dir, WithRunID(func() string { return "run-1" }))
	if err != nil {
		t.Fatal(err)
	}

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.RunID != "run-1" {
		t.Errorf("expected run-1, got %q", summary.RunID)
	}
	if summary.MediaDir != dir {
		t.Errorf("expected media dir %q, got %q", dir, summary.MediaDir)
	}
	if summary.Tally.Stored != 1 || summary.Rounds != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.FinishedAt.Before(summary.StartedAt) {
		t.Error("expected finish after start")
	}
}
