package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/notecrawl/internal/model"
)

// DefaultMaxNoNewRounds is the stagnation threshold used when none is set.
const DefaultMaxNoNewRounds = 3

// Controller runs the crawl loop for one Target.
//
// A Controller is single-use and not safe for concurrent use: Run must be
// called at most once.
type Controller struct {
	target Target

	searcher Searcher
	details  DetailFetcher
	store    MediaStore
	counter  MediaCounter

	sleeper  Sleeper
	backoff  BackoffPolicy
	decider  Decider
	journal  SeenJournal
	reporter Reporter
	detector *RateLimitDetector
	filter   *ContentFilter
	logger   *slog.Logger

	maxNoNewRounds int
	newRunID       func() string
	now            func() time.Time

	seen       *SeenSet
	stagnation *StagnationTracker

	// count is the latest known media count.
	count int

	// processed counts IDs first added during this run.
	processed int
}

// Option configures a Controller.
type Option func(*Controller)

// WithSleeper sets the Sleeper used for every pause.
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) {
		c.sleeper = s
	}
}

// WithBackoff sets the pause durations.
func WithBackoff(p BackoffPolicy) Option {
	return func(c *Controller) {
		c.backoff = p
	}
}

// WithDecider sets the operator decision used on stagnation.
// Without a decider the run stops as soon as stagnation is reached.
func WithDecider(d Decider) Option {
	return func(c *Controller) {
		c.decider = d
	}
}

// WithJournal sets a SeenJournal that pre-loads and persists seen IDs.
func WithJournal(j SeenJournal) Option {
	return func(c *Controller) {
		c.journal = j
	}
}

// WithReporter sets a Reporter for round and run events.
func WithReporter(r Reporter) Option {
	return func(c *Controller) {
		c.reporter = r
	}
}

// WithRateLimitDetector replaces the default throttling detector.
func WithRateLimitDetector(d *RateLimitDetector) Option {
	return func(c *Controller) {
		c.detector = d
	}
}

// WithMaxNoNewRounds sets the stagnation threshold.
func WithMaxNoNewRounds(n int) Option {
	return func(c *Controller) {
		c.maxNoNewRounds = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithClock sets the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithRunID sets the run ID generator.
func WithRunID(fn func() string) Option {
	return func(c *Controller) {
		c.newRunID = fn
	}
}

// NewController creates a Controller for target.
//
// All four collaborators are required. The api.Client satisfies both
// Searcher and DetailFetcher and is usually passed twice.
func NewController(target Target, searcher Searcher, details DetailFetcher, store MediaStore, counter MediaCounter, opts ...Option) (*Controller, error) {
	if searcher == nil || details == nil || store == nil || counter == nil {
		return nil, ErrNilCollaborator
	}
	if len(target.Keywords) == 0 || len(target.Sorts) == 0 {
		return nil, ErrNoPairs
	}
	if target.Dir == "" {
		return nil, ErrEmptyMediaDir
	}

	c := &Controller{
		target:         target,
		searcher:       searcher,
		details:        details,
		store:          store,
		counter:        counter,
		sleeper:        TimerSleeper{},
		backoff:        DefaultDelays().Policy(),
		detector:       NewRateLimitDetector([]int{429}, []string{"rate limit", "too many requests"}),
		logger:         slog.Default(),
		maxNoNewRounds: DefaultMaxNoNewRounds,
		newRunID:       uuid.NewString,
		now:            time.Now,
		seen:           NewSeenSet(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.filter = NewContentFilter(target.Blacklist)
	c.stagnation = NewStagnationTracker(c.maxNoNewRounds)
	return c, nil
}

// Run executes the crawl until a terminal state is reached.
//
// Setup failures (media directory, journal, initial count) are returned as
// errors before any search call. Once the loop starts, no per-item or
// per-pair failure ends the run. If ctx is cancelled the summary is
// returned together with ctx.Err().
func (c *Controller) Run(ctx context.Context) (model.RunSummary, error) {
	summary := model.RunSummary{
		RunID:     c.newRunID(),
		StartedAt: c.now(),
		Target:    c.target.Count,
		MediaDir:  c.target.Dir,
	}

	if err := os.MkdirAll(c.target.Dir, 0o750); err != nil {
		return summary, fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := c.preloadSeen(ctx); err != nil {
		return summary, err
	}

	count, err := c.counter.CountMedia(c.target.Dir)
	if err != nil {
		return summary, fmt.Errorf("failed to count media: %w", err)
	}
	c.count = count
	summary.InitialCount = count

	c.logger.Info("crawl started",
		"run_id", summary.RunID,
		"count", count,
		"target", c.target.Count,
		"keywords", len(c.target.Keywords),
		"sorts", len(c.target.Sorts),
		"media_dir", c.target.Dir,
	)

	state := c.loop(ctx, &summary)
	return c.finish(ctx, &summary, state)
}

// loop runs rounds until a terminal state is reached.
func (c *Controller) loop(ctx context.Context, summary *model.RunSummary) model.TerminalState {
	if c.reached() {
		return model.StateCompleted
	}

	for {
		if ctx.Err() != nil {
			return model.StateCancelled
		}

		summary.Rounds++
		round := RoundState{Number: summary.Rounds, StartCount: c.count}
		c.logger.Info("round started",
			"round", round.Number,
			"count", c.count,
			"target", c.target.Count,
			"percent", fmt.Sprintf("%.1f", model.Percent(c.count, c.target.Count)),
		)

		state, done := c.runRound(ctx, &round)
		summary.Tally.Add(round.Tally)
		if done {
			return state
		}

		c.count = c.recount()
		round.EndCount = c.count
		c.logRound(round)
		if c.reporter != nil {
			c.reporter.RoundFinished(ctx, round)
		}

		if c.reached() {
			return model.StateCompleted
		}
		if !c.stagnation.Observe(round.NewMedia()) {
			continue
		}

		c.logger.Warn("no new media",
			"rounds", c.stagnation.Consecutive(),
			"threshold", c.stagnation.Threshold(),
		)
		if c.decider == nil {
			return model.StateStagnationStopped
		}
		if !c.decider.ShouldContinueAfterStagnation(ctx, c.progress(round.Number)) {
			if ctx.Err() != nil {
				return model.StateCancelled
			}
			return model.StateUserAborted
		}
		c.stagnation.Reset()
	}
}

// runRound walks every pair once, keyword-major.
// It reports done when the run must end inside the round.
func (c *Controller) runRound(ctx context.Context, round *RoundState) (model.TerminalState, bool) {
	for _, keyword := range c.target.Keywords {
		for _, strategy := range c.target.Sorts {
			if ctx.Err() != nil {
				return model.StateCancelled, true
			}
			c.count = c.recount()
			if c.reached() {
				return model.StateCompleted, true
			}

			ok := c.searchAndDownload(ctx, keyword, strategy, &round.Tally)
			if c.reached() {
				return model.StateCompleted, true
			}

			pause := PausePairSuccess
			if !ok {
				pause = PausePairFailure
			}
			if err := c.pause(ctx, pause); err != nil {
				return model.StateCancelled, true
			}
		}
	}
	return "", false
}

// searchAndDownload runs one search and processes its items.
// It returns false when the search failed or when throttling was seen.
func (c *Controller) searchAndDownload(ctx context.Context, keyword string, strategy model.SortStrategy, tally *model.Tally) bool {
	logger := c.logger.With("keyword", keyword, "sort", strategy.String())

	items, status, err := c.searcher.Search(ctx, c.target.request(keyword, strategy))
	if err != nil {
		logger.Warn("search failed", "error", err)
		return false
	}
	if !status.Success {
		logger.Warn("search rejected",
			"code", status.Code,
			"message", status.Message,
			"rate_limited", c.detector.Detect(status, nil),
		)
		return false
	}
	logger.Debug("search returned", "items", len(items))

	rateLimited := false
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		outcome := c.processItem(ctx, item)
		tally.Record(outcome)
		logger.Debug("item processed", "note_id", item.ID, "outcome", outcome.String())

		switch outcome {
		case model.OutcomeRateLimited:
			rateLimited = true
			logger.Warn("rate limited, cooling down",
				"note_id", item.ID,
				"cooldown", c.backoff(PauseRateLimit),
			)
			if err := c.pause(ctx, PauseRateLimit); err != nil {
				return !rateLimited
			}
		case model.OutcomeStored:
			c.count = c.recount()
			logger.Info("media stored",
				"note_id", item.ID,
				"count", c.count,
				"target", c.target.Count,
			)
			if c.reached() {
				return !rateLimited
			}
			if err := c.pause(ctx, PauseItem); err != nil {
				return !rateLimited
			}
		}
	}
	return !rateLimited
}

// processItem handles one search result and returns its outcome.
// Panics raised by collaborators are recovered and reported as OutcomeError.
func (c *Controller) processItem(ctx context.Context, item model.Item) (outcome model.ItemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("item handling panicked", "note_id", item.ID, "panic", fmt.Sprint(r))
			outcome = model.OutcomeError
		}
	}()

	if !item.IsNote() || item.ID == "" {
		return model.OutcomeSkippedKind
	}
	if !c.seen.Add(item.ID) {
		return model.OutcomeSkippedSeen
	}
	c.processed++
	if c.journal != nil {
		if err := c.journal.Record(ctx, item.ID); err != nil {
			c.logger.Warn("failed to journal seen item", "note_id", item.ID, "error", err)
		}
	}

	if term, blocked := c.filter.Blocked(item.Text()); blocked {
		c.logger.Debug("item filtered", "note_id", item.ID, "term", term)
		return model.OutcomeFiltered
	}

	detail, status, err := c.details.Detail(ctx, item)
	if err != nil && ctx.Err() != nil {
		c.logger.Debug("detail interrupted", "note_id", item.ID, "error", err)
		return model.OutcomeFetchFailed
	}
	if c.detector.Detect(status, err) {
		return model.OutcomeRateLimited
	}
	if err != nil {
		c.logger.Debug("detail failed", "note_id", item.ID, "error", err)
		return model.OutcomeFetchFailed
	}
	if !status.Success || !detail.HasMedia(c.target.Kind) {
		c.logger.Debug("detail unusable", "note_id", item.ID, "code", status.Code, "message", status.Message)
		return model.OutcomeFetchFailed
	}

	// Store runs to completion even after ctx is cancelled.
	if err := c.store.Store(context.WithoutCancel(ctx), detail, c.target.Dir, c.target.Kind); err != nil {
		c.logger.Warn("store failed", "note_id", item.ID, "error", err)
		return model.OutcomeError
	}
	return model.OutcomeStored
}

// preloadSeen fills the SeenSet from the journal.
func (c *Controller) preloadSeen(ctx context.Context) error {
	if c.journal == nil {
		return nil
	}
	ids, err := c.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load seen journal: %w", err)
	}
	for _, id := range ids {
		c.seen.Add(id)
	}
	c.logger.Debug("seen journal loaded", "items", c.seen.Len())
	return nil
}

// recount refreshes the media count. A failed count keeps the last
// known value.
func (c *Controller) recount() int {
	n, err := c.counter.CountMedia(c.target.Dir)
	if err != nil {
		c.logger.Warn("failed to count media", "error", err)
		return c.count
	}
	return n
}

func (c *Controller) reached() bool {
	return c.count >= c.target.Count
}

func (c *Controller) pause(ctx context.Context, p Pause) error {
	return c.sleeper.Sleep(ctx, c.backoff(p))
}

func (c *Controller) progress(round int) Progress {
	return Progress{
		Round:            round,
		Count:            c.count,
		Target:           c.target.Count,
		ConsecutiveNoNew: c.stagnation.Consecutive(),
		Processed:        c.processed,
	}
}

func (c *Controller) logRound(r RoundState) {
	c.logger.Info("round finished",
		"round", r.Number,
		"new_media", r.NewMedia(),
		"count", r.EndCount,
		"target", c.target.Count,
		"percent", fmt.Sprintf("%.1f", model.Percent(r.EndCount, c.target.Count)),
		"stored", r.Tally.Stored,
		"seen", r.Tally.SkippedSeen,
		"filtered", r.Tally.Filtered,
		"rate_limited", r.Tally.RateLimited,
		"failed", r.Tally.FetchFailed,
		"errors", r.Tally.Errors,
	)
}

// finish fills the summary and notifies the reporter.
func (c *Controller) finish(ctx context.Context, summary *model.RunSummary, state model.TerminalState) (model.RunSummary, error) {
	summary.State = state
	summary.FinalCount = c.recount()
	summary.Processed = c.processed
	summary.FinishedAt = c.now()

	c.logger.Info("crawl finished",
		"run_id", summary.RunID,
		"state", string(state),
		"rounds", summary.Rounds,
		"count", summary.FinalCount,
		"target", summary.Target,
		"processed", summary.Processed,
		"media_dir", summary.MediaDir,
	)
	if c.reporter != nil {
		c.reporter.RunFinished(context.WithoutCancel(ctx), *summary)
	}

	if state == model.StateCancelled {
		return *summary, ctx.Err()
	}
	return *summary, nil
}
