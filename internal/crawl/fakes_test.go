package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/notecrawl/internal/model"
)

// Distinct durations let the recording sleeper map every sleep back to
// the pause that caused it.
var testDelays = Delays{
	Item:        1 * time.Millisecond,
	PairSuccess: 2 * time.Millisecond,
	PairFailure: 3 * time.Millisecond,
	RateLimit:   4 * time.Millisecond,
}

func pauseOf(d time.Duration) Pause {
	switch d {
	case testDelays.Item:
		return PauseItem
	case testDelays.PairSuccess:
		return PausePairSuccess
	case testDelays.PairFailure:
		return PausePairFailure
	case testDelays.RateLimit:
		return PauseRateLimit
	default:
		return Pause(-1)
	}
}

// recorder collects an ordered event log shared by all fakes.
type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// mockSearcher returns canned results per (keyword, sort) pair.
type mockSearcher struct {
	rec     *recorder
	results map[string][]model.Item
	status  model.Status
	err     error
	calls   []model.SearchRequest
}

func pairKey(keyword string, s model.SortStrategy) string {
	return keyword + "/" + s.String()
}

func newMockSearcher(rec *recorder) *mockSearcher {
	return &mockSearcher{rec: rec, results: make(map[string][]model.Item), status: model.OK()}
}

func (m *mockSearcher) Search(_ context.Context, req model.SearchRequest) ([]model.Item, model.Status, error) {
	m.calls = append(m.calls, req)
	m.rec.add("search:%s", pairKey(req.Keyword, req.Sort))
	if m.err != nil {
		return nil, model.Status{}, m.err
	}
	return m.results[pairKey(req.Keyword, req.Sort)], m.status, nil
}

// mockDetails answers detail calls through respond, defaulting to one image.
type mockDetails struct {
	rec     *recorder
	respond func(item model.Item) (*model.Detail, model.Status, error)
	calls   []string
}

func newMockDetails(rec *recorder) *mockDetails {
	return &mockDetails{rec: rec}
}

func (m *mockDetails) Detail(_ context.Context, item model.Item) (*model.Detail, model.Status, error) {
	m.calls = append(m.calls, item.ID)
	m.rec.add("detail:%s", item.ID)
	if m.respond != nil {
		return m.respond(item)
	}
	return imageDetail(item.ID), model.OK(), nil
}

func imageDetail(id string) *model.Detail {
	return &model.Detail{ID: id, Type: "normal", ImageURLs: []string{"https://img.local/" + id + ".jpg"}}
}

// disk is a fake media directory shared by the store and the counter.
type disk struct {
	count    int
	countErr error
	counts   int
}

func (d *disk) CountMedia(_ string) (int, error) {
	d.counts++
	if d.countErr != nil {
		return 0, d.countErr
	}
	return d.count, nil
}

// mockStore adds the selected media of each detail to the disk.
type mockStore struct {
	rec     *recorder
	disk    *disk
	stored  []string
	failFor map[string]error
	panicOn string
}

func newMockStore(rec *recorder, d *disk) *mockStore {
	return &mockStore{rec: rec, disk: d, failFor: make(map[string]error)}
}

func (m *mockStore) Store(_ context.Context, detail *model.Detail, _ string, kind model.MediaKind) error {
	if detail.ID == m.panicOn {
		panic("store exploded")
	}
	if err := m.failFor[detail.ID]; err != nil {
		return err
	}
	m.stored = append(m.stored, detail.ID)
	m.disk.count += len(detail.MediaURLs(kind))
	m.rec.add("store:%s", detail.ID)
	return nil
}

// recordingSleeper records pauses without waiting.
type recordingSleeper struct {
	rec     *recorder
	pauses  []Pause
	onSleep func(n int)
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	p := pauseOf(d)
	s.pauses = append(s.pauses, p)
	s.rec.add("sleep:%s", p)
	if s.onSleep != nil {
		s.onSleep(len(s.pauses))
	}
	return ctx.Err()
}

func (s *recordingSleeper) count(p Pause) int {
	n := 0
	for _, got := range s.pauses {
		if got == p {
			n++
		}
	}
	return n
}

// memoryJournal is an in-memory SeenJournal.
type memoryJournal struct {
	initial  []string
	loadErr  error
	recorded []string
}

func (j *memoryJournal) Load(_ context.Context) ([]string, error) {
	if j.loadErr != nil {
		return nil, j.loadErr
	}
	return j.initial, nil
}

func (j *memoryJournal) Record(_ context.Context, id string) error {
	j.recorded = append(j.recorded, id)
	return nil
}

// recordingReporter keeps every event it receives.
type recordingReporter struct {
	rounds  []RoundState
	summary *model.RunSummary
}

func (r *recordingReporter) RoundFinished(_ context.Context, round RoundState) {
	r.rounds = append(r.rounds, round)
}

func (r *recordingReporter) RunFinished(_ context.Context, summary model.RunSummary) {
	r.summary = &summary
}

var errNetwork = errors.New("connection reset by peer")

func notes(ids ...string) []model.Item {
	items := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, model.Item{ID: id, Kind: model.ItemKindNote, Title: "title " + id, XsecToken: "tok-" + id})
	}
	return items
}

// harness wires a controller to fresh fakes.
type harness struct {
	rec      *recorder
	searcher *mockSearcher
	details  *mockDetails
	disk     *disk
	store    *mockStore
	sleeper  *recordingSleeper
	target   Target
}

func newHarness() *harness {
	rec := &recorder{}
	d := &disk{}
	return &harness{
		rec:      rec,
		searcher: newMockSearcher(rec),
		details:  newMockDetails(rec),
		disk:     d,
		store:    newMockStore(rec, d),
		sleeper:  &recordingSleeper{rec: rec},
		target: Target{
			Count:    100,
			Keywords: []string{"kw"},
			Sorts:    []model.SortStrategy{model.SortGeneral},
			Kind:     model.MediaImage,
			PageSize: 20,
		},
	}
}

func (h *harness) controller(dir string, opts ...Option) (*Controller, error) {
	h.target.Dir = dir
	base := []Option{
		WithSleeper(h.sleeper),
		WithBackoff(testDelays.Policy()),
		WithRateLimitDetector(NewRateLimitDetector([]int{429, 461}, []string{"访问频次异常", "rate limit"})),
		WithLogger(slog.New(slog.DiscardHandler)),
	}
	return NewController(h.target, h.searcher, h.details, h.store, h.disk, append(base, opts...)...)
}
