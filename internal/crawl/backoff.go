package crawl

import (
	"context"
	"time"
)

// Pause names a point in the loop where the controller waits.
type Pause int

const (
	// PauseItem follows each stored item.
	PauseItem Pause = iota

	// PausePairSuccess follows a pair that completed without throttling.
	PausePairSuccess

	// PausePairFailure follows a pair whose search failed or that was throttled.
	PausePairFailure

	// PauseRateLimit is the cooldown applied as soon as throttling is seen.
	PauseRateLimit
)

// String returns the pause name used in logs.
func (p Pause) String() string {
	switch p {
	case PauseItem:
		return "item"
	case PausePairSuccess:
		return "pair_success"
	case PausePairFailure:
		return "pair_failure"
	case PauseRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// BackoffPolicy maps a pause to its duration.
type BackoffPolicy func(Pause) time.Duration

// Delays holds one duration per pause.
type Delays struct {
	Item        time.Duration
	PairSuccess time.Duration
	PairFailure time.Duration
	RateLimit   time.Duration
}

// DefaultDelays returns the pacing that proved workable against the live
// service.
func DefaultDelays() Delays {
	return Delays{
		Item:        2500 * time.Millisecond,
		PairSuccess: 2 * time.Second,
		PairFailure: 5 * time.Second,
		RateLimit:   60 * time.Second,
	}
}

// Policy returns a BackoffPolicy backed by d.
func (d Delays) Policy() BackoffPolicy {
	return func(p Pause) time.Duration {
		switch p {
		case PauseItem:
			return d.Item
		case PausePairSuccess:
			return d.PairSuccess
		case PausePairFailure:
			return d.PairFailure
		case PauseRateLimit:
			return d.RateLimit
		default:
			return 0
		}
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper is the real Sleeper.
type TimerSleeper struct{}

// Sleep blocks for d. It returns ctx.Err() if ctx ends first.
// A non-positive d only checks the context.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
