// Package crawl implements the bounded crawl loop.
//
// A Controller repeatedly walks every (keyword, sort strategy) pair of a
// Target, searches the remote API, drops items it has already seen or that
// match the content blacklist, fetches the detail of the rest and hands it
// to a MediaStore. It stops when the on-disk media count reaches the target,
// when too many consecutive rounds add nothing, when the operator declines
// to continue, or when its context is cancelled.
//
// # State
//
// All mutable state (the SeenSet, the StagnationTracker and the running
// media count) is owned by a single Controller and touched from a single
// goroutine. Requests are never issued in parallel.
//
// # Pacing
//
// Every pause goes through a BackoffPolicy and an injected Sleeper, so tests
// can assert the exact sequence of pauses without real time passing:
//
//	PauseItem         after each stored item
//	PausePairSuccess  after a (keyword, sort) pair that saw no throttling
//	PausePairFailure  after a failed or throttled pair
//	PauseRateLimit    immediately when a detail call reports throttling
//
// # Collaborators
//
// The controller depends only on the interfaces in interfaces.go. The
// api, media and pipeline packages provide the production implementations.
package crawl
