package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoKeywords is returned when no search keyword is configured.
	ErrNoKeywords = errors.New("no keywords specified: provide --keyword or set keywords in the config file")

	// ErrNoSortStrategies is returned when the sort strategy list is empty.
	// A round is a pass over keywords x sort strategies, so at least one is required.
	ErrNoSortStrategies = errors.New("no sort strategies specified")

	// ErrInvalidTarget is returned when the target media count is negative.
	ErrInvalidTarget = errors.New("invalid target: must be non-negative")

	// ErrInvalidPageSize is returned when the search page size is outside 1..MaxPageSize.
	ErrInvalidPageSize = errors.New("invalid page size: must be between 1 and 100")

	// ErrInvalidDelay is returned when any pause duration is negative.
	// Use 0 to disable a pause.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidStagnationThreshold is returned when the stagnation threshold is not positive.
	ErrInvalidStagnationThreshold = errors.New("invalid stagnation threshold: must be positive")

	// ErrInvalidTimeout is returned when the HTTP timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRate is returned when the request rate ceiling is not positive.
	ErrInvalidRate = errors.New("invalid requests per second: must be positive")

	// ErrMissingAPIBaseURL is returned when no API endpoint is configured.
	ErrMissingAPIBaseURL = errors.New("missing API base URL: set --api-url or NOTECRAWL_API_URL")

	// ErrEmptyMediaDir is returned when the media directory is empty.
	ErrEmptyMediaDir = errors.New("media directory must not be empty")

	// ErrInvalidSeenBackend is returned when the seen journal backend is unknown.
	ErrInvalidSeenBackend = errors.New("invalid seen backend: must be one of memory, sqlite, redis")

	// ErrMissingRedisAddr is returned when the redis backend is selected without an address.
	ErrMissingRedisAddr = errors.New("redis seen backend requires --redis-addr")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
