package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/notecrawl/internal/model"
)

// Default configuration values.
// Pacing defaults follow what proved workable against the live search
// service: short pauses between successful calls, a longer pause after a
// failed pair and a full minute of cooldown once throttling is detected.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "notecrawl"

	// DefaultTarget is the number of media files a run tries to collect.
	DefaultTarget = 1000

	// DefaultPageSize is the number of results requested per search call.
	// Small pages limit the API load of a single call.
	DefaultPageSize = 20

	// MaxPageSize is the largest accepted search page size.
	MaxPageSize = 100

	// DefaultItemDelay paces detail fetches within one search cycle.
	DefaultItemDelay = 2500 * time.Millisecond

	// DefaultPairSuccessDelay is the pause after a successful (keyword, sort) pair.
	DefaultPairSuccessDelay = 2 * time.Second

	// DefaultPairFailureDelay is the pause after a failed or throttled pair.
	DefaultPairFailureDelay = 5 * time.Second

	// DefaultRateLimitCooldown is the pause applied as soon as a detail call
	// reports throttling.
	DefaultRateLimitCooldown = 60 * time.Second

	// DefaultMaxNoNewRounds is the number of consecutive rounds without new
	// media after which the run stops or asks the operator.
	DefaultMaxNoNewRounds = 3

	// DefaultTimeout is the HTTP timeout for each API and media request.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond is the ceiling on outbound API requests.
	DefaultRequestsPerSecond = 1.0

	// DefaultMaxMediaSize limits the size of a single downloaded media file.
	DefaultMaxMediaSize = 50 * 1024 * 1024 // 50MB

	// DefaultUserAgent is sent with API and media requests.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	// DefaultRedisPrefix namespaces the redis seen journal keys.
	DefaultRedisPrefix = "notecrawl:"
)

// Seen journal backends.
const (
	// SeenBackendMemory keeps the seen set in memory only.
	SeenBackendMemory = "memory"

	// SeenBackendSQLite persists the seen set in the run database.
	SeenBackendSQLite = "sqlite"

	// SeenBackendRedis persists the seen set in a redis SET.
	SeenBackendRedis = "redis"
)

// DefaultSortStrategies are crawled in this order for each keyword.
func DefaultSortStrategies() []model.SortStrategy {
	return []model.SortStrategy{model.SortGeneral, model.SortLatest, model.SortMostLiked}
}

// DefaultRateLimitCodes are status codes the service uses for throttling.
func DefaultRateLimitCodes() []int {
	return []int{429, 461, 300013}
}

// DefaultRateLimitMessages are message fragments the service uses for throttling.
func DefaultRateLimitMessages() []string {
	return []string{"访问频次异常", "频繁", "too many requests", "rate limit"}
}

// Config holds all configuration options for notecrawl.
// This struct is populated from the config file, the environment and CLI
// flags, and is passed through the application via dependency injection
// rather than global state.
type Config struct {
	// Target is the number of media files to collect.
	// A run completes as soon as the on-disk count reaches this value.
	Target int

	// Keywords are searched in order, once per sort strategy, each round.
	Keywords []string

	// SortStrategies are tried in order for every keyword.
	SortStrategies []model.SortStrategy

	// Blacklist holds substrings that reject an item when found in its
	// title or description (case-insensitive).
	Blacklist []string

	// MediaDir is the destination directory for stored media.
	// Defaults to the XDG data directory.
	MediaDir string

	// MediaKind selects which media of a note are stored and counted.
	MediaKind model.MediaKind

	// NoteType restricts search results to a note type.
	NoteType model.NoteType

	// PageSize is the number of results requested per search call.
	PageSize int

	// NoteTime, NoteRange, PosDistance and Geo are passed through to the
	// search API unchanged.
	NoteTime    int
	NoteRange   int
	PosDistance int
	Geo         string

	// ItemDelay is the pause after each stored item.
	ItemDelay time.Duration

	// PairSuccessDelay is the pause after a successful (keyword, sort) pair.
	PairSuccessDelay time.Duration

	// PairFailureDelay is the pause after a failed or throttled pair.
	PairFailureDelay time.Duration

	// RateLimitCooldown is the pause applied immediately when throttling is
	// detected on a detail call.
	RateLimitCooldown time.Duration

	// MaxNoNewRounds is the number of consecutive rounds with zero new media
	// that ends the run (or prompts the operator).
	MaxNoNewRounds int

	// RateLimitCodes and RateLimitMessages define the throttling signals.
	// They were tuned against the live service and are policy, not protocol.
	RateLimitCodes    []int
	RateLimitMessages []string

	// Interactive enables the continue/stop prompt on stagnation.
	// When false the run stops as soon as the stagnation threshold is reached.
	Interactive bool

	// APIBaseURL is the base URL of the search/detail gateway.
	APIBaseURL string

	// Cookie is the session cookie sent to the API.
	// It is read from the environment, never from the config file.
	Cookie string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// RequestsPerSecond caps outbound API requests.
	RequestsPerSecond float64

	// Timeout is the HTTP timeout for a single request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxMediaSize limits a single media download in bytes.
	MaxMediaSize int64

	// DBDir is the directory of the run database.
	// Defaults to the XDG data directory.
	DBDir string

	// SeenBackend selects where processed item IDs are journaled across runs.
	SeenBackend string

	// RedisAddr, RedisPrefix and RedisTTL configure the redis seen backend.
	RedisAddr   string
	RedisPrefix string
	RedisTTL    time.Duration

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .notecrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// EnvFilePath is the .env file holding secrets. Missing files are ignored.
	EnvFilePath string

	// JSONReport and MarkdownReport select the summary format.
	// They are mutually exclusive; the default is plain text.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is an optional file path for the run summary.
	ReportFile string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches logs to JSON lines.
	LogJSON bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero (delays, thresholds,
// page size). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Target:            DefaultTarget,
		SortStrategies:    DefaultSortStrategies(),
		MediaDir:          DefaultMediaDir(),
		MediaKind:         model.MediaImage,
		NoteType:          model.NoteTypeNormal,
		PageSize:          DefaultPageSize,
		ItemDelay:         DefaultItemDelay,
		PairSuccessDelay:  DefaultPairSuccessDelay,
		PairFailureDelay:  DefaultPairFailureDelay,
		RateLimitCooldown: DefaultRateLimitCooldown,
		MaxNoNewRounds:    DefaultMaxNoNewRounds,
		RateLimitCodes:    DefaultRateLimitCodes(),
		RateLimitMessages: DefaultRateLimitMessages(),
		Interactive:       true,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Timeout:           DefaultTimeout,
		UserAgent:         DefaultUserAgent,
		MaxMediaSize:      DefaultMaxMediaSize,
		DBDir:             XDGDataDir(),
		SeenBackend:       SeenBackendSQLite,
		RedisPrefix:       DefaultRedisPrefix,
		EnvFilePath:       DefaultEnvFile,
	}
}

// XDGDataDir returns the XDG data directory for notecrawl.
// On Linux: ~/.local/share/notecrawl
// On macOS: ~/Library/Application Support/notecrawl
// On Windows: %LOCALAPPDATA%\notecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for notecrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultMediaDir returns the default media destination.
func DefaultMediaDir() string {
	return filepath.Join(XDGDataDir(), "media")
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return ErrNoKeywords
	}
	if len(c.SortStrategies) == 0 {
		return ErrNoSortStrategies
	}
	if c.Target < 0 {
		return ErrInvalidTarget
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return ErrInvalidPageSize
	}
	for _, d := range []time.Duration{c.ItemDelay, c.PairSuccessDelay, c.PairFailureDelay, c.RateLimitCooldown} {
		if d < 0 {
			return ErrInvalidDelay
		}
	}
	if c.MaxNoNewRounds <= 0 {
		return ErrInvalidStagnationThreshold
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestsPerSecond <= 0 {
		return ErrInvalidRate
	}
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	if c.MediaDir == "" {
		return ErrEmptyMediaDir
	}
	switch c.SeenBackend {
	case SeenBackendMemory, SeenBackendSQLite:
	case SeenBackendRedis:
		if c.RedisAddr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return ErrInvalidSeenBackend
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
