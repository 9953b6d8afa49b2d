package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/notecrawl/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".notecrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .notecrawl configuration file.
// Zero values mean "not set" and leave the corresponding default untouched.
type File struct {
	Target         int                  `yaml:"target,omitempty"`
	Keywords       []string             `yaml:"keywords,omitempty"`
	SortStrategies []model.SortStrategy `yaml:"sortStrategies,omitempty"`
	Blacklist      []string             `yaml:"blacklist,omitempty"`
	MediaDir       string               `yaml:"mediaDir,omitempty"`
	MediaKind      string               `yaml:"mediaKind,omitempty"`
	NoteType       string               `yaml:"noteType,omitempty"`
	PageSize       int                  `yaml:"pageSize,omitempty"`

	// Search filters passed through to the API.
	NoteTime    int    `yaml:"noteTime,omitempty"`
	NoteRange   int    `yaml:"noteRange,omitempty"`
	PosDistance int    `yaml:"posDistance,omitempty"`
	Geo         string `yaml:"geo,omitempty"`

	// Pacing holds the pause durations.
	Pacing Pacing `yaml:"pacing,omitempty"`

	// RateLimit holds the throttling detection policy.
	RateLimit RateLimitPolicy `yaml:"rateLimit,omitempty"`

	MaxNoNewRounds int `yaml:"maxNoNewRounds,omitempty"`

	// Interactive is a pointer so an explicit false can override the default.
	Interactive *bool `yaml:"interactive,omitempty"`

	API     APISettings  `yaml:"api,omitempty"`
	Storage StoreSetting `yaml:"storage,omitempty"`
}

// Pacing holds pause durations in Go duration syntax ("2.5s", "1m").
type Pacing struct {
	Item              time.Duration `yaml:"item,omitempty"`
	PairSuccess       time.Duration `yaml:"pairSuccess,omitempty"`
	PairFailure       time.Duration `yaml:"pairFailure,omitempty"`
	RateLimitCooldown time.Duration `yaml:"rateLimitCooldown,omitempty"`
}

// RateLimitPolicy holds the throttling signals.
type RateLimitPolicy struct {
	Codes    []int    `yaml:"codes,omitempty"`
	Messages []string `yaml:"messages,omitempty"`
}

// APISettings configures the remote API client.
type APISettings struct {
	BaseURL           string        `yaml:"baseURL,omitempty"`
	Proxy             string        `yaml:"proxy,omitempty"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	UserAgent         string        `yaml:"userAgent,omitempty"`
}

// StoreSetting configures persistence.
type StoreSetting struct {
	DBDir       string        `yaml:"dbDir,omitempty"`
	SeenBackend string        `yaml:"seenBackend,omitempty"`
	RedisAddr   string        `yaml:"redisAddr,omitempty"`
	RedisPrefix string        `yaml:"redisPrefix,omitempty"`
	RedisTTL    time.Duration `yaml:"redisTTL,omitempty"`
}

// LoadConfigFile loads a configuration file from YAML.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .notecrawl in the current directory
// 3. Look for .notecrawl in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply copies every value set in the file onto the config.
// Unparseable enum names are reported as errors rather than ignored.
func (cf *File) Apply(c *Config) error {
	if cf.Target != 0 {
		c.Target = cf.Target
	}
	if len(cf.Keywords) > 0 {
		c.Keywords = cf.Keywords
	}
	if len(cf.SortStrategies) > 0 {
		c.SortStrategies = cf.SortStrategies
	}
	if len(cf.Blacklist) > 0 {
		c.Blacklist = cf.Blacklist
	}
	if cf.MediaDir != "" {
		c.MediaDir = cf.MediaDir
	}
	if cf.MediaKind != "" {
		kind, err := model.ParseMediaKind(cf.MediaKind)
		if err != nil {
			return err
		}
		c.MediaKind = kind
	}
	if cf.NoteType != "" {
		noteType, err := model.ParseNoteType(cf.NoteType)
		if err != nil {
			return err
		}
		c.NoteType = noteType
	}
	if cf.PageSize != 0 {
		c.PageSize = cf.PageSize
	}
	if cf.NoteTime != 0 {
		c.NoteTime = cf.NoteTime
	}
	if cf.NoteRange != 0 {
		c.NoteRange = cf.NoteRange
	}
	if cf.PosDistance != 0 {
		c.PosDistance = cf.PosDistance
	}
	if cf.Geo != "" {
		c.Geo = cf.Geo
	}

	if cf.Pacing.Item != 0 {
		c.ItemDelay = cf.Pacing.Item
	}
	if cf.Pacing.PairSuccess != 0 {
		c.PairSuccessDelay = cf.Pacing.PairSuccess
	}
	if cf.Pacing.PairFailure != 0 {
		c.PairFailureDelay = cf.Pacing.PairFailure
	}
	if cf.Pacing.RateLimitCooldown != 0 {
		c.RateLimitCooldown = cf.Pacing.RateLimitCooldown
	}

	if len(cf.RateLimit.Codes) > 0 {
		c.RateLimitCodes = cf.RateLimit.Codes
	}
	if len(cf.RateLimit.Messages) > 0 {
		c.RateLimitMessages = cf.RateLimit.Messages
	}
	if cf.MaxNoNewRounds != 0 {
		c.MaxNoNewRounds = cf.MaxNoNewRounds
	}
	if cf.Interactive != nil {
		c.Interactive = *cf.Interactive
	}

	if cf.API.BaseURL != "" {
		c.APIBaseURL = cf.API.BaseURL
	}
	if cf.API.Proxy != "" {
		c.ProxyAddress = cf.API.Proxy
	}
	if cf.API.RequestsPerSecond != 0 {
		c.RequestsPerSecond = cf.API.RequestsPerSecond
	}
	if cf.API.Timeout != 0 {
		c.Timeout = cf.API.Timeout
	}
	if cf.API.UserAgent != "" {
		c.UserAgent = cf.API.UserAgent
	}

	if cf.Storage.DBDir != "" {
		c.DBDir = cf.Storage.DBDir
	}
	if cf.Storage.SeenBackend != "" {
		c.SeenBackend = cf.Storage.SeenBackend
	}
	if cf.Storage.RedisAddr != "" {
		c.RedisAddr = cf.Storage.RedisAddr
	}
	if cf.Storage.RedisPrefix != "" {
		c.RedisPrefix = cf.Storage.RedisPrefix
	}
	if cf.Storage.RedisTTL != 0 {
		c.RedisTTL = cf.Storage.RedisTTL
	}
	return nil
}
