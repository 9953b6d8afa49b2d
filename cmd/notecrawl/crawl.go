package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nao1215/notecrawl/internal/api"
	"github.com/nao1215/notecrawl/internal/config"
	"github.com/nao1215/notecrawl/internal/crawl"
	"github.com/nao1215/notecrawl/internal/database"
	"github.com/nao1215/notecrawl/internal/media"
	"github.com/nao1215/notecrawl/internal/model"
	"github.com/nao1215/notecrawl/internal/pipeline"
	"github.com/nao1215/notecrawl/internal/report"
	"github.com/nao1215/notecrawl/internal/store"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Collect media until the target count is reached",
		Long: `Crawl searches every (keyword, sort strategy) pair in rounds, fetches the
detail of each new note and stores its media until the number of media
files in the media directory reaches the target.

The run ends when:
- the target count is reached
- several consecutive rounds add no new media (the operator is asked
  whether to continue when stdin is a terminal)
- it is interrupted with Ctrl-C

Examples:
  # Collect 500 images for two keywords
  notecrawl crawl -k "diabetes diet" -k "blood sugar" -n 500

  # Use a custom configuration file and write a Markdown summary
  notecrawl crawl -c myconfig.yaml --markdown -o summary.md

  # Route requests through a SOCKS5 proxy without prompting
  notecrawl crawl --proxy 127.0.0.1:1080 --non-interactive

The session cookie is read from NOTECRAWL_COOKIE (or the .env file).`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	f := cmd.Flags()

	// Configuration sources
	f.StringP("config", "c", "", "Configuration file path (default: .notecrawl in current or home directory)")
	f.String("env-file", config.DefaultEnvFile, "File with secrets such as NOTECRAWL_COOKIE")

	// What to collect
	f.IntP("target", "n", config.DefaultTarget, "Number of media files to collect")
	f.StringSliceP("keyword", "k", nil, "Search keyword (repeatable)")
	f.StringSlice("sort", nil, "Sort strategies in order: general, latest, most_liked, most_commented, most_collected")
	f.StringSlice("blacklist", nil, "Skip items whose title or description contains this term (repeatable)")
	f.StringP("dir", "d", "", "Media directory (default: XDG data directory)")
	f.String("kind", string(model.MediaImage), "Media to store and count: image, video, all")
	f.String("note-type", model.NoteTypeNormal.String(), "Note type filter: all, video, normal")
	f.Int("page-size", config.DefaultPageSize, "Search results per call")
	f.Int("note-time", 0, "Publish time filter passed to the search API")
	f.Int("note-range", 0, "Note range filter passed to the search API")
	f.Int("pos-distance", 0, "Distance filter passed to the search API")
	f.String("geo", "", "Geo filter passed to the search API")

	// Pacing
	f.Duration("item-delay", config.DefaultItemDelay, "Pause after each stored item")
	f.Duration("pair-success-delay", config.DefaultPairSuccessDelay, "Pause after a successful keyword/sort pair")
	f.Duration("pair-failure-delay", config.DefaultPairFailureDelay, "Pause after a failed keyword/sort pair")
	f.Duration("cooldown", config.DefaultRateLimitCooldown, "Pause when throttling is detected")
	f.Int("max-no-new-rounds", config.DefaultMaxNoNewRounds, "Consecutive rounds without new media before stopping")
	f.Bool("non-interactive", false, "Never prompt; stop as soon as rounds stagnate")

	// Network
	f.String("api-url", "", "Base URL of the search gateway (or NOTECRAWL_API_URL)")
	f.String("proxy", "", "SOCKS5 proxy address host:port (or NOTECRAWL_PROXY)")
	f.Float64("rps", config.DefaultRequestsPerSecond, "Maximum API requests per second")
	f.DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each request")
	f.String("user-agent", config.DefaultUserAgent, "User agent sent with every request")

	// Storage
	f.String("db-dir", "", "Run database directory (default: XDG data directory)")
	f.String("seen-backend", config.SeenBackendSQLite, "Seen journal backend: memory, sqlite, redis")
	f.String("redis-addr", "", "Redis address for the redis seen backend (or NOTECRAWL_REDIS_ADDR)")
	f.String("redis-prefix", config.DefaultRedisPrefix, "Key prefix for the redis seen backend")
	f.Duration("redis-ttl", 0, "Expire the redis seen set after this long without activity (0 keeps it)")

	// Report
	f.BoolP("json", "j", false, "Output JSON summary (mutually exclusive with --markdown)")
	f.BoolP("markdown", "m", false, "Output Markdown summary (mutually exclusive with --json)")
	f.StringP("output", "o", "", "Write summary to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Interactive && !stdinIsTerminal() {
		cfg.Interactive = false
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = runCrawl(ctx, cfg, logger, crawlIO{
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		progress: cmd.ErrOrStderr(),
	})
	return err
}

// stdinIsTerminal reports whether an operator can answer prompts.
func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// buildConfig merges defaults, the config file, the environment and the
// flags, in that order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	f := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = f.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.EnvFilePath, err = f.GetString("env-file")
	if err != nil {
		return nil, err
	}

	// An explicitly named config file must exist; the default lookup may
	// find nothing.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if err := config.LoadEnvFile(cfg.EnvFilePath); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", cfg.EnvFilePath, err)
	}
	cfg.ApplyEnv()

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every flag the user set onto cfg. Flags left at their
// default do not override the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	changed := f.Changed

	var err error
	if changed("target") {
		if cfg.Target, err = f.GetInt("target"); err != nil {
			return err
		}
	}
	if changed("keyword") {
		if cfg.Keywords, err = f.GetStringSlice("keyword"); err != nil {
			return err
		}
	}
	if changed("sort") {
		names, err := f.GetStringSlice("sort")
		if err != nil {
			return err
		}
		sorts := make([]model.SortStrategy, 0, len(names))
		for _, name := range names {
			s, err := model.ParseSortStrategy(name)
			if err != nil {
				return err
			}
			sorts = append(sorts, s)
		}
		cfg.SortStrategies = sorts
	}
	if changed("blacklist") {
		if cfg.Blacklist, err = f.GetStringSlice("blacklist"); err != nil {
			return err
		}
	}
	if changed("dir") {
		if cfg.MediaDir, err = f.GetString("dir"); err != nil {
			return err
		}
	}
	if changed("kind") {
		name, err := f.GetString("kind")
		if err != nil {
			return err
		}
		if cfg.MediaKind, err = model.ParseMediaKind(name); err != nil {
			return err
		}
	}
	if changed("note-type") {
		name, err := f.GetString("note-type")
		if err != nil {
			return err
		}
		if cfg.NoteType, err = model.ParseNoteType(name); err != nil {
			return err
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"page-size", &cfg.PageSize},
		{"note-time", &cfg.NoteTime},
		{"note-range", &cfg.NoteRange},
		{"pos-distance", &cfg.PosDistance},
		{"max-no-new-rounds", &cfg.MaxNoNewRounds},
	}
	for _, fl := range ints {
		if changed(fl.name) {
			if *fl.dst, err = f.GetInt(fl.name); err != nil {
				return err
			}
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"item-delay", &cfg.ItemDelay},
		{"pair-success-delay", &cfg.PairSuccessDelay},
		{"pair-failure-delay", &cfg.PairFailureDelay},
		{"cooldown", &cfg.RateLimitCooldown},
		{"timeout", &cfg.Timeout},
		{"redis-ttl", &cfg.RedisTTL},
	}
	for _, fl := range durations {
		if changed(fl.name) {
			if *fl.dst, err = f.GetDuration(fl.name); err != nil {
				return err
			}
		}
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"geo", &cfg.Geo},
		{"api-url", &cfg.APIBaseURL},
		{"proxy", &cfg.ProxyAddress},
		{"user-agent", &cfg.UserAgent},
		{"db-dir", &cfg.DBDir},
		{"seen-backend", &cfg.SeenBackend},
		{"redis-addr", &cfg.RedisAddr},
		{"redis-prefix", &cfg.RedisPrefix},
	}
	for _, fl := range strs {
		if changed(fl.name) {
			if *fl.dst, err = f.GetString(fl.name); err != nil {
				return err
			}
		}
	}

	if changed("rps") {
		if cfg.RequestsPerSecond, err = f.GetFloat64("rps"); err != nil {
			return err
		}
	}
	if changed("non-interactive") {
		nonInteractive, err := f.GetBool("non-interactive")
		if err != nil {
			return err
		}
		cfg.Interactive = !nonInteractive
	}

	if cfg.JSONReport, err = f.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = f.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = f.GetString("output"); err != nil {
		return err
	}
	return nil
}

// crawlIO bundles the streams a run talks to.
type crawlIO struct {
	// in answers the stagnation prompt.
	in io.Reader

	// out receives the run summary unless a report file is configured.
	out io.Writer

	// progress receives round lines and prompts.
	progress io.Writer
}

// runCrawl wires the collaborators from cfg and runs one crawl.
// An interrupted run still records its summary and returns nil.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, streams crawlIO) (model.RunSummary, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Debug("database opened", "path", db.Path())

	journal, closeJournal, err := openJournal(ctx, cfg, db)
	if err != nil {
		return model.RunSummary{}, err
	}
	defer closeJournal()

	client, err := newAPIClient(cfg, logger)
	if err != nil {
		return model.RunSummary{}, err
	}

	sink, err := newMediaPipeline(cfg, db, logger)
	if err != nil {
		return model.RunSummary{}, err
	}

	output, closeOutput, err := openReportOutput(cfg.ReportFile, streams.out)
	if err != nil {
		return model.RunSummary{}, err
	}
	defer closeOutput()

	summaryWriter, err := report.NewWriter(report.FormatFromFlags(cfg.JSONReport, cfg.MarkdownReport), output)
	if err != nil {
		return model.RunSummary{}, err
	}
	console := report.NewConsoleReporter(streams.progress, summaryWriter, cfg.Target)

	runID := uuid.NewString()
	if err := db.StartRun(ctx, runID, cfg.Target, cfg.MediaDir); err != nil {
		return model.RunSummary{}, err
	}

	opts := []crawl.Option{
		crawl.WithLogger(logger),
		crawl.WithRunID(func() string { return runID }),
		crawl.WithBackoff(crawl.Delays{
			Item:        cfg.ItemDelay,
			PairSuccess: cfg.PairSuccessDelay,
			PairFailure: cfg.PairFailureDelay,
			RateLimit:   cfg.RateLimitCooldown,
		}.Policy()),
		crawl.WithRateLimitDetector(crawl.NewRateLimitDetector(cfg.RateLimitCodes, cfg.RateLimitMessages)),
		crawl.WithMaxNoNewRounds(cfg.MaxNoNewRounds),
		crawl.WithReporter(report.MultiReporter{
			historyRecorder{db: db, logger: logger},
			console,
		}),
	}
	if journal != nil {
		opts = append(opts, crawl.WithJournal(journal))
	}
	if cfg.Interactive {
		opts = append(opts, crawl.WithDecider(newPromptDecider(streams.in, streams.progress)))
	}

	target := crawl.Target{
		Count:       cfg.Target,
		Keywords:    cfg.Keywords,
		Sorts:       cfg.SortStrategies,
		Blacklist:   cfg.Blacklist,
		Dir:         cfg.MediaDir,
		Kind:        cfg.MediaKind,
		PageSize:    cfg.PageSize,
		NoteType:    cfg.NoteType,
		NoteTime:    cfg.NoteTime,
		NoteRange:   cfg.NoteRange,
		PosDistance: cfg.PosDistance,
		Geo:         cfg.Geo,
	}
	controller, err := crawl.NewController(target, client, client, sink, media.NewCounter(cfg.MediaKind), opts...)
	if err != nil {
		return model.RunSummary{}, err
	}

	logger.Info("starting crawl",
		"run_id", runID,
		"target", cfg.Target,
		"keywords", len(cfg.Keywords),
		"sorts", len(cfg.SortStrategies),
		"media_dir", cfg.MediaDir,
		"seen_backend", cfg.SeenBackend,
		"interactive", cfg.Interactive,
	)

	summary, err := controller.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && summary.State == model.StateCancelled {
			logger.Warn("crawl interrupted", "run_id", runID, "count", summary.FinalCount)
			return summary, console.Err()
		}
		return summary, fmt.Errorf("crawl failed: %w", err)
	}
	if err := console.Err(); err != nil {
		return summary, fmt.Errorf("failed to write report: %w", err)
	}
	return summary, nil
}

// openJournal returns the seen journal selected by the configuration.
// The memory backend has no journal; the returned journal is nil.
func openJournal(ctx context.Context, cfg *config.Config, db *database.CrawlDB) (crawl.SeenJournal, func(), error) {
	noop := func() {}
	switch cfg.SeenBackend {
	case config.SeenBackendMemory:
		return nil, noop, nil
	case config.SeenBackendRedis:
		j := store.NewRedisSeenJournal(cfg.RedisAddr, cfg.RedisPrefix, cfg.RedisTTL)
		if err := j.Ping(ctx); err != nil {
			_ = j.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return j, func() { _ = j.Close() }, nil
	default:
		return db, noop, nil
	}
}

// newAPIClient builds the gateway client with the session cookie.
func newAPIClient(cfg *config.Config, logger *slog.Logger) (*api.Client, error) {
	httpClient, err := api.NewHTTPClient(api.TransportOptions{
		ProxyAddress: cfg.ProxyAddress,
		Timeout:      cfg.Timeout,
		Cookie:       cfg.Cookie,
		UserAgent:    cfg.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API HTTP client: %w", err)
	}
	client, err := api.NewClient(cfg.APIBaseURL,
		api.WithHTTPClient(httpClient),
		api.WithRateLimit(cfg.RequestsPerSecond),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, nil
}

// newMediaPipeline builds the download, EXIF and record steps.
// The media client never carries the session cookie.
func newMediaPipeline(cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) (*pipeline.Pipeline, error) {
	httpClient, err := api.NewHTTPClient(api.TransportOptions{
		ProxyAddress: cfg.ProxyAddress,
		Timeout:      cfg.Timeout,
		UserAgent:    cfg.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create media HTTP client: %w", err)
	}
	downloader, err := media.NewDownloader(httpClient,
		media.WithMaxSize(cfg.MaxMediaSize),
		media.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(
		pipeline.NewDownloadStep(downloader, logger),
		pipeline.NewExifStep(logger),
		pipeline.NewRecordStep(db),
	)
	return p, nil
}

// openReportOutput returns the summary destination: the report file when
// one is configured, otherwise fallback.
func openReportOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Summaries include the media path, so keep them owner-readable only.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided report path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// historyRecorder stores the final summary of a run in the database.
type historyRecorder struct {
	db     *database.CrawlDB
	logger *slog.Logger
}

// RoundFinished is a no-op; only finished runs are recorded.
func (historyRecorder) RoundFinished(context.Context, crawl.RoundState) {}

// RunFinished saves the summary.
func (h historyRecorder) RunFinished(ctx context.Context, summary model.RunSummary) {
	if err := h.db.FinishRun(ctx, summary); err != nil {
		h.logger.Error("failed to save run summary", "run_id", summary.RunID, "error", err)
	}
}
