package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/notecrawl/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "notecrawl.db"

// ErrRunNotFound is returned when a run ID is not in the database.
var ErrRunNotFound = errors.New("run not found")

// CrawlDB provides SQLite-based storage for run history, the seen journal
// and the stored media index.
//
// Design decision: We keep all three tables in one database file so that a
// single backup of the data directory captures everything a later run needs
// to resume.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// now returns the current time. Replaced in tests.
	now func() time.Time
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run; finished_at stays NULL while the run is active
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		state TEXT NOT NULL DEFAULT 'running',
		rounds INTEGER DEFAULT 0,
		initial_count INTEGER DEFAULT 0,
		final_count INTEGER DEFAULT 0,
		target INTEGER DEFAULT 0,
		processed INTEGER DEFAULT 0,
		tally_json TEXT,
		media_dir TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Item identifiers that were processed by any run
	CREATE TABLE IF NOT EXISTS seen_items (
		item_id TEXT PRIMARY KEY,
		first_seen DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Media files written to disk
	CREATE TABLE IF NOT EXISTS media_files (
		path TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		url TEXT,
		hash TEXT,
		size INTEGER DEFAULT 0,
		has_gps INTEGER DEFAULT 0,
		camera TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_media_item ON media_files(item_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored crawl run.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	State        string
	Rounds       int
	InitialCount int
	FinalCount   int
	Target       int
	Processed    int
	Tally        model.Tally
	MediaDir     string
}

// Finished reports whether the run reached a terminal state.
func (r RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Summary converts the record back into a run summary.
func (r RunRecord) Summary() model.RunSummary {
	return model.RunSummary{
		RunID:        r.ID,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		State:        model.TerminalState(r.State),
		Rounds:       r.Rounds,
		Target:       r.Target,
		InitialCount: r.InitialCount,
		FinalCount:   r.FinalCount,
		Processed:    r.Processed,
		Tally:        r.Tally,
		MediaDir:     r.MediaDir,
	}
}

// StartRun inserts a run row in the "running" state.
func (cdb *CrawlDB) StartRun(ctx context.Context, runID string, target int, mediaDir string) error {
	query := `
	INSERT INTO runs (id, started_at, state, target, media_dir)
	VALUES (?, ?, 'running', ?, ?)
	`
	_, err := cdb.db.ExecContext(ctx, query, runID, formatTimestamp(cdb.now()), target, mediaDir)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun stores the final summary of a run.
// A run that was never started is inserted as a whole.
func (cdb *CrawlDB) FinishRun(ctx context.Context, summary model.RunSummary) error {
	tallyJSON, err := json.Marshal(summary.Tally)
	if err != nil {
		return fmt.Errorf("failed to serialize tally: %w", err)
	}

	started := summary.StartedAt
	if started.IsZero() {
		started = cdb.now()
	}
	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = cdb.now()
	}

	query := `
	INSERT INTO runs (id, started_at, finished_at, state, rounds, initial_count, final_count, target, processed, tally_json, media_dir)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		state = excluded.state,
		rounds = excluded.rounds,
		initial_count = excluded.initial_count,
		final_count = excluded.final_count,
		target = excluded.target,
		processed = excluded.processed,
		tally_json = excluded.tally_json,
		media_dir = excluded.media_dir
	`

	_, err = cdb.db.ExecContext(ctx, query,
		summary.RunID,
		formatTimestamp(started),
		formatTimestamp(finished),
		string(summary.State),
		summary.Rounds,
		summary.InitialCount,
		summary.FinalCount,
		summary.Target,
		summary.Processed,
		string(tallyJSON),
		summary.MediaDir,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, state, rounds, initial_count, final_count, target, processed, tally_json, media_dir`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (RunRecord, error) {
	var (
		rec      RunRecord
		started  string
		finished sql.NullString
		tally    sql.NullString
		mediaDir sql.NullString
	)
	err := s.Scan(
		&rec.ID,
		&started,
		&finished,
		&rec.State,
		&rec.Rounds,
		&rec.InitialCount,
		&rec.FinalCount,
		&rec.Target,
		&rec.Processed,
		&tally,
		&mediaDir,
	)
	if err != nil {
		return rec, err
	}

	rec.StartedAt = parseTimestamp(started)
	if finished.Valid {
		rec.FinishedAt = parseTimestamp(finished.String)
	}
	rec.MediaDir = mediaDir.String
	if tally.Valid && tally.String != "" {
		if err := json.Unmarshal([]byte(tally.String), &rec.Tally); err != nil {
			return rec, fmt.Errorf("failed to parse tally: %w", err)
		}
	}
	return rec, nil
}

// GetRun retrieves a run by ID.
func (cdb *CrawlDB) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	rec, err := scanRun(cdb.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &rec, nil
}

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// Load returns every item ID recorded by earlier runs.
// It satisfies crawl.SeenJournal together with Record.
func (cdb *CrawlDB) Load(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT item_id FROM seen_items ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seen item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Record marks an item ID as processed. Recording an ID twice keeps the
// first timestamp.
func (cdb *CrawlDB) Record(ctx context.Context, id string) error {
	query := `INSERT INTO seen_items (item_id, first_seen) VALUES (?, ?) ON CONFLICT(item_id) DO NOTHING`
	if _, err := cdb.db.ExecContext(ctx, query, id, formatTimestamp(cdb.now())); err != nil {
		return fmt.Errorf("failed to record seen item: %w", err)
	}
	return nil
}

// SeenCount returns the number of journaled item IDs.
func (cdb *CrawlDB) SeenCount(ctx context.Context) (int, error) {
	var n int
	if err := cdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count seen items: %w", err)
	}
	return n, nil
}

// InsertMediaFile inserts or replaces the record of a stored media file.
func (cdb *CrawlDB) InsertMediaFile(ctx context.Context, rec model.MediaRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = cdb.now()
	}

	query := `
	INSERT OR REPLACE INTO media_files (path, item_id, url, hash, size, has_gps, camera, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := cdb.db.ExecContext(ctx, query,
		rec.Path,
		rec.NoteID,
		rec.URL,
		rec.Hash,
		rec.Size,
		rec.HasGPS,
		rec.Camera,
		formatTimestamp(created),
	)
	if err != nil {
		return fmt.Errorf("failed to insert media file: %w", err)
	}
	return nil
}

// ListMediaFiles returns stored media records, optionally restricted to one
// note. Records are ordered by path.
func (cdb *CrawlDB) ListMediaFiles(ctx context.Context, noteID string) ([]model.MediaRecord, error) {
	query := `
	SELECT path, item_id, url, hash, size, has_gps, camera, created_at
	FROM media_files
	WHERE 1=1
	`
	args := make([]any, 0, 1)
	if noteID != "" {
		query += " AND item_id = ?"
		args = append(args, noteID)
	}
	query += " ORDER BY path"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media files: %w", err)
	}
	defer rows.Close()

	var records []model.MediaRecord
	for rows.Next() {
		var (
			rec     model.MediaRecord
			url     sql.NullString
			hash    sql.NullString
			camera  sql.NullString
			created string
		)
		if err := rows.Scan(&rec.Path, &rec.NoteID, &url, &hash, &rec.Size, &rec.HasGPS, &camera, &created); err != nil {
			return nil, fmt.Errorf("failed to scan media file: %w", err)
		}
		rec.URL = url.String
		rec.Hash = hash.String
		rec.Camera = camera.String
		rec.CreatedAt = parseTimestamp(created)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// formatTimestamp renders t in the format SQLite's datetime functions use.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
