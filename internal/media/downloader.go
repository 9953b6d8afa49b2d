package media

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/nao1215/notecrawl/internal/model"
)

// DefaultMaxSize is the default per-file download limit.
const DefaultMaxSize = 50 * 1024 * 1024

// hashPrefixLen is the number of hex characters of the content hash kept
// in file names.
const hashPrefixLen = 16

// tempSuffix marks files that are still being written. It is not a counted
// extension, so the Counter never sees partial files.
const tempSuffix = ".part"

// File describes one media file written for a note.
type File struct {
	// Path is the final location on disk.
	Path string

	// URL is where the file was downloaded from.
	URL string

	// Hash is the hex blake2b-256 digest of the content.
	Hash string

	// Size is the file size in bytes.
	Size int64

	// Existed is true when an identical file was already on disk.
	Existed bool
}

// IsImage reports whether the file has an image extension.
func (f File) IsImage() bool {
	ext := strings.ToLower(filepath.Ext(f.Path))
	for _, e := range model.ImageExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Downloader fetches media URLs into the media directory.
type Downloader struct {
	client  *http.Client
	maxSize int64
	logger  *slog.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithMaxSize sets the per-file size limit in bytes.
func WithMaxSize(n int64) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = l
	}
}

// NewDownloader creates a Downloader using client.
// The client should not carry the API session cookie: media lives on
// CDN hosts that have no business seeing it.
func NewDownloader(client *http.Client, opts ...DownloaderOption) (*Downloader, error) {
	if client == nil {
		return nil, ErrNilHTTPClient
	}
	d := &Downloader{
		client:  client,
		maxSize: DefaultMaxSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Download writes every media URL of detail selected by kind below dir.
//
// Each URL is attempted even if an earlier one failed. The returned files
// are the ones present on disk afterwards; the error joins every failure.
func (d *Downloader) Download(ctx context.Context, detail *model.Detail, dir string, kind model.MediaKind) ([]File, error) {
	urls := detail.MediaURLs(kind)
	if len(urls) == 0 {
		return nil, ErrNoMedia
	}

	noteDir := filepath.Join(dir, safeName(detail.ID))
	if err := os.MkdirAll(noteDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create note directory: %w", err)
	}

	files := make([]File, 0, len(urls))
	var errs []error
	for i, u := range urls {
		f, err := d.fetch(ctx, u, noteDir, i+1, fallbackExt(detail, u))
		if err != nil {
			d.logger.Warn("media download failed", "note_id", detail.ID, "url", u, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}
		d.logger.Debug("media written", "note_id", detail.ID, "path", f.Path, "size", f.Size, "existed", f.Existed)
		files = append(files, f)
	}
	return files, errors.Join(errs...)
}

// fetch downloads one URL into noteDir.
func (d *Downloader) fetch(ctx context.Context, rawURL, noteDir string, index int, defaultExt string) (File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return File{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return File{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return File{}, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}
	if resp.ContentLength > d.maxSize {
		return File{}, ErrMediaTooLarge
	}

	tmp, err := os.CreateTemp(noteDir, fmt.Sprintf("%d_*%s", index, tempSuffix))
	if err != nil {
		return File{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	hasher, err := blake2b.New256(nil)
	if err != nil {
		_ = tmp.Close()
		return File{}, err
	}
	n, err := io.Copy(io.MultiWriter(tmp, hasher), io.LimitReader(resp.Body, d.maxSize+1))
	closeErr := tmp.Close()
	if err != nil {
		return File{}, fmt.Errorf("failed to write media: %w", err)
	}
	if closeErr != nil {
		return File{}, fmt.Errorf("failed to close media: %w", closeErr)
	}
	if n > d.maxSize {
		return File{}, ErrMediaTooLarge
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	ext := extensionFor(rawURL, resp.Header.Get("Content-Type"), defaultExt)
	final := filepath.Join(noteDir, fmt.Sprintf("%d_%s%s", index, sum[:hashPrefixLen], ext))

	f := File{Path: final, URL: rawURL, Hash: sum, Size: n}
	if _, err := os.Stat(final); err == nil {
		f.Existed = true
		return f, nil
	}
	if err := os.Rename(tmpName, final); err != nil {
		return File{}, fmt.Errorf("failed to move media into place: %w", err)
	}
	committed = true
	return f, nil
}

// knownTypes maps media content types to the extension used on disk.
var knownTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
}

// extensionFor picks the file extension from the URL path, then the
// content type, then def.
func extensionFor(rawURL, contentType, def string) string {
	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if ext == ".jpeg" {
			return ".jpg"
		}
		if _, ok := extensionSet[ext]; ok {
			return ext
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := knownTypes[mt]; ok {
			return ext
		}
	}
	return def
}

var extensionSet = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, ext := range model.MediaAll.Extensions() {
		set[ext] = struct{}{}
	}
	return set
}()

// fallbackExt returns the extension for a URL whose type cannot be told.
func fallbackExt(detail *model.Detail, u string) string {
	if u == detail.VideoURL {
		return ".mp4"
	}
	return ".jpg"
}

// safeName turns a note ID into a single path element.
func safeName(id string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, id)
	name = strings.Trim(name, ". ")
	if name == "" {
		return "unknown"
	}
	return name
}
