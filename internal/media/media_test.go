package media

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/notecrawl/internal/model"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
}

// TestCounter tests on-disk media counting.
func TestCounter(t *testing.T) {
	t.Parallel()

	t.Run("missing directory counts as zero", func(t *testing.T) {
		t.Parallel()

		n, err := NewCounter(model.MediaImage).CountMedia(filepath.Join(t.TempDir(), "absent"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0, got %d", n)
		}
	})

	t.Run("counts images recursively by extension", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		for _, name := range []string{
			"a.jpg", "b.JPEG", "n1/c.png", "n1/d.gif", "n2/deep/e.webp",
			"n2/f.mp4", "notes.txt", "n3/1_abc.part",
		} {
			writeFile(t, filepath.Join(dir, name))
		}

		images, err := NewCounter(model.MediaImage).CountMedia(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if images != 5 {
			t.Errorf("expected 5 images, got %d", images)
		}

		all, err := NewCounter(model.MediaAll).CountMedia(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if all != 6 {
			t.Errorf("expected 6 media files, got %d", all)
		}
	})

	t.Run("explicit extensions accept missing dots", func(t *testing.T) {
		t.Parallel()

		c := NewExtensionCounter("heic", ".JPG")
		if !c.Matches("x.HEIC") || !c.Matches("y.jpg") || c.Matches("z.png") {
			t.Error("unexpected extension matching")
		}
	})
}

// TestDownloader tests media downloads.
func TestDownloader(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/img/one.jpg", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("first image"))
	})
	mux.HandleFunc("/img/noext", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write([]byte("second image"))
	})
	mux.HandleFunc("/img/big.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("z", 64)))
	})
	mux.HandleFunc("/video/clip", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("video bytes"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	newDownloader := func(t *testing.T, opts ...DownloaderOption) *Downloader {
		t.Helper()
		opts = append([]DownloaderOption{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
		d, err := NewDownloader(srv.Client(), opts...)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}

	t.Run("writes files under the note directory", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		detail := &model.Detail{
			ID:        "note/1",
			ImageURLs: []string{srv.URL + "/img/one.jpg", srv.URL + "/img/noext"},
			VideoURL:  srv.URL + "/video/clip",
		}

		files, err := newDownloader(t).Download(context.Background(), detail, dir, model.MediaImage)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("expected 2 files, got %d", len(files))
		}
		if filepath.Dir(files[0].Path) != filepath.Join(dir, "note_1") {
			t.Errorf("unexpected note directory for %s", files[0].Path)
		}
		if filepath.Ext(files[0].Path) != ".jpg" || filepath.Ext(files[1].Path) != ".webp" {
			t.Errorf("unexpected extensions: %s %s", files[0].Path, files[1].Path)
		}
		if !strings.HasPrefix(filepath.Base(files[1].Path), "2_") {
			t.Errorf("expected index prefix, got %s", files[1].Path)
		}
		if len(files[0].Hash) != 64 || files[0].Size != int64(len("first image")) {
			t.Errorf("unexpected file metadata %+v", files[0])
		}

		n, _ := NewCounter(model.MediaAll).CountMedia(dir)
		if n != 2 {
			t.Errorf("expected 2 counted files, got %d", n)
		}
	})

	t.Run("existing file is left alone", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		detail := &model.Detail{ID: "n2", ImageURLs: []string{srv.URL + "/img/one.jpg"}}
		d := newDownloader(t)

		if _, err := d.Download(context.Background(), detail, dir, model.MediaImage); err != nil {
			t.Fatal(err)
		}
		files, err := d.Download(context.Background(), detail, dir, model.MediaImage)
		if err != nil {
			t.Fatal(err)
		}
		if !files[0].Existed {
			t.Error("expected second download to report an existing file")
		}

		entries, _ := os.ReadDir(filepath.Join(dir, "n2"))
		if len(entries) != 1 {
			t.Errorf("expected one file without leftovers, got %d", len(entries))
		}
	})

	t.Run("video kind stores the video", func(t *testing.T) {
		t.Parallel()

		detail := &model.Detail{ID: "v1", VideoURL: srv.URL + "/video/clip"}
		files, err := newDownloader(t).Download(context.Background(), detail, t.TempDir(), model.MediaVideo)
		if err != nil {
			t.Fatal(err)
		}
		if len(files) != 1 || filepath.Ext(files[0].Path) != ".mp4" || files[0].IsImage() {
			t.Errorf("unexpected files %+v", files)
		}
	})

	t.Run("oversized file is rejected without leftovers", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		detail := &model.Detail{ID: "big", ImageURLs: []string{srv.URL + "/img/big.png"}}
		files, err := newDownloader(t, WithMaxSize(10)).Download(context.Background(), detail, dir, model.MediaImage)
		if !errors.Is(err, ErrMediaTooLarge) {
			t.Errorf("expected ErrMediaTooLarge, got %v", err)
		}
		if len(files) != 0 {
			t.Errorf("expected no files, got %v", files)
		}
		entries, _ := os.ReadDir(filepath.Join(dir, "big"))
		if len(entries) != 0 {
			t.Errorf("expected temp file to be removed, found %d entries", len(entries))
		}
	})

	t.Run("partial failure keeps the good files", func(t *testing.T) {
		t.Parallel()

		detail := &model.Detail{ID: "mix", ImageURLs: []string{srv.URL + "/img/missing.jpg", srv.URL + "/img/one.jpg"}}
		files, err := newDownloader(t).Download(context.Background(), detail, t.TempDir(), model.MediaImage)
		if err == nil {
			t.Error("expected an error for the missing image")
		}
		if len(files) != 1 {
			t.Errorf("expected 1 file, got %d", len(files))
		}
	})

	t.Run("detail without media is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := newDownloader(t).Download(context.Background(), &model.Detail{ID: "empty"}, t.TempDir(), model.MediaImage)
		if !errors.Is(err, ErrNoMedia) {
			t.Errorf("expected ErrNoMedia, got %v", err)
		}
	})

	t.Run("nil client is rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := NewDownloader(nil); !errors.Is(err, ErrNilHTTPClient) {
			t.Errorf("expected ErrNilHTTPClient, got %v", err)
		}
	})
}

// TestInspectEXIF tests metadata extraction on data without EXIF.
func TestInspectEXIF(t *testing.T) {
	t.Parallel()

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	info, err := InspectEXIF(png)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.Empty() {
		t.Errorf("expected empty info, got %+v", info)
	}
}

// TestEXIFInfoCamera tests the camera label.
func TestEXIFInfoCamera(t *testing.T) {
	t.Parallel()

	info := EXIFInfo{Make: "Apple ", Model: "iPhone 15"}
	if info.Camera() != "Apple iPhone 15" {
		t.Errorf("unexpected camera %q", info.Camera())
	}
	if (EXIFInfo{Model: "X100V"}).Camera() != "X100V" {
		t.Error("expected model only")
	}
}
