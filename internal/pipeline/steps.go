package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/nao1215/notecrawl/internal/media"
	"github.com/nao1215/notecrawl/internal/model"
)

// Downloader fetches the media of a detail. *media.Downloader implements it.
type Downloader interface {
	Download(ctx context.Context, detail *model.Detail, dir string, kind model.MediaKind) ([]media.File, error)
}

// DownloadStep writes the note's media files to disk.
type DownloadStep struct {
	downloader Downloader
	logger     *slog.Logger
}

// NewDownloadStep creates a DownloadStep.
func NewDownloadStep(d Downloader, logger *slog.Logger) *DownloadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadStep{downloader: d, logger: logger}
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do downloads the media. Partial failures are logged; the step only fails
// when no file ended up on disk.
func (s *DownloadStep) Do(ctx context.Context, job *Job) error {
	files, err := s.downloader.Download(ctx, job.Detail, job.Dir, job.Kind)
	job.Files = append(job.Files, files...)
	if err != nil {
		if len(files) == 0 {
			return fmt.Errorf("download: %w", err)
		}
		s.logger.Warn("some media could not be downloaded",
			"note_id", job.Detail.ID,
			"stored", len(files),
			"error", err,
		)
	}
	return nil
}

// maxEXIFRead bounds how much of an image is read for EXIF inspection.
// EXIF lives in the first segments of a JPEG.
const maxEXIFRead = 512 * 1024

// ExifStep inspects stored images and warns about GPS metadata.
type ExifStep struct {
	logger *slog.Logger
}

// NewExifStep creates an ExifStep.
func NewExifStep(logger *slog.Logger) *ExifStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExifStep{logger: logger}
}

// Name returns the step name.
func (s *ExifStep) Name() string {
	return "exif"
}

// Do inspects every image file of the job.
func (s *ExifStep) Do(_ context.Context, job *Job) error {
	var errs []error
	for _, f := range job.Files {
		if !f.IsImage() {
			continue
		}
		data, err := readHead(f.Path, maxEXIFRead)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		info, err := media.InspectEXIF(data)
		if err != nil {
			s.logger.Debug("exif inspection failed", "path", f.Path, "error", err)
			continue
		}
		job.EXIF[f.Path] = info
		if info.HasGPS {
			s.logger.Warn("image carries GPS coordinates",
				"note_id", job.Detail.ID,
				"path", f.Path,
				"camera", info.Camera(),
			)
		}
	}
	return errors.Join(errs...)
}

func readHead(path string, n int64) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // path was produced by the downloader
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, n))
}

// MediaRecorder persists stored media records. *database.CrawlDB
// implements it.
type MediaRecorder interface {
	InsertMediaFile(ctx context.Context, rec model.MediaRecord) error
}

// RecordStep writes one database row per stored file.
type RecordStep struct {
	recorder MediaRecorder
	now      func() time.Time
}

// NewRecordStep creates a RecordStep.
func NewRecordStep(r MediaRecorder) *RecordStep {
	return &RecordStep{recorder: r, now: time.Now}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do records every file of the job, including files that already existed.
func (s *RecordStep) Do(ctx context.Context, job *Job) error {
	var errs []error
	for _, f := range job.Files {
		info := job.EXIF[f.Path]
		rec := model.MediaRecord{
			Path:      f.Path,
			NoteID:    job.Detail.ID,
			URL:       f.URL,
			Hash:      f.Hash,
			Size:      f.Size,
			HasGPS:    info.HasGPS,
			Camera:    info.Camera(),
			CreatedAt: s.now(),
		}
		if err := s.recorder.InsertMediaFile(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", f.Path, err))
		}
	}
	return errors.Join(errs...)
}
