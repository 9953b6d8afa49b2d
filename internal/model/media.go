package model

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind selects which media of a note the sink persists.
type MediaKind string

const (
	// MediaImage persists images only.
	MediaImage MediaKind = "image"

	// MediaVideo persists videos only.
	MediaVideo MediaKind = "video"

	// MediaAll persists images and videos.
	MediaAll MediaKind = "all"
)

// ImageExtensions are the file extensions counted as images.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// VideoExtensions are the file extensions counted as videos.
var VideoExtensions = []string{".mp4", ".mov"}

// ParseMediaKind parses a media kind name.
func ParseMediaKind(s string) (MediaKind, error) {
	switch k := MediaKind(strings.ToLower(strings.TrimSpace(s))); k {
	case MediaImage, MediaVideo, MediaAll:
		return k, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// IncludesImages reports whether images are selected.
func (k MediaKind) IncludesImages() bool {
	return k == MediaImage || k == MediaAll
}

// IncludesVideos reports whether videos are selected.
func (k MediaKind) IncludesVideos() bool {
	return k == MediaVideo || k == MediaAll
}

// Extensions returns the file extensions that count toward the target
// for this kind.
func (k MediaKind) Extensions() []string {
	exts := make([]string, 0, len(ImageExtensions)+len(VideoExtensions))
	if k.IncludesImages() {
		exts = append(exts, ImageExtensions...)
	}
	if k.IncludesVideos() {
		exts = append(exts, VideoExtensions...)
	}
	return exts
}

// MediaRecord describes one stored media file in the run database.
type MediaRecord struct {
	// Path is the file location on disk.
	Path string `json:"path"`

	// NoteID is the note the file belongs to.
	NoteID string `json:"note_id"`

	// URL is the source URL.
	URL string `json:"url"`

	// Hash is the hex content digest.
	Hash string `json:"hash"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// HasGPS is true when the image carries GPS EXIF tags.
	HasGPS bool `json:"has_gps"`

	// Camera is the EXIF camera make and model, if any.
	Camera string `json:"camera,omitempty"`

	// CreatedAt is when the file was recorded.
	CreatedAt time.Time `json:"created_at"`
}
