package media

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/notecrawl/internal/model"
)

// Counter counts media files below a directory by extension.
// It satisfies crawl.MediaCounter.
type Counter struct {
	extensions map[string]struct{}
}

// NewCounter returns a Counter for the extensions of kind.
func NewCounter(kind model.MediaKind) *Counter {
	return NewExtensionCounter(kind.Extensions()...)
}

// NewExtensionCounter returns a Counter for explicit extensions such as
// ".jpg". Matching is case-insensitive.
func NewExtensionCounter(exts ...string) *Counter {
	c := &Counter{extensions: make(map[string]struct{}, len(exts))}
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions[ext] = struct{}{}
	}
	return c
}

// CountMedia walks dir recursively and counts matching regular files.
// A missing dir counts as zero.
func (c *Counter) CountMedia(dir string) (int, error) {
	files, err := c.Files(dir)
	return len(files), err
}

// Files returns the matching files below dir, in lexical order.
func (c *Counter) Files(dir string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if c.Matches(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Matches reports whether path has one of the counted extensions.
func (c *Counter) Matches(path string) bool {
	_, ok := c.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
