package crawl

import (
	"strings"

	"github.com/nao1215/notecrawl/internal/model"
)

// RateLimitDetector decides whether a call was throttled.
//
// The service signals throttling in several ways: HTTP 429, custom status
// codes and free-form messages. The codes and message fragments are policy
// values taken from configuration.
type RateLimitDetector struct {
	codes    map[int]struct{}
	messages []string
}

// NewRateLimitDetector returns a detector for the given codes and message
// fragments. Fragments are matched case-insensitively.
func NewRateLimitDetector(codes []int, messages []string) *RateLimitDetector {
	d := &RateLimitDetector{codes: make(map[int]struct{}, len(codes))}
	for _, c := range codes {
		d.codes[c] = struct{}{}
	}
	for _, m := range messages {
		if m = strings.TrimSpace(m); m != "" {
			d.messages = append(d.messages, foldText(m))
		}
	}
	return d
}

// Detect reports whether status or err indicates throttling.
// A successful status with no error is never throttled.
func (d *RateLimitDetector) Detect(status model.Status, err error) bool {
	if d == nil {
		return false
	}
	if err != nil && d.matchMessage(err.Error()) {
		return true
	}
	if status.Success {
		return false
	}
	if _, ok := d.codes[status.Code]; ok {
		return true
	}
	return d.matchMessage(status.Message)
}

func (d *RateLimitDetector) matchMessage(msg string) bool {
	if msg == "" {
		return false
	}
	folded := foldText(msg)
	for _, m := range d.messages {
		if strings.Contains(folded, m) {
			return true
		}
	}
	return false
}
