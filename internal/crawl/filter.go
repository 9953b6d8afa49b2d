package crawl

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// ContentFilter rejects items whose text contains a blacklisted term.
//
// Matching is case-insensitive under Unicode case folding, and full-width
// forms are folded to their narrow equivalents first, so "ＡＤ" matches a
// blacklist entry "ad".
type ContentFilter struct {
	terms    []string
	original []string
}

// NewContentFilter builds a filter from blacklist terms.
// Blank terms are dropped.
func NewContentFilter(blacklist []string) *ContentFilter {
	f := &ContentFilter{}
	for _, term := range blacklist {
		folded := foldText(strings.TrimSpace(term))
		if folded == "" {
			continue
		}
		f.terms = append(f.terms, folded)
		f.original = append(f.original, term)
	}
	return f
}

// Blocked reports whether text contains a blacklisted term, and which one.
func (f *ContentFilter) Blocked(text string) (string, bool) {
	if f == nil || len(f.terms) == 0 {
		return "", false
	}
	folded := foldText(text)
	for i, term := range f.terms {
		if strings.Contains(folded, term) {
			return f.original[i], true
		}
	}
	return "", false
}

// Len returns the number of active terms.
func (f *ContentFilter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.terms)
}

func foldText(s string) string {
	return cases.Fold().String(width.Fold.String(s))
}
