package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SortStrategy selects how the search API orders its results.
// Crawling the same keyword with several strategies surfaces
// different notes, which is what keeps later rounds productive.
type SortStrategy int

const (
	// SortGeneral is the default relevance ordering.
	SortGeneral SortStrategy = iota

	// SortLatest orders by publish time, newest first.
	SortLatest

	// SortMostLiked orders by like count.
	SortMostLiked

	// SortMostCommented orders by comment count.
	SortMostCommented

	// SortMostCollected orders by collect count.
	SortMostCollected
)

// sortNames maps each strategy to its configuration name.
var sortNames = map[SortStrategy]string{
	SortGeneral:       "general",
	SortLatest:        "latest",
	SortMostLiked:     "most_liked",
	SortMostCommented: "most_commented",
	SortMostCollected: "most_collected",
}

// String returns the configuration name of the strategy.
func (s SortStrategy) String() string {
	if name, ok := sortNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSortStrategy parses a strategy from its name or its numeric value.
func ParseSortStrategy(s string) (SortStrategy, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for strategy, name := range sortNames {
		if v == name {
			return strategy, nil
		}
	}
	if n, err := strconv.Atoi(v); err == nil {
		if _, ok := sortNames[SortStrategy(n)]; ok {
			return SortStrategy(n), nil
		}
	}
	return 0, fmt.Errorf("unknown sort strategy %q", s)
}

// MarshalYAML encodes the strategy by name.
func (s SortStrategy) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML accepts both names and numbers.
func (s *SortStrategy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseSortStrategy(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// NoteType restricts search results to a note type.
type NoteType int

const (
	// NoteTypeAll returns every note type.
	NoteTypeAll NoteType = iota

	// NoteTypeVideo returns video notes only.
	NoteTypeVideo

	// NoteTypeNormal returns image/text notes only.
	NoteTypeNormal
)

// String returns the configuration name of the note type.
func (t NoteType) String() string {
	switch t {
	case NoteTypeAll:
		return "all"
	case NoteTypeVideo:
		return "video"
	case NoteTypeNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// ParseNoteType parses a note type from its name or numeric value.
func ParseNoteType(s string) (NoteType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "0":
		return NoteTypeAll, nil
	case "video", "1":
		return NoteTypeVideo, nil
	case "normal", "image", "2":
		return NoteTypeNormal, nil
	default:
		return 0, fmt.Errorf("unknown note type %q", s)
	}
}

// SearchRequest holds the parameters of one search call.
// Only Keyword, Sort and PageSize influence the crawl loop; the
// remaining filters are passed through to the API untouched.
type SearchRequest struct {
	Keyword  string       `json:"keyword"`
	Sort     SortStrategy `json:"sort"`
	PageSize int          `json:"page_size"`
	NoteType NoteType     `json:"note_type"`

	// NoteTime limits the publish window (0 = any time).
	NoteTime int `json:"note_time"`

	// NoteRange limits the author relationship (0 = anyone).
	NoteRange int `json:"note_range"`

	// PosDistance limits the distance from Geo (0 = anywhere).
	PosDistance int `json:"pos_distance"`

	// Geo is an opaque location string used together with PosDistance.
	Geo string `json:"geo,omitempty"`
}
