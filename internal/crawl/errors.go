package crawl

import "errors"

var (
	// ErrNilCollaborator is returned by NewController when a required
	// collaborator is nil.
	ErrNilCollaborator = errors.New("crawl collaborator must not be nil")

	// ErrNoPairs is returned by NewController when the target has no
	// keyword or no sort strategy, so a round would be empty.
	ErrNoPairs = errors.New("crawl target needs at least one keyword and one sort strategy")

	// ErrEmptyMediaDir is returned by NewController when the target has no
	// destination directory.
	ErrEmptyMediaDir = errors.New("crawl target needs a media directory")
)
