package media

import "errors"

var (
	// ErrMediaTooLarge is returned when a download exceeds the size limit.
	ErrMediaTooLarge = errors.New("media file exceeds size limit")

	// ErrNoMedia is returned when a detail has no media of the requested kind.
	ErrNoMedia = errors.New("detail has no media of the requested kind")

	// ErrNilHTTPClient is returned by NewDownloader when no client is given.
	ErrNilHTTPClient = errors.New("downloader needs an HTTP client")
)
