package api

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not in
	// "host:port" format.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrMissingBaseURL is returned by NewClient when no base URL is given.
	ErrMissingBaseURL = errors.New("api base URL is required")

	// ErrRateLimited is returned when the gateway answers with a throttling
	// HTTP status (429 or 461).
	ErrRateLimited = errors.New("api rate limited")

	// ErrUnexpectedStatus is returned for any other non-2xx HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)
