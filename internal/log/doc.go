// Package log provides slog loggers that never print session secrets.
//
// A crawl run logs every search call, every detail lookup and every stored
// media file. Those records routinely carry values that grant access to the
// operator's account on the search service: the session cookie, its a1 and
// web_session parts, and the per-note xsec_token. SecureHandler wraps any
// slog.Handler and masks them:
//   - attributes whose key names a secret (cookie, xsec_token, token, ...)
//   - values that look like a cookie header, bearer token or JWT
//   - secret query parameters inside URL-valued attributes
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	logger.Info("detail fetched",
//	    "note_id", "64f1c0",
//	    "xsec_token", "ABx9...",  // logged as ***REDACTED***
//	)
package log
