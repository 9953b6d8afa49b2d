package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeys contains attribute keys whose values are never logged.
// The session cookie of the search service is split into several named
// parts (a1, web_session, webId) and each of them is enough to hijack
// the session, so all of them are listed.
var sensitiveKeys = map[string]bool{
	// HTTP headers
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"proxy-authorization": true,

	// Session cookie parts
	"a1":          true,
	"web_session": true,
	"webid":       true,
	"gid":         true,
	"session":     true,
	"session_id":  true,

	// Per-note access tokens
	"xsec_token": true,
	"xsectoken":  true,

	// Generic secrets
	"password":   true,
	"secret":     true,
	"token":      true,
	"credential": true,
}

// sensitiveKeywords are substrings that mark a key as sensitive.
// The bare word "key" is deliberately absent: it matches "keyword", which
// is logged on every search call.
var sensitiveKeywords = []string{
	"password", "secret", "token", "cookie", "credential", "session",
}

// sensitiveQueryParams are URL query parameters replaced with MaskValue
// when a URL-valued attribute is logged.
var sensitiveQueryParams = []string{"xsec_token", "token", "a1", "web_session"}

// sensitivePatterns match values that are secrets regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	// Raw cookie headers carrying a session part.
	regexp.MustCompile(`(?i)(^|;\s*)(a1|web_session|webId)=`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Proxy URLs with embedded credentials.
	regexp.MustCompile(`(?i)^socks5h?://[^:/@]+:[^@]+@`),
}

// SecureHandler wraps an slog.Handler and masks sensitive attribute values
// before they reach the underlying handler.
//
// Design decision: masking happens in a handler wrapper so every component
// can keep using a plain *slog.Logger. The crawl controller, the API client
// and the media pipeline never need to know which attributes are secret.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes masked and added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr masks a single attribute, recursing into groups.
func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	v := a.Value.String()
	if isSensitiveValue(v) {
		return slog.String(a.Key, MaskValue)
	}
	if masked, ok := maskURLQuery(v); ok {
		return slog.String(a.Key, masked)
	}
	return a
}

// IsSensitiveKey reports whether values logged under key are masked.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if sensitiveKeys[k] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(k, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(v string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}

// maskURLQuery replaces sensitive query parameters of an absolute URL.
// It reports false when v is not a URL or carries nothing to mask.
func maskURLQuery(v string) (string, bool) {
	if !strings.Contains(v, "://") || !strings.Contains(v, "?") {
		return "", false
	}
	u, err := url.Parse(v)
	if err != nil || u.RawQuery == "" {
		return "", false
	}
	q := u.Query()
	changed := false
	for _, p := range sensitiveQueryParams {
		if q.Has(p) {
			q.Set(p, MaskValue)
			changed = true
		}
	}
	if !changed {
		return "", false
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}

// Options configures New.
type Options struct {
	// Verbose lowers the level to Debug. The default level is Info so that
	// per-round progress is visible without any flag.
	Verbose bool

	// JSON selects JSON lines instead of logfmt-style text.
	JSON bool
}

// New creates a *slog.Logger writing to w through a SecureHandler.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if opts.JSON {
		inner = slog.NewJSONHandler(w, handlerOpts)
	} else {
		inner = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewSecureHandler(inner))
}

// NewSecureLogger creates a text logger with secure handling.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, Options{Verbose: verbose})
}

// NewSecureJSONLogger creates a JSON logger with secure handling.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, Options{Verbose: verbose, JSON: true})
}
