// Package api is the HTTP client for the search and detail gateway.
//
// The gateway exposes two endpoints and wraps every answer in the same
// envelope:
//
//	POST {base}/api/search               body: searchBody
//	GET  {base}/api/detail?note_id=&xsec_token=
//
//	{"success": true, "code": 0, "msg": "", "data": {...}}
//
// A rejected call is reported in-band with success=false. Client turns the
// envelope into a model.Status and never converts an in-band failure into a
// Go error, so the crawl controller can apply its own rate-limit policy to
// the code and message.
//
// Requests are paced by a token bucket (golang.org/x/time/rate) and can be
// routed through a SOCKS5 proxy (golang.org/x/net/proxy). The session cookie
// is attached to every request by the transport.
package api
