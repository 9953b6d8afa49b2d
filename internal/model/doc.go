// Package model defines the core data structures used throughout notecrawl.
//
// This package contains the following main types:
//   - Item: A search result returned by the remote search API
//   - Detail: The normalized per-item payload handed to the media sink
//   - SearchRequest: The parameters of a single search call
//   - Tally: Per-outcome counters for processed items
//   - RunSummary: The result of a complete crawl run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawl controller, the API client, the media pipeline and
// the report writers all need these types, so centralizing them prevents
// import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
