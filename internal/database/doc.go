// Package database provides SQLite-based storage for notecrawl.
//
// This package implements the CrawlDB, which stores:
//   - Run history with the final summary of every crawl
//   - The seen journal of processed item identifiers
//   - An index of the media files written to disk
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the
// database is a single file next to the media, and the CGO-free driver keeps
// cross-compilation simple.
package database
