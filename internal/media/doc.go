// Package media stores note media on disk and counts what is already there.
//
// The on-disk count is the single source of truth for crawl progress:
// Counter walks the media directory and counts files by extension, and
// Downloader writes every file through a temporary name and an atomic
// rename so an interrupted download is never counted.
//
// Layout:
//
//	<media dir>/<note id>/<index>_<content hash><ext>
package media
