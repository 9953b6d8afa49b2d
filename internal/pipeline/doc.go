// Package pipeline stores the media of one note through a sequence of steps.
//
// The crawl controller hands every fetched detail to Pipeline.Store, which
// builds a Job and runs it through the configured steps:
//
//	DownloadStep  fetches the media files into the note directory
//	ExifStep      inspects stored images and flags GPS metadata
//	RecordStep    writes one row per file to the run database
//
// Steps run sequentially in the caller's goroutine.
package pipeline
