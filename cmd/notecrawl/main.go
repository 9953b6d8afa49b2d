// Package main provides the entry point for the notecrawl CLI.
//
// notecrawl collects note media from a search service until a target number
// of files exists on disk. A run walks every (keyword, sort strategy) pair
// in rounds, skips items it has already processed and stops when the target
// is reached or when rounds stop producing new media.
//
// Usage:
//
//	notecrawl crawl -k keyword -n 500
//	notecrawl count ./media
//	notecrawl history
//
// See --help for all available options.
package main

// main is the entry point for notecrawl.
func main() {
	Execute()
}
