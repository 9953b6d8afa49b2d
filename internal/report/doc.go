// Package report renders crawl run summaries and run history.
//
// Three formats are supported: plain text for the terminal, JSON for tool
// integration and Markdown for sharing. The Markdown writer also renders the
// run history table used by the history command.
package report
