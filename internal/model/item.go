package model

// ItemKind classifies a search result.
// Only note-shaped results carry media; other kinds (users, hashtags,
// recommended queries) are discarded by the crawl controller.
type ItemKind string

const (
	// ItemKindNote is a regular note with media attached.
	ItemKindNote ItemKind = "note"

	// ItemKindUser is a user card mixed into search results.
	ItemKindUser ItemKind = "user"

	// ItemKindQuery is a related-search suggestion.
	ItemKindQuery ItemKind = "rec_query"
)

// Item is a single search-result record.
// It only lives for the duration of one search-and-download cycle.
type Item struct {
	// ID is the remote identifier of the note.
	// It is the deduplication key for the whole run.
	ID string `json:"id"`

	// Kind is the result kind reported by the search API.
	Kind ItemKind `json:"kind"`

	// Title is the note title as shown in search results.
	Title string `json:"title"`

	// Description is the note body snippet as shown in search results.
	Description string `json:"description"`

	// XsecToken is the opaque token required to look up the note detail.
	XsecToken string `json:"xsec_token"`

	// URL is the canonical web URL of the note, if the API provides it.
	URL string `json:"url,omitempty"`
}

// IsNote reports whether the item is a note-shaped result.
func (i Item) IsNote() bool {
	return i.Kind == ItemKindNote
}

// Text returns the text the content filter is applied to.
func (i Item) Text() string {
	return i.Title + "\n" + i.Description
}

// Detail is the normalized detail payload of a note.
type Detail struct {
	// ID is the note identifier.
	ID string `json:"id"`

	// Title is the full note title.
	Title string `json:"title"`

	// Description is the full note body.
	Description string `json:"description"`

	// Type is the note type reported by the detail API ("normal" or "video").
	Type string `json:"type"`

	// Author is the display name of the note author.
	Author string `json:"author,omitempty"`

	// ImageURLs lists the image URLs attached to the note, in display order.
	ImageURLs []string `json:"image_urls,omitempty"`

	// VideoURL is the video stream URL for video notes.
	VideoURL string `json:"video_url,omitempty"`

	// URL is the canonical web URL of the note.
	URL string `json:"url,omitempty"`
}

// MediaURLs returns the media URLs of the detail that match the given kind.
func (d *Detail) MediaURLs(kind MediaKind) []string {
	if d == nil {
		return nil
	}
	urls := make([]string, 0, len(d.ImageURLs)+1)
	if kind.IncludesImages() {
		for _, u := range d.ImageURLs {
			if u != "" {
				urls = append(urls, u)
			}
		}
	}
	if kind.IncludesVideos() && d.VideoURL != "" {
		urls = append(urls, d.VideoURL)
	}
	return urls
}

// HasMedia reports whether the detail carries any media of the given kind.
func (d *Detail) HasMedia(kind MediaKind) bool {
	return len(d.MediaURLs(kind)) > 0
}

// Status is the status triple returned by search and detail calls.
// The remote service reports failures in-band, so a call can complete
// without a transport error and still carry Success == false.
type Status struct {
	// Success is false when the service rejected the call.
	Success bool `json:"success"`

	// Code is the service-specific status code, or the HTTP status code
	// when the failure happened at the transport level.
	Code int `json:"code"`

	// Message is the human-readable status message.
	Message string `json:"message"`
}

// OK returns a successful status.
func OK() Status {
	return Status{Success: true}
}

// Failed returns a failed status with the given code and message.
func Failed(code int, message string) Status {
	return Status{Success: false, Code: code, Message: message}
}
