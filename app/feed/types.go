package feed

import (
	"time"
)

// Metadata contains metadata about a parsed feed.
type Metadata struct {
	Title       string
	Link        string
	Description string
}

// Post is a normalized feed item. Published keeps the feed's own date
// string verbatim for display; PublishedAt is nil when that string could
// not be parsed.
type Post struct {
	Title       string
	Link        string
	Published   string
	PublishedAt *time.Time
	Description string
	Content     string
}
