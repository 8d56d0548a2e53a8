package feed

import "time"

// Feed is a parsed RSS/Atom document
type Feed struct {
	Title       string
	Description string
	Link        string
	Entries     []Entry
}

// Entry is a single feed entry as published by the source
type Entry struct {
	GUID        string
	Title       string
	Link        string
	Description string // summary, often html
	Content     string // full content if the feed carries it, often html
	Author      string
	Published   time.Time // zero if the entry has no parseable date
	RawDate     string    // date as found in the feed, for error reporting
}

// HasDate reports whether the entry carries a parseable publication time
func (e Entry) HasDate() bool {
	return !e.Published.IsZero()
}
