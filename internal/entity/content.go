package entity

import "time"

// Content is the result of a successful fetch.
type Content struct {
	URL            string
	StatusCode     int
	ContentType    string
	Body           []byte
	FetchedAt      time.Time
	ResponseTimeMS int
	// Truncated is set when Body was cut at the fetcher's size limit.
	Truncated bool
}
