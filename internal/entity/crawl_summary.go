package entity

import "time"

// CrawlSummary is the reportable result of a crawl, also served live by the status API.
type CrawlSummary struct {
	StartURL   string      `json:"start_url"`
	State      string      `json:"state"`
	Visited    int         `json:"visited"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Cancelled  int         `json:"cancelled"`
	Duplicates int         `json:"duplicates"`
	Discovered int         `json:"discovered"`
	InFlight   int         `json:"in_flight"`
	Forced     bool        `json:"forced_shutdown"`
	Failures   []FailedURL `json:"failures,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}
