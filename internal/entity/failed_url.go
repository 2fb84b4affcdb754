package entity

import "time"

// FailedURL describes a crawl attempt that did not produce content.
type FailedURL struct {
	URL                  string    `json:"url"`
	FailureReason        string    `json:"failure_reason"`
	ErrorType            string    `json:"error_type"`
	HTTPStatusCode       int       `json:"http_status_code,omitempty"`
	LastAttemptTimestamp time.Time `json:"last_attempt_timestamp"`
}
