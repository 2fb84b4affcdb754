package repository

import (
	"errors"
	"fmt"
)

var (
	ErrFetchTimeout     = errors.New("fetch timed out")
	ErrNonSuccessStatus = errors.New("non-success status code")
	ErrNavigationFailed = errors.New("navigation failed")
	ErrExtractionFailed = errors.New("link extraction failed")
)

// FetchError is the failure outcome of a Fetcher. Status is the HTTP status code when one was received.
type FetchError struct {
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrorType classifies err for metrics and failure records.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, ErrNonSuccessStatus):
		return "status"
	case errors.Is(err, ErrNavigationFailed):
		return "navigation"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction"
	default:
		return "unknown"
	}
}
