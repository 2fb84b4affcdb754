package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchError(t *testing.T) {
	err := fmt.Errorf("crawl: %w", &FetchError{
		URL:     "http://example.com/",
		Status:  404,
		Message: "Not Found",
		Err:     ErrNonSuccessStatus,
	})

	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, 404, fe.Status)
	assert.ErrorIs(t, err, ErrNonSuccessStatus)
	assert.Contains(t, err.Error(), "status 404")
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "", ErrorType(nil))
	assert.Equal(t, "timeout", ErrorType(&FetchError{Err: ErrFetchTimeout}))
	assert.Equal(t, "status", ErrorType(&FetchError{Err: ErrNonSuccessStatus}))
	assert.Equal(t, "navigation", ErrorType(&FetchError{Err: ErrNavigationFailed}))
	assert.Equal(t, "extraction", ErrorType(fmt.Errorf("x: %w", ErrExtractionFailed)))
	assert.Equal(t, "unknown", ErrorType(context.Canceled))
}
