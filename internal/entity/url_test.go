package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewURL(t *testing.T) {
	a, err := NewURL("HTTP://Example.com#top", 2)
	require.NoError(t, err)
	b, err := NewURL("http://example.com/", 0)
	require.NoError(t, err)

	assert.Equal(t, a.Key, b.Key, "equivalent URLs must share a crawl key")
	assert.Equal(t, 2, a.Depth)
	assert.Equal(t, "http://example.com/", a.String())

	_, err = NewURL("ftp://example.com/file", 0)
	assert.Error(t, err)
}
