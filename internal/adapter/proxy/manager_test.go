package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetProxyRotates(t *testing.T) {
	m, invalid := NewManager([]string{"http://p1:8000", "::bad", "http://p2:8000"}, nil, 1)
	assert.Equal(t, []string{"::bad"}, invalid)

	first := m.GetProxy()
	second := m.GetProxy()
	third := m.GetProxy()
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "p1:8000", first.Host)
	assert.Equal(t, "p2:8000", second.Host)
	assert.Equal(t, first, third)
}

func TestManager_NoProxies(t *testing.T) {
	m, _ := NewManager(nil, nil, 1)
	assert.Nil(t, m.GetProxy())

	proxyURL, err := m.ProxyFunc(nil)
	assert.NoError(t, err)
	assert.Nil(t, proxyURL)
}

func TestManager_GetUserAgent(t *testing.T) {
	m, _ := NewManager(nil, nil, 1)
	assert.Contains(t, DefaultUserAgents, m.GetUserAgent())

	m, _ = NewManager(nil, []string{"crawl-engine/1.0"}, 1)
	assert.Equal(t, "crawl-engine/1.0", m.GetUserAgent())
}
