package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/crawl-engine/internal/delivery/http/handler"
	"github.com/user/crawl-engine/internal/delivery/http/response"
	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/usecase"
	"github.com/user/crawl-engine/pkg/metrics"
)

type fakeCrawl struct {
	mu      sync.Mutex
	seeds   []string
	stopped bool
	failErr error
}

func (f *fakeCrawl) Snapshot() entity.CrawlSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := "draining"
	if f.stopped {
		state = "stopped"
	}
	return entity.CrawlSummary{StartURL: "http://example.com/", State: state, Visited: len(f.seeds) + 1}
}

func (f *fakeCrawl) Seed(_ context.Context, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.failErr != nil:
		return f.failErr
	case f.stopped:
		return usecase.ErrCrawlStopped
	case !strings.HasPrefix(raw, "http"):
		return usecase.ErrInvalidSeed
	}
	f.seeds = append(f.seeds, raw)
	return nil
}

func newTestServer(t *testing.T, crawl *fakeCrawl) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	logger := zaptest.NewLogger(t)
	srv := httptest.NewServer(New(handler.NewHandler(crawl, logger), metrics.New(reg), reg, logger))
	t.Cleanup(srv.Close)
	return srv, reg
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newTestServer(t, &fakeCrawl{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body response.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "draining", body.State)
}

func TestRouter_Status(t *testing.T) {
	srv, _ := newTestServer(t, &fakeCrawl{})

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var summary entity.CrawlSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, "http://example.com/", summary.StartURL)
	assert.Equal(t, 1, summary.Visited)
}

func TestRouter_SubmitSeeds(t *testing.T) {
	tests := []struct {
		name       string
		crawl      *fakeCrawl
		body       string
		wantStatus int
		wantSeeds  int
	}{
		{"single url", &fakeCrawl{}, `{"url":"http://a.test/"}`, http.StatusAccepted, 1},
		{"url list", &fakeCrawl{}, `{"urls":["http://a.test/","http://b.test/"]}`, http.StatusAccepted, 2},
		{"malformed body", &fakeCrawl{}, `{`, http.StatusBadRequest, 0},
		{"empty", &fakeCrawl{}, `{}`, http.StatusBadRequest, 0},
		{"invalid url", &fakeCrawl{}, `{"url":"mailto:x@y.z"}`, http.StatusBadRequest, 0},
		{"one invalid url in list", &fakeCrawl{}, `{"urls":["http://ok.test/","notaurl"]}`, http.StatusBadRequest, 0},
		{"crawl stopped", &fakeCrawl{stopped: true}, `{"url":"http://a.test/"}`, http.StatusConflict, 0},
		{"backend error", &fakeCrawl{failErr: errors.New("redis down")}, `{"url":"http://a.test/"}`, http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.crawl)

			resp, err := http.Post(srv.URL+"/api/seeds", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Len(t, tt.crawl.seeds, tt.wantSeeds)
		})
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, &fakeCrawl{})

	resp, err := http.Get(srv.URL + "/api/seeds")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_Metrics(t *testing.T) {
	srv, reg := newTestServer(t, &fakeCrawl{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()

	// The middleware records after the response has been flushed.
	assert.Eventually(t, func() bool {
		families, err := reg.Gather()
		if err != nil {
			return false
		}
		for _, mf := range families {
			if mf.GetName() == "http_requests_total" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_MetricsUnmatchedPathLabel(t *testing.T) {
	srv, reg := newTestServer(t, &fakeCrawl{})

	resp, err := http.Get(srv.URL + "/no/such/page-8731")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	pathLabels := func() []string {
		families, err := reg.Gather()
		if err != nil {
			return nil
		}
		var paths []string
		for _, mf := range families {
			if mf.GetName() != "http_requests_total" {
				continue
			}
			for _, m := range mf.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == "path" {
						paths = append(paths, l.GetValue())
					}
				}
			}
		}
		return paths
	}

	assert.Eventually(t, func() bool {
		for _, p := range pathLabels() {
			if p == "unmatched" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	assert.NotContains(t, pathLabels(), "/no/such/page-8731")
}
