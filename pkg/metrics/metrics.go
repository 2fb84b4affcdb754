package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the crawl engine and its status API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	URLsInFrontier      prometheus.Gauge
	TasksInFlight       prometheus.Gauge
	CrawlsTotal         *prometheus.CounterVec
	CrawlDuration       *prometheus.HistogramVec
	DuplicateURLsTotal  prometheus.Counter
	LinksDiscovered     prometheus.Counter
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		URLsInFrontier: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "urls_in_frontier",
				Help: "Current number of URLs waiting in the frontier.",
			},
		),
		TasksInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tasks_in_flight",
				Help: "Number of crawl tasks submitted and not yet finished.",
			},
		),
		CrawlsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawls_total",
				Help: "Total number of crawl attempts.",
			},
			[]string{"status", "error_type"}, // status: success, failure, cancelled
		),
		CrawlDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawl_duration_seconds",
				Help:    "Duration of crawl attempts.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"host"},
		),
		DuplicateURLsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "duplicate_urls_total",
				Help: "URLs skipped because they were already claimed.",
			},
		),
		LinksDiscovered: f.NewCounter(
			prometheus.CounterOpts{
				Name: "links_discovered_total",
				Help: "Links pushed to the frontier by crawl tasks.",
			},
		),
	}
}

func (m *Metrics) ObserveCrawl(status, errorType, host string, d time.Duration) {
	if m == nil {
		return
	}
	m.CrawlsTotal.WithLabelValues(status, errorType).Inc()
	m.CrawlDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) SetFrontierSize(n int64) {
	if m == nil {
		return
	}
	m.URLsInFrontier.Set(float64(n))
}

func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.TasksInFlight.Set(float64(n))
}

func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.DuplicateURLsTotal.Inc()
}

func (m *Metrics) AddDiscovered(n int) {
	if m == nil {
		return
	}
	m.LinksDiscovered.Add(float64(n))
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.HTTPRequestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
	m.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
}
