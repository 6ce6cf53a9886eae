// Package metrics provides Prometheus metrics for the dashboard.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors used by the gateway, the use case and the server.
// All methods are safe to call on a nil receiver.
type Metrics struct {
	SearchPages     prometheus.Counter
	SearchPageTime  prometheus.Histogram
	FetchFailures   prometheus.Counter
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	HTTPRequestTime *prometheus.HistogramVec
}

// New creates and registers all dashboard metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SearchPages: factory.NewCounter(prometheus.CounterOpts{
			Name: "pr_dashboard_search_pages_total",
			Help: "Number of GitHub search result pages fetched",
		}),
		SearchPageTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pr_dashboard_search_page_duration_seconds",
			Help:    "Duration of a single GitHub search page request",
			Buckets: prometheus.DefBuckets,
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pr_dashboard_fetch_failures_total",
			Help: "Number of pull request fetches that failed",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "pr_dashboard_cache_hits_total",
			Help: "Number of pull request collections served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "pr_dashboard_cache_misses_total",
			Help: "Number of pull request collections fetched from GitHub",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pr_dashboard_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pr_dashboard_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveSearchPage(d time.Duration) {
	if m == nil {
		return
	}
	m.SearchPages.Inc()
	m.SearchPageTime.Observe(d.Seconds())
}

func (m *Metrics) IncFetchFailure() {
	if m == nil {
		return
	}
	m.FetchFailures.Inc()
}

func (m *Metrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestTime.WithLabelValues(method, route).Observe(d.Seconds())
}
