// Package metrics exposes Prometheus collectors for chart scraping runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector defined by this package.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	fetchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billboard_fetches_total",
			Help: "Total number of chart page requests, labeled by chart and status.",
		},
		[]string{"chart", "status"},
	)

	fetchBytesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billboard_fetch_bytes_total",
			Help: "Total number of page bytes fetched, labeled by chart.",
		},
		[]string{"chart"},
	)

	fetchDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billboard_fetch_duration_seconds",
			Help:    "Histogram of chart page request latencies, labeled by chart.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"chart"},
	)

	entriesExtractedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billboard_entries_extracted_total",
			Help: "Total number of chart entries extracted, labeled by chart.",
		},
		[]string{"chart"},
	)

	rowsSkippedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billboard_rows_skipped_total",
			Help: "Total number of malformed chart rows dropped, labeled by chart.",
		},
		[]string{"chart"},
	)

	storeEntries = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billboard_store_entries",
			Help: "Number of entries in a chart store after the last merge.",
		},
		[]string{"chart"},
	)

	httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveFetch records one chart page request.
func ObserveFetch(chart, status string, bytesFetched int, duration time.Duration) {
	fetchesTotal.WithLabelValues(chart, status).Inc()
	fetchDurationSeconds.WithLabelValues(chart).Observe(duration.Seconds())
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(chart).Add(float64(bytesFetched))
	}
}

// ObserveExtraction records the outcome of parsing one chart page.
func ObserveExtraction(chart string, entries, skipped int) {
	if entries > 0 {
		entriesExtractedTotal.WithLabelValues(chart).Add(float64(entries))
	}
	if skipped > 0 {
		rowsSkippedTotal.WithLabelValues(chart).Add(float64(skipped))
	}
}

// SetStoreEntries records the size of a chart store after a merge.
func SetStoreEntries(chart string, n int) {
	storeEntries.WithLabelValues(chart).Set(float64(n))
}

// ObserveHTTPRequest records one request served by the metrics server.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
