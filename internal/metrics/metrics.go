// Package metrics provides Prometheus metrics collection for the image cache.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, path, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// CacheOperationsTotal tracks tier operations by tier, operation, and result.
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_cache_operations_total",
			Help: "Total number of image cache tier operations",
		},
		[]string{"tier", "operation", "result"},
	)

	// MemoryCacheEntries tracks the number of entries in the memory tier.
	MemoryCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_cache_memory_entries",
			Help: "Current number of entries in the memory tier",
		},
	)

	// MemoryCacheBytes tracks the total byte cost held by the memory tier.
	MemoryCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_cache_memory_bytes",
			Help: "Current number of bytes held by the memory tier",
		},
	)

	// DiskCacheBytes tracks the last measured size of the disk tier directory.
	DiskCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_cache_disk_bytes",
			Help: "Last measured size of the disk tier directory in bytes",
		},
	)

	// FetchesTotal tracks origin fetches by result.
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_fetches_total",
			Help: "Total number of origin image fetches",
		},
		[]string{"result"},
	)

	// FetchDuration tracks origin fetch duration.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_fetch_duration_seconds",
			Help:    "Origin image fetch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// FetchedBytes tracks the size of successfully fetched payloads.
	FetchedBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_fetched_bytes",
			Help:    "Size of fetched image payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	// SharedFetchesTotal counts lookups that joined a fetch already in flight.
	SharedFetchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_fetches_shared_total",
			Help: "Total number of lookups served by an in-flight fetch for the same key",
		},
	)

	// OriginBreakerState tracks each origin host's circuit breaker (0 closed, 1 open, 2 half-open).
	OriginBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_origin_circuit_breaker_state",
			Help: "Circuit breaker state per origin host (0 closed, 1 open, 2 half-open)",
		},
		[]string{"host"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
		HTTPRequestTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordCacheOperation records metrics for a tier operation.
func RecordCacheOperation(tier, operation, result string) {
	CacheOperationsTotal.WithLabelValues(tier, operation, result).Inc()
}

// UpdateMemoryCacheMetrics updates the memory tier gauges.
func UpdateMemoryCacheMetrics(entries int, bytes int64) {
	MemoryCacheEntries.Set(float64(entries))
	MemoryCacheBytes.Set(float64(bytes))
}

// UpdateDiskCacheBytes updates the disk tier size gauge.
func UpdateDiskCacheBytes(bytes int64) {
	DiskCacheBytes.Set(float64(bytes))
}

// RecordFetch records metrics for one origin fetch.
func RecordFetch(duration time.Duration, size int, result string) {
	FetchDuration.Observe(duration.Seconds())
	FetchesTotal.WithLabelValues(result).Inc()
	if result == "success" {
		FetchedBytes.Observe(float64(size))
	}
}

// RecordSharedFetch records a lookup that joined an in-flight fetch.
func RecordSharedFetch() {
	SharedFetchesTotal.Inc()
}

// RecordRateLimited records a request rejected by the rate limiter.
func RecordRateLimited() {
	RateLimitedTotal.Inc()
}

// SetOriginBreakerState records the breaker state of an origin host.
func SetOriginBreakerState(host string, state int) {
	OriginBreakerState.WithLabelValues(host).Set(float64(state))
}
