// Prometheus instrumentation for HTTP traffic.
//
// Every request is counted by method, registered route and status; the route
// falls back to the raw path only when nothing matched. Public tracking
// routes additionally feed tracking_lookups_total with an outcome, so lookup
// misses and throttling can be watched separately from admin traffic.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-shipment-tracker/internal/observability"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// Sized for JSON views up to multi-page PDF reports.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Lookup outcomes recorded in tracking_lookups_total.
const (
	LookupFound     = "found"
	LookupNotFound  = "not_found"
	LookupInvalid   = "invalid"
	LookupThrottled = "throttled"
	LookupError     = "error"
)

// LookupOutcome classifies the response status of a public lookup.
func LookupOutcome(status int) string {
	switch {
	case status >= 200 && status < 400:
		return LookupFound
	case status == 404:
		return LookupNotFound
	case status == 429:
		return LookupThrottled
	case status >= 400 && status < 500:
		return LookupInvalid
	default:
		return LookupError
	}
}

// Metrics instruments every request. lookupRoutes are the registered route
// patterns (c.FullPath()) of public tracking lookups.
func Metrics(lookupRoutes ...string) gin.HandlerFunc {
	lookups := make(map[string]struct{}, len(lookupRoutes))
	for _, r := range lookupRoutes {
		lookups[r] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := c.FullPath()
		path := route
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := c.Writer.Status()

		httpReqs.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
		if _, ok := lookups[route]; ok {
			observability.TrackingLookups.WithLabelValues(route, LookupOutcome(status)).Inc()
		}
	}
}
