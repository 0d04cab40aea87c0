// Package httpx carries HTTP middleware shared by the service router.
package httpx

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests received",
	}, []string{"method", "path", "status"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "Number of in-flight HTTP requests",
	})
)

// Metrics returns a gin middleware that records request counts,
// latencies, and the in-flight gauge.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		inFlight.Inc()
		c.Next()
		inFlight.Dec()

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())
		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
