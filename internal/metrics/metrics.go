package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comms_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// MessagesSent counts send-message attempts by channel and outcome.
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_messages_sent_total",
			Help: "Outbound messages by channel and outcome",
		},
		[]string{"type", "outcome"},
	)

	CallsInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_calls_initiated_total",
			Help: "Outbound calls by outcome",
		},
		[]string{"outcome"},
	)

	// StatusCallbacks counts provider status callbacks; outcome is applied, stale, not_found, ignored or error.
	StatusCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_status_callbacks_total",
			Help: "Provider status callbacks by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	InboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_inbound_messages_total",
			Help: "Incoming messages recorded by channel",
		},
		[]string{"type"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCount, RequestDuration, MessagesSent, CallsInitiated, StatusCallbacks, InboundMessages)
	})
}

// Middleware records request count and latency per route template.
// Unmatched routes are grouped under "unmatched" to keep label cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		RequestCount.WithLabelValues(path, method, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
	}
}
