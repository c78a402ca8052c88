package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_provider_calls_total",
			Help: "Total number of messaging provider API calls by outcome.",
		},
		[]string{"call", "outcome"},
	)
	providerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_provider_call_duration_seconds",
			Help:    "Messaging provider call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call"},
	)
	providerRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_provider_retries_total",
			Help: "Total number of retried provider operations.",
		},
		[]string{"operation"},
	)
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_lookups_total",
			Help: "Total number of ephemeral cache lookups.",
		},
		[]string{"cache", "result"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		providerCallsTotal,
		providerCallDuration,
		providerRetriesTotal,
		cacheLookupsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func ObserveProviderCall(call, outcome string, elapsed time.Duration) {
	providerCallsTotal.WithLabelValues(call, outcome).Inc()
	providerCallDuration.WithLabelValues(call).Observe(elapsed.Seconds())
}

func IncProviderRetry(operation string) {
	providerRetriesTotal.WithLabelValues(operation).Inc()
}

func IncCacheHit(cache string) {
	cacheLookupsTotal.WithLabelValues(cache, "hit").Inc()
}

func IncCacheMiss(cache string) {
	cacheLookupsTotal.WithLabelValues(cache, "miss").Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
