package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// Cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Realtime channel
	RealtimeSessions      prometheus.Gauge
	RealtimeEventsTotal   *prometheus.CounterVec
	RealtimeDeliveryTotal *prometheus.CounterVec

	// Chat pipeline
	MessagesPersistedTotal prometheus.Counter
	MessageSendDuration    prometheus.Histogram
	LatestPointerFailures  prometheus.Counter

	// Upstream services (spam classifier, recommender)
	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamDuration      *prometheus.HistogramVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"scope"},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			RealtimeSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "realtime_sessions",
					Help: "Currently connected realtime sessions",
				},
			),
			RealtimeEventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_events_total",
					Help: "Inbound realtime events by type and outcome",
				},
				[]string{"type", "outcome"},
			),
			RealtimeDeliveryTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_deliveries_total",
					Help: "Outbound realtime events by outcome",
				},
				[]string{"outcome"},
			),

			MessagesPersistedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "chat_messages_persisted_total",
					Help: "Chat messages written to the store",
				},
			),
			MessageSendDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "chat_message_send_duration_seconds",
					Help:    "Time from send request to fan-out",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
				},
			),
			LatestPointerFailures: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "chat_latest_pointer_failures_total",
					Help: "Failed latest-message pointer updates",
				},
			),

			UpstreamRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "upstream_requests_total",
					Help: "Calls to external services by outcome",
				},
				[]string{"service", "outcome"},
			),
			UpstreamDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "upstream_request_duration_seconds",
					Help:    "External service latency in seconds",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"service"},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}
