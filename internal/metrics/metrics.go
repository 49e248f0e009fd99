package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)
	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		},
	)

	// Kafka
	kafkaMessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_messages_sent_total",
			Help: "Total number of Kafka messages successfully sent.",
		},
	)
	kafkaMessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_processed_total",
			Help: "Total number of flight events consumed, by event type.",
		},
		[]string{"type"},
	)
	kafkaErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_errors_total",
			Help: "Total number of Kafka-related errors.",
		},
		[]string{"component", "operation"},
	)
	kafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (high watermark - current offset - 1).",
		},
		[]string{"topic", "partition"},
	)

	// Route search
	routeSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_searches_total",
			Help: "Route searches by outcome (hit, miss, timeout, invalid).",
		},
		[]string{"outcome"},
	)
	routeSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "route_search_duration_seconds",
			Help:    "Time spent building the graph and enumerating routes.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)
	routesFound = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "route_search_results",
			Help:    "Number of routes returned per search.",
			Buckets: []float64{0, 1, 2, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)
	routeGraphEdges = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "route_search_graph_edges",
			Help:    "Number of flights loaded into the graph per search.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	// Flights
	flightsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flights_created_total",
			Help: "Total number of flights stored.",
		},
	)
	flightsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flights_deleted_total",
			Help: "Total number of flights deleted.",
		},
	)
	flightsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flights_rejected_total",
			Help: "Flight records rejected before storage, by reason.",
		},
		[]string{"reason"},
	)
	flightsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flights_stored",
			Help: "Current number of rows in flights.",
		},
	)

	// Route cache (Redis)
	redisOps = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "route_cache_redis_duration_seconds",
			Help:    "Redis round trips made by the route cache, by operation.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)
	redisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_cache_redis_errors_total",
			Help: "Failed Redis round trips made by the route cache, by operation.",
		},
		[]string{"operation"},
	)
	routeCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_cache_lookups_total",
			Help: "Route cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)
	redisUsedBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "route_cache_redis_used_bytes",
			Help: "used_memory reported by Redis INFO.",
		},
	)

	// Outbox
	outboxMessagesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "outbox_messages_count",
			Help: "Current count of outbox messages by status.",
		},
		[]string{"status"},
	)
	outboxMessagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_messages_sent_total",
			Help: "Total number of outbox messages marked as sent.",
		},
	)
	outboxMessagesFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_messages_failed_total",
			Help: "Total number of outbox messages marked as failed.",
		},
	)
	outboxProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_processing_duration_seconds",
			Help:    "Time spent sending a single outbox message (seconds).",
			Buckets: prometheus.DefBuckets,
		},
	)
	outboxRetryCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_retries_total",
			Help: "Total number of outbox send retries (failed attempts).",
		},
	)
	outboxLagSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_lag_seconds",
			Help:    "Lag between outbox message creation and send attempt (seconds).",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)
	outboxPendingCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_count",
			Help: "Current number of pending outbox messages.",
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			httpInFlight,

			kafkaMessagesSent,
			kafkaMessagesProcessed,
			kafkaErrors,
			kafkaConsumerLag,

			routeSearches,
			routeSearchDuration,
			routesFound,
			routeGraphEdges,

			redisOps,
			redisErrors,
			routeCacheLookups,
			redisUsedBytes,

			flightsCreated,
			flightsDeleted,
			flightsRejected,
			flightsStored,

			outboxMessagesTotal,
			outboxMessagesSentTotal,
			outboxMessagesFailedTotal,
			outboxProcessingDuration,
			outboxRetryCount,
			outboxLagSeconds,
			outboxPendingCount,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// --- HTTP ---
func ObserveHTTPRequest(method, route, code string, d time.Duration) {
	httpRequests.WithLabelValues(method, route, code).Inc()
	httpDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// --- Kafka ---
func IncKafkaSent()                  { kafkaMessagesSent.Inc() }
func IncKafkaProcessed(event string) { kafkaMessagesProcessed.WithLabelValues(event).Inc() }
func IncKafkaError(component, operation string) {
	kafkaErrors.WithLabelValues(component, operation).Inc()
}
func SetKafkaConsumerLag(topic string, partition int32, lag int64) {
	kafkaConsumerLag.WithLabelValues(topic, strconv.Itoa(int(partition))).Set(float64(max(lag, 0)))
}

// --- Route search ---
const (
	SearchHit     = "hit"
	SearchMiss    = "miss"
	SearchTimeout = "timeout"
	SearchInvalid = "invalid"
)

func IncRouteSearch(outcome string) { routeSearches.WithLabelValues(outcome).Inc() }

func ObserveRouteSearch(d time.Duration, edges, routes int) {
	routeSearchDuration.Observe(d.Seconds())
	routeGraphEdges.Observe(float64(edges))
	routesFound.Observe(float64(routes))
}

// --- Route cache ---

// ObserveRedisOp records one Redis round trip; a non-nil err also counts as
// an error for op.
func ObserveRedisOp(op string, d time.Duration, err error) {
	redisOps.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		redisErrors.WithLabelValues(op).Inc()
	}
}

func IncRouteCacheLookup(hit bool) {
	if hit {
		routeCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	routeCacheLookups.WithLabelValues("miss").Inc()
}

func SetRedisUsedBytes(n int64) { redisUsedBytes.Set(float64(max(n, 0))) }

// --- Flights ---
func AddFlightsCreated(n int)         { flightsCreated.Add(float64(max(n, 0))) }
func AddFlightsDeleted(n int)         { flightsDeleted.Add(float64(max(n, 0))) }
func IncFlightRejected(reason string) { flightsRejected.WithLabelValues(reason).Inc() }
func SetFlightsStored(n int64)        { flightsStored.Set(float64(max(n, 0))) }

// --- Outbox ---
func IncOutboxSent()                          { outboxMessagesSentTotal.Inc() }
func IncOutboxFailed()                        { outboxMessagesFailedTotal.Inc() }
func ObserveOutboxProcessing(d time.Duration) { outboxProcessingDuration.Observe(d.Seconds()) }
func IncOutboxRetry()                         { outboxRetryCount.Inc() }
func ObserveOutboxLagSeconds(sec float64)     { outboxLagSeconds.Observe(max(sec, 0)) }

// --- Gauges (DB collectors) ---
func SetOutboxStatusCount(status string, count int64) {
	outboxMessagesTotal.WithLabelValues(status).Set(float64(max(count, 0)))
}
func SetOutboxPendingCount(count int64) {
	outboxPendingCount.Set(float64(max(count, 0)))
}
