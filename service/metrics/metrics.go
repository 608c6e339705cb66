package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Status Fetch Metrics
	statusFetchesTotal *prometheus.CounterVec
	fixtureHitsTotal   *prometheus.CounterVec
	blockTimeFallbacks *prometheus.CounterVec

	// Store Metrics
	storeTransactions *prometheus.GaugeVec
	staleDropsTotal   *prometheus.CounterVec
	storeClearsTotal  *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections *prometheus.GaugeVec
	sseEventsSent        *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		// Status Fetch Metrics
		statusFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_fetches_total",
				Help: "Total number of signature status fetches by outcome",
			},
			[]string{"outcome", "endpoint"},
		),
		fixtureHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_fixture_hits_total",
				Help: "Total number of fetches satisfied by the static fixture cache",
			},
			[]string{"endpoint"},
		),
		blockTimeFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_block_time_fallbacks_total",
				Help: "Total number of fetches where the block-time lookup failed and the timestamp degraded to unavailable",
			},
			[]string{"endpoint"},
		),

		// Store Metrics
		storeTransactions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "status_store_transactions",
				Help: "Number of transaction status records currently held by the store",
			},
			[]string{"endpoint"},
		),
		staleDropsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_store_stale_drops_total",
				Help: "Total number of store actions dropped because they carried a superseded cluster URL",
			},
			[]string{"action"},
		),
		storeClearsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_store_clears_total",
				Help: "Total number of store clears (cluster switches)",
			},
			[]string{"endpoint"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by handler, method, and status class",
			},
			[]string{"handler", "method", "code"},
		),
		sseActiveConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE connections",
			},
			[]string{"signature"},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
			[]string{"signature"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published by subject and status",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordStatusFetch records a completed status fetch by terminal outcome.
// Outcome is one of "fetched", "not_found", "fixture", or "fetch_failed".
func (m *Metrics) RecordStatusFetch(outcome, endpoint string) {
	m.statusFetchesTotal.WithLabelValues(outcome, endpoint).Inc()
}

// RecordFixtureHit records a fetch satisfied by the static fixture cache.
func (m *Metrics) RecordFixtureHit(endpoint string) {
	m.fixtureHitsTotal.WithLabelValues(endpoint).Inc()
}

// RecordBlockTimeFallback records a block-time lookup failure.
func (m *Metrics) RecordBlockTimeFallback(endpoint string) {
	m.blockTimeFallbacks.WithLabelValues(endpoint).Inc()
}

// SetStoreTransactions records the current store size for an endpoint.
func (m *Metrics) SetStoreTransactions(endpoint string, count float64) {
	m.storeTransactions.WithLabelValues(endpoint).Set(count)
}

// RecordStaleDrop records a store action dropped by the URL guard.
func (m *Metrics) RecordStaleDrop(action string) {
	m.staleDropsTotal.WithLabelValues(action).Inc()
}

// RecordStoreClear records a store clear.
func (m *Metrics) RecordStoreClear(endpoint string) {
	m.storeClearsTotal.WithLabelValues(endpoint).Inc()
}

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	m.httpRequestsTotal.WithLabelValues(handler, method, httpStatusClass(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(duration)
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(signature string, delta float64) {
	m.sseActiveConnections.WithLabelValues(signature).Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(signature string) {
	m.sseEventsSent.WithLabelValues(signature).Inc()
}

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// httpStatusClass maps a status code to its class label ("2xx", "4xx", ...).
func httpStatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
