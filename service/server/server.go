package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/sigwatch/service/cluster"
	"github.com/brojonat/sigwatch/service/metrics"
	"github.com/brojonat/sigwatch/service/status"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server for the signature status service.
type Server struct {
	addr         string
	store        *status.Store
	fetcher      *status.Fetcher
	clusters     *cluster.Manager
	ssePublisher *SSEPublisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The ssePublisher is optional - if nil, SSE endpoints won't be available.
// The metrics is optional - if nil, the metrics endpoint won't be
// available.
func New(
	addr string,
	store *status.Store,
	fetcher *status.Fetcher,
	clusters *cluster.Manager,
	ssePublisher *SSEPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Server {
	return &Server{
		addr:         addr,
		store:        store,
		fetcher:      fetcher,
		clusters:     clusters,
		ssePublisher: ssePublisher,
		metrics:      m,
		logger:       logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Status routes
	statusMW := metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/statuses")
	mux.Handle("POST /api/v1/statuses/{signature}/fetch",
		statusMW(handleFetchStatus(s.store, s.fetcher, s.clusters, s.logger)))
	mux.Handle("GET /api/v1/statuses/{signature}",
		statusMW(handleGetStatus(s.store, s.logger)))
	mux.Handle("GET /api/v1/statuses",
		statusMW(handleListStatuses(s.store)))

	// Cluster routes
	clusterMW := metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/cluster")
	mux.Handle("GET /api/v1/cluster", clusterMW(handleGetCluster(s.clusters)))
	mux.Handle("PUT /api/v1/cluster", clusterMW(handleSetCluster(s.clusters, s.logger)))

	// SSE streaming endpoints (if SSE publisher is configured)
	if s.ssePublisher != nil {
		mux.Handle("GET /api/v1/stream/statuses/{signature}", handleStreamStatuses(s.ssePublisher, s.metrics, s.logger))
		mux.Handle("GET /api/v1/stream/statuses", handleStreamStatuses(s.ssePublisher, s.metrics, s.logger))
		s.logger.Info("SSE streaming endpoints enabled")
	} else {
		s.logger.Warn("SSE publisher not configured, streaming endpoints disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections write indefinitely
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS
// preflight requests. The explorer front end is served from a different
// origin than the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
