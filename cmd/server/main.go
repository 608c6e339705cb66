package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/sigwatch/service/cluster"
	"github.com/brojonat/sigwatch/service/config"
	"github.com/brojonat/sigwatch/service/metrics"
	natspkg "github.com/brojonat/sigwatch/service/nats"
	"github.com/brojonat/sigwatch/service/seed"
	"github.com/brojonat/sigwatch/service/server"
	"github.com/brojonat/sigwatch/service/status"
	solanasvc "github.com/brojonat/sigwatch/service/solana"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"solana_rpc", cfg.SolanaRPCURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics registry shared by every component
	m := metrics.NewMetrics(nil)

	// One Solana client per endpoint, dialed on demand
	pool := solanasvc.NewPool(m, logger)

	// Status store starts empty and unbound; the first cluster connect
	// binds it to an endpoint URL
	store := status.NewStore("", m, logger)

	// Optional NATS eventing
	var events natspkg.Publisher
	var ssePublisher *server.SSEPublisher
	if cfg.NATSURL != "" {
		publisher, err := natspkg.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to initialize NATS publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		events = publisher

		ssePublisher, err = server.NewSSEPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to initialize SSE publisher", "error", err)
			os.Exit(1)
		}
		defer ssePublisher.Close()
	} else {
		logger.Warn("NATS_URL not set, status eventing and SSE streaming disabled")
	}

	// Fixture cache for deterministic demo signatures
	var fixtures map[status.FixtureKey]status.Info
	if cfg.FixturesEnabled {
		fixtures = status.DefaultFixtures()
	}

	fetcher := status.NewFetcher(store, pool, fixtures, events, m, logger)

	// Cluster manager: entering the connecting phase discards the store's
	// records from the previous cluster
	clusters := cluster.NewManager(pool, logger)
	clusters.OnChange(func(st cluster.Status) {
		if st.Phase == cluster.PhaseConnecting {
			store.Clear(st.URL)
		}
	})

	// Optional demo seeding on every successful connect
	if cfg.SeedEnabled {
		seeder, err := seed.New(pool, fetcher, cfg.SeedPrivateKey, cfg.SeedAirdropLamports, logger)
		if err != nil {
			logger.Error("failed to initialize seeder", "error", err)
			os.Exit(1)
		}
		clusters.OnChange(func(st cluster.Status) {
			if st.Phase == cluster.PhaseConnected {
				go seeder.Seed(context.Background(), st.URL)
			}
		})
		logger.Info("demo seeding enabled", "account", seeder.PublicKey().String())
	}

	// Connect to the configured cluster. A failed initial connect is not
	// fatal; the cluster can be switched (or retried) via the API.
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := clusters.Connect(connectCtx, cfg.SolanaRPCURL); err != nil {
		logger.Warn("initial cluster connect failed", "url", cfg.SolanaRPCURL, "error", err)
	}
	connectCancel()

	httpServer := server.New(cfg.ServerAddr, store, fetcher, clusters, ssePublisher, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
