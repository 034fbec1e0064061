package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/seibert-media/lower-thirds-tools/internal/adapter/httpserver"
	"github.com/seibert-media/lower-thirds-tools/internal/adapter/metrics"
	"github.com/seibert-media/lower-thirds-tools/internal/adapter/redis"
	"github.com/seibert-media/lower-thirds-tools/internal/broadcast"
	"github.com/seibert-media/lower-thirds-tools/internal/channel"
	"github.com/seibert-media/lower-thirds-tools/internal/dispatch"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/config"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/logging"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/retry"
)

var redisConnectPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDocument(cfg *config.Config) *config.Document {
	doc, err := config.LoadDocument(cfg.ChannelsFile)
	if err != nil {
		slog.Error("Failed to load channel configuration", "path", cfg.ChannelsFile, "error", err)
		os.Exit(1)
	}
	return doc
}

func setupRegistry(doc *config.Document) *channel.Registry {
	specs := make([]channel.Spec, 0, len(doc.Channels))
	for _, entry := range doc.Channels {
		specs = append(specs, channel.Spec{Name: entry.Name, Slug: entry.Slug})
	}

	registry, err := channel.NewRegistryFromSpecs(specs)
	if err != nil {
		slog.Error("Failed to create channels", "error", err)
		os.Exit(1)
	}
	slog.Info("Channels created", "count", registry.Len(), "slugs", registry.Slugs())
	return registry
}

func setupRedis(ctx context.Context, redisURL string, relayMetrics *metrics.RelayMetrics, clock clockwork.Clock) *goredis.Client {
	policy := redisConnectPolicy
	policy.Clock = clock
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}

	client, err := retry.Do(ctx, policy, retry.Always, func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, redisURL, relayMetrics)
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	doc := setupDocument(cfg)
	registry := setupRegistry(doc)

	promRegistry := metrics.NewRegistry()
	wsMetrics := metrics.NewWebSocketMetrics(promRegistry)
	cmdMetrics := metrics.NewCommandMetrics(promRegistry)
	relayMetrics := metrics.NewRelayMetrics(promRegistry)
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broadcaster := broadcast.NewBroadcaster(clock, cfg.MaxWebSocketConnections, wsMetrics)

	var (
		relay        domain.Relay = broadcaster
		redisRelay   *redis.Relay
		healthChecks []httpserver.HealthCheck
	)
	if doc.MessageQueue != "" {
		redisClient := setupRedis(ctx, doc.MessageQueue, relayMetrics, clock)
		defer func() { _ = redisClient.Close() }()

		redisRelay = redis.NewRelay(redisClient, broadcaster, relayMetrics)
		relay = redisRelay
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "relay",
			Check: redisRelay.Ready,
			State: func() string { return redisRelay.BreakerState().String() },
		})
		slog.Info("Using message queue relay")
	} else {
		slog.Info("No message queue configured, broadcasts stay in this process")
	}

	dispatcher := dispatch.NewService(registry, broadcaster, relay, cmdMetrics, clock)
	srv := httpserver.NewServer(cfg, registry, broadcaster, dispatcher, promRegistry, httpMetrics, healthChecks)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if redisRelay != nil {
		g.Go(func() error {
			return redisRelay.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		broadcaster.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
