package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/seibert-media/lower-thirds-tools/internal/adapter/metrics"
)

// NewClient creates a Redis client from a URL (e.g., "redis://localhost:6379"),
// installs the metrics hook and verifies the connection.
// relayMetrics may be nil.
func NewClient(ctx context.Context, redisURL string, relayMetrics *metrics.RelayMetrics) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if relayMetrics != nil {
		rdb.AddHook(&metricsHook{metrics: relayMetrics})
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}
