package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/seibert-media/lower-thirds-tools/internal/adapter/metrics"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/sony/gobreaker"
)

// BroadcastChannel is the pub/sub channel every server process subscribes to.
const BroadcastChannel = "lower-thirds:broadcast"

var ErrNotSubscribed = errors.New("relay is not subscribed")

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// Relay publishes broadcasts to Redis and delivers the ones it receives to the local sink.
// When Redis is unavailable broadcasts are delivered locally only.
type Relay struct {
	rdb        *redis.Client
	sink       domain.Sink
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.RelayMetrics
	subscribed chan struct{}
}

var _ domain.Relay = (*Relay)(nil)

// NewRelay creates a relay. relayMetrics may be nil.
func NewRelay(rdb *redis.Client, sink domain.Sink, relayMetrics *metrics.RelayMetrics) *Relay {
	r := &Relay{
		rdb:        rdb,
		sink:       sink,
		metrics:    relayMetrics,
		subscribed: make(chan struct{}),
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-relay",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: r.onStateChange,
	})
	return r
}

// Publish sends msg to every process. If Redis cannot be reached the message
// is delivered to this process's sessions instead.
func (r *Relay) Publish(ctx context.Context, msg domain.Broadcast) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.rdb.Publish(ctx, BroadcastChannel, payload).Err()
	})
	if err != nil {
		slog.WarnContext(ctx, "Relay publish failed, delivering locally", "event", msg.Event, "room", msg.Room, "error", err)
		r.countPublish(msg.Event, "fallback")
		if r.metrics != nil {
			r.metrics.LocalFallbacks.Inc()
		}
		r.sink.Deliver(msg)
		return nil
	}

	r.countPublish(msg.Event, "success")
	return nil
}

// Start subscribes to the broadcast channel and delivers every message to the sink.
// It blocks until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, BroadcastChannel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to %s: %w", BroadcastChannel, err)
	}
	close(r.subscribed)
	slog.Info("Relay subscribed", "channel", BroadcastChannel)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.receive(msg.Payload)
		case <-ctx.Done():
			slog.Info("Relay subscriber stopped")
			return nil
		}
	}
}

// Subscribed is closed once Start holds an active subscription.
func (r *Relay) Subscribed() <-chan struct{} {
	return r.subscribed
}

// Ping reports whether Redis is reachable.
func (r *Relay) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Ready reports whether the relay both receives and can publish: Start holds a
// subscription and Redis answers a ping.
func (r *Relay) Ready(ctx context.Context) error {
	select {
	case <-r.Subscribed():
	default:
		return ErrNotSubscribed
	}
	return r.Ping(ctx)
}

// BreakerState returns the current state of the publish circuit breaker.
func (r *Relay) BreakerState() gobreaker.State {
	return r.breaker.State()
}

func (r *Relay) receive(payload string) {
	var msg domain.Broadcast
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || msg.Event == "" {
		slog.Warn("Dropping unreadable relay message", "error", err)
		return
	}
	if r.metrics != nil {
		r.metrics.Received.Inc()
	}
	r.sink.Deliver(msg)
}

func (r *Relay) countPublish(event, status string) {
	if r.metrics != nil {
		r.metrics.Published.WithLabelValues(event, status).Inc()
	}
}

func (r *Relay) onStateChange(name string, from, to gobreaker.State) {
	slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
	if r.metrics != nil {
		r.metrics.BreakerState.Set(stateToFloat(to))
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// PublishOnce publishes a single broadcast without breaker or fallback.
// It is meant for one-shot tools that must know whether the message left.
func PublishOnce(ctx context.Context, rdb *redis.Client, msg domain.Broadcast) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}
	if err := rdb.Publish(ctx, BroadcastChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Event, err)
	}
	return nil
}
