package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/seibert-media/lower-thirds-tools/internal/adapter/metrics"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects delivered broadcasts.
type recordingSink struct {
	mu   sync.Mutex
	msgs []domain.Broadcast
	ch   chan domain.Broadcast
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan domain.Broadcast, 64)}
}

func (s *recordingSink) Deliver(msg domain.Broadcast) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
	s.ch <- msg
}

func (s *recordingSink) next(t *testing.T) domain.Broadcast {
	t.Helper()
	select {
	case msg := <-s.ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no broadcast delivered")
		return domain.Broadcast{}
	}
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// unreachableClient points at a port nothing listens on.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func hideBroadcast(t *testing.T) domain.Broadcast {
	t.Helper()
	msg, err := domain.NewBroadcast("studio_a", domain.EventHideLowerThird, domain.ChannelEvent{Channel: "studio_a"})
	require.NoError(t, err)
	return msg
}

func TestRelay_FallsBackToLocalDelivery(t *testing.T) {
	relayMetrics := metrics.NewRelayMetrics(prometheus.NewRegistry())
	sink := newRecordingSink()
	relay := NewRelay(unreachableClient(t), sink, relayMetrics)

	msg := hideBroadcast(t)
	require.NoError(t, relay.Publish(context.Background(), msg))

	assert.Equal(t, msg, sink.next(t))
	assert.Equal(t, float64(1), testutil.ToFloat64(relayMetrics.LocalFallbacks))
	assert.Equal(t, float64(1), testutil.ToFloat64(relayMetrics.Published.WithLabelValues(domain.EventHideLowerThird, "fallback")))
}

func TestRelay_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	relayMetrics := metrics.NewRelayMetrics(prometheus.NewRegistry())
	sink := newRecordingSink()
	relay := NewRelay(unreachableClient(t), sink, relayMetrics)

	for range breakerFailures {
		require.NoError(t, relay.Publish(context.Background(), hideBroadcast(t)))
	}
	assert.Equal(t, gobreaker.StateOpen, relay.BreakerState())
	assert.Equal(t, float64(2), testutil.ToFloat64(relayMetrics.BreakerState))

	// Open breaker: still delivered locally.
	require.NoError(t, relay.Publish(context.Background(), hideBroadcast(t)))
	assert.Equal(t, breakerFailures+1, sink.count())
}

func TestRelay_ReadyNeedsSubscriptionAndRedis(t *testing.T) {
	relay := NewRelay(unreachableClient(t), newRecordingSink(), nil)

	assert.ErrorIs(t, relay.Ready(context.Background()), ErrNotSubscribed)

	// Subscribed but Redis gone: the ping decides.
	close(relay.subscribed)
	err := relay.Ready(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotSubscribed)
}

func TestRelay_ReceiveSkipsUnreadablePayloads(t *testing.T) {
	relayMetrics := metrics.NewRelayMetrics(prometheus.NewRegistry())
	sink := newRecordingSink()
	relay := NewRelay(unreachableClient(t), sink, relayMetrics)

	relay.receive("not json")
	relay.receive(`{"room":"studio_a"}`)
	relay.receive(`{"room":"studio_a","event":"hide_lower_third","data":{"channel":"studio_a"}}`)

	require.Equal(t, 1, sink.count())
	msg := sink.next(t)
	assert.Equal(t, "studio_a", msg.Room)
	assert.JSONEq(t, `{"channel":"studio_a"}`, string(msg.Data))
	assert.Equal(t, float64(1), testutil.ToFloat64(relayMetrics.Received))
}

func TestMetricsHook_CountsOperations(t *testing.T) {
	relayMetrics := metrics.NewRelayMetrics(prometheus.NewRegistry())
	hook := &metricsHook{metrics: relayMetrics}
	ctx := context.Background()

	ok := hook.ProcessHook(func(context.Context, redis.Cmder) error { return nil })
	require.NoError(t, ok(ctx, redis.NewIntCmd(ctx, "publish", BroadcastChannel, "x")))

	missing := hook.ProcessHook(func(context.Context, redis.Cmder) error { return redis.Nil })
	require.ErrorIs(t, missing(ctx, redis.NewStringCmd(ctx, "get", "k")), redis.Nil)

	failing := hook.ProcessHook(func(context.Context, redis.Cmder) error { return assert.AnError })
	require.Error(t, failing(ctx, redis.NewIntCmd(ctx, "publish", BroadcastChannel, "x")))

	assert.Equal(t, float64(1), testutil.ToFloat64(relayMetrics.RedisOperations.WithLabelValues("publish", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(relayMetrics.RedisOperations.WithLabelValues("publish", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(relayMetrics.RedisOperations.WithLabelValues("get", "success")))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "://nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewClient(ctx, "redis://127.0.0.1:1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}
