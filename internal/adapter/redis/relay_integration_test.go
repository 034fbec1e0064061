package redis

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	testRedisURL   string
	redisContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	redisContainer, err = redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	code := m.Run()
	if err := redisContainer.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
	}
	os.Exit(code)
}

func setupTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client, err := NewClient(context.Background(), testRedisURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// startRelay runs a relay subscriber until the test ends.
func startRelay(t *testing.T, sink domain.Sink) *Relay {
	t.Helper()
	relay := NewRelay(setupTestClient(t), sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	select {
	case <-relay.Subscribed():
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not subscribe")
	}
	return relay
}

func TestRelay_FanOutAcrossProcesses(t *testing.T) {
	sinkA := newRecordingSink()
	sinkB := newRecordingSink()
	relayA := startRelay(t, sinkA)
	startRelay(t, sinkB)

	msg := hideBroadcast(t)
	require.NoError(t, relayA.Publish(context.Background(), msg))

	assert.Equal(t, msg, sinkA.next(t))
	assert.Equal(t, msg, sinkB.next(t))
	assert.Equal(t, gobreaker.StateClosed, relayA.BreakerState())
}

func TestRelay_PublishOnceReachesSubscribers(t *testing.T) {
	sink := newRecordingSink()
	startRelay(t, sink)

	reload, err := domain.NewBroadcast("", domain.EventReloadClient, nil)
	require.NoError(t, err)
	require.NoError(t, PublishOnce(context.Background(), setupTestClient(t), reload))

	got := sink.next(t)
	assert.Equal(t, domain.EventReloadClient, got.Event)
	assert.Empty(t, got.Room)
	assert.Empty(t, got.Data)
}

func TestRelay_Ping(t *testing.T) {
	relay := NewRelay(setupTestClient(t), newRecordingSink(), nil)
	assert.NoError(t, relay.Ping(context.Background()))
}

func TestRelay_ReadyOnceSubscribed(t *testing.T) {
	idle := NewRelay(setupTestClient(t), newRecordingSink(), nil)
	assert.ErrorIs(t, idle.Ready(context.Background()), ErrNotSubscribed)

	relay := startRelay(t, newRecordingSink())
	assert.NoError(t, relay.Ready(context.Background()))
}
