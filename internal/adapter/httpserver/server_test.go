package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/seibert-media/lower-thirds-tools/internal/adapter/metrics"
	"github.com/seibert-media/lower-thirds-tools/internal/broadcast"
	"github.com/seibert-media/lower-thirds-tools/internal/channel"
	"github.com/seibert-media/lower-thirds-tools/internal/dispatch"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/config"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	server      *Server
	broadcaster *broadcast.Broadcaster
	registry    *channel.Registry
	url         string
}

type serverOption func(*config.Config, *[]HealthCheck)

func withHealthChecks(checks ...HealthCheck) serverOption {
	return func(_ *config.Config, hc *[]HealthCheck) { *hc = checks }
}

func withRateLimit(perSecond float64, burst int) serverOption {
	return func(cfg *config.Config, _ *[]HealthCheck) {
		cfg.SocketRateLimit = perSecond
		cfg.SocketRateBurst = burst
	}
}

func withMaxConnectionsPerIP(n int) serverOption {
	return func(cfg *config.Config, _ *[]HealthCheck) { cfg.MaxConnectionsPerIP = n }
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                  "test",
		Port:                    "0",
		AllowedOrigin:           "https://studio.example.com",
		MaxWebSocketConnections: 100,
		SocketRateLimit:         1000,
		SocketRateBurst:         1000,
	}
}

// newTestServer wires the real broadcaster and dispatcher behind an httptest server.
func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := testConfig()
	var healthChecks []HealthCheck
	for _, opt := range opts {
		opt(cfg, &healthChecks)
	}

	registry, err := channel.NewRegistryFromSpecs([]channel.Spec{
		{Name: "Studio A"},
		{Name: "Main Stage", Slug: "stage"},
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	broadcaster := broadcast.NewBroadcaster(clockwork.NewRealClock(), cfg.MaxWebSocketConnections, metrics.NewWebSocketMetrics(reg))
	t.Cleanup(broadcaster.Stop)

	dispatcher := dispatch.NewService(registry, broadcaster, broadcaster, metrics.NewCommandMetrics(reg), clockwork.NewRealClock())
	srv := NewServer(cfg, registry, broadcaster, dispatcher, reg, metrics.NewHTTPMetrics(reg), healthChecks)

	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)

	return &testServer{
		server:      srv,
		broadcaster: broadcaster,
		registry:    registry,
		url:         httpServer.URL,
	}
}

func (ts *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

// client is a socket client speaking the event/ack frame protocol.
type client struct {
	t      *testing.T
	conn   *ws.Conn
	nextID uint64
}

func (ts *testServer) dial(t *testing.T) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.url, "http") + socketPath
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &client{t: t, conn: conn}
	greeting := c.read()
	require.Equal(t, "channels_data", greeting["event"])
	return c
}

func (c *client) read() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := c.conn.ReadMessage()
	require.NoError(c.t, err)

	var frame map[string]any
	require.NoError(c.t, json.Unmarshal(msg, &frame))
	return frame
}

func (c *client) emit(event string, data any) uint64 {
	c.t.Helper()
	c.nextID++
	frame := map[string]any{"event": event, "id": c.nextID, "data": data}
	require.NoError(c.t, c.conn.WriteJSON(frame))
	return c.nextID
}

// call emits a command and returns the data of its acknowledgement.
// Event frames arriving before the ack are returned as well.
func (c *client) call(event string, data any) (any, []map[string]any) {
	c.t.Helper()
	id := c.emit(event, data)

	var events []map[string]any
	for {
		frame := c.read()
		if ack, ok := frame["ack"]; ok {
			require.Equal(c.t, float64(id), ack)
			return frame["data"], events
		}
		events = append(events, frame)
	}
}

func (c *client) expectSilence() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := c.conn.ReadMessage()
	require.Error(c.t, err, "no frame expected")
}

func healthOK(_ context.Context) error { return nil }

func healthErr(msg string) func(context.Context) error {
	return func(_ context.Context) error { return errors.New(msg) }
}
