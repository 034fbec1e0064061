package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleReadiness(t *testing.T) {
	ts := newTestServer(t, withHealthChecks(HealthCheck{Name: "relay", Check: healthOK}))

	rec := ts.get(t, "/health/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"relay":{"status":"ok"}}}`, rec.Body.String())
}

func TestHandleReadiness_NoChecks(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/health/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{}}`, rec.Body.String())
}

func TestHandleReadiness_ReportsComponentState(t *testing.T) {
	ts := newTestServer(t, withHealthChecks(HealthCheck{
		Name:  "relay",
		Check: healthOK,
		State: func() string { return "half-open" },
	}))

	rec := ts.get(t, "/health/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"relay":{"status":"ok","state":"half-open"}}}`, rec.Body.String())
}

func TestHandleReadiness_RelayDown(t *testing.T) {
	ts := newTestServer(t, withHealthChecks(HealthCheck{
		Name:  "relay",
		Check: healthErr("connection refused"),
		State: func() string { return "open" },
	}))

	rec := ts.get(t, "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"status":"unhealthy"`)
	assert.Contains(t, body, `"failed_check":"relay"`)
	assert.Contains(t, body, `connection refused`)
	assert.Contains(t, body, `"relay":{"state":"open","status":"failed"}`)
}

func TestHandleLiveness(t *testing.T) {
	ts := newTestServer(t)
	ts.dial(t)

	rec := ts.get(t, "/health/live")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"status":"ok"`)
	assert.Contains(t, body, `"uptime"`)
	assert.Contains(t, body, `"sessions":1`)
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/version")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"dev"`)
	assert.Contains(t, rec.Body.String(), `"go_version"`)
}
