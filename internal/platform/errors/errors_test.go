package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantKind   Kind
		wantStatus int
	}{
		{"validation", ValidationError("bad input"), KindValidation, http.StatusBadRequest},
		{"not found", NotFoundError("no such channel"), KindNotFound, http.StatusNotFound},
		{"type", TypeError("expects an object"), KindType, http.StatusBadRequest},
		{"concurrency", ConcurrencyError("busy"), KindConcurrency, http.StatusConflict},
		{"bad request", BadRequestError("unknown event"), KindBadRequest, http.StatusBadRequest},
		{"rate limited", RateLimitedError("slow down"), KindRateLimited, http.StatusTooManyRequests},
		{"internal", InternalError("boom", nil), KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, tt.err.Kind)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus())
			assert.NotNil(t, tt.err.Context)
			assert.Contains(t, tt.err.Error(), string(tt.wantKind))
		})
	}
}

func TestErrorStringWithCause(t *testing.T) {
	err := InternalError("failed to publish", fmt.Errorf("redis down"))

	assert.Equal(t, "InternalError: failed to publish: redis down", err.Error())
	assert.NotContains(t, InternalError("x", nil).Error(), "<nil>")
}

func TestToReply(t *testing.T) {
	reply := ConcurrencyError("Another lower third is already being displayed.").ToReply()

	raw, err := json.Marshal(reply)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","error":"ConcurrencyError","msg":"Another lower third is already being displayed."}`, string(raw))
}

func TestWithField(t *testing.T) {
	err := NotFoundError("channel not found").
		WithField("channel", "main").
		WithField("event", "join_channel")

	assert.Len(t, err.Context, 2)
	assert.Equal(t, "main", err.Context["channel"])

	resp := err.ToResponse()
	assert.Equal(t, "channel not found", resp.Error)
	assert.Equal(t, KindNotFound, resp.Kind)
}

func TestWithFieldNilMap(t *testing.T) {
	err := &Error{Kind: KindValidation, Message: "test"}
	err = err.WithField("key", "value")
	assert.Equal(t, "value", err.Context["key"])
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := InternalError("wrapped", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestAsStructuredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"structured passthrough", ValidationError("x"), KindValidation},
		{"wrapped structured", fmt.Errorf("ctx: %w", NotFoundError("x")), KindNotFound},
		{"channel not found", fmt.Errorf("%w: main", domain.ErrChannelNotFound), KindNotFound},
		{"already showing", domain.ErrAlreadyShowing, KindConcurrency},
		{"invalid slug", fmt.Errorf("%w: Bad Slug", domain.ErrInvalidSlug), KindValidation},
		{"duplicate slug", domain.ErrDuplicateSlug, KindValidation},
		{"plain error", fmt.Errorf("standard error"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsStructuredError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
		})
	}

	assert.Nil(t, AsStructuredError(nil))
}

func TestAsStructuredError_KeepsSentinel(t *testing.T) {
	err := AsStructuredError(fmt.Errorf("%w: main", domain.ErrChannelNotFound))
	assert.ErrorIs(t, err, domain.ErrChannelNotFound)
}
