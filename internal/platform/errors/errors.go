// Package errors provides structured error handling with context propagation,
// reply formatting for socket commands and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/seibert-media/lower-thirds-tools/internal/domain"
)

// Kind is the error class reported to clients in the "error" field of a reply.
type Kind string

const (
	// KindValidation indicates invalid input (HTTP 400)
	KindValidation Kind = "ValidationError"
	// KindNotFound indicates an unknown channel or session (HTTP 404)
	KindNotFound Kind = "NotFound"
	// KindType indicates a payload that is not a structured object (HTTP 400)
	KindType Kind = "TypeError"
	// KindConcurrency indicates a show while another lower third is displayed (HTTP 409)
	KindConcurrency Kind = "ConcurrencyError"
	// KindBadRequest indicates an unknown event or an unreadable frame (HTTP 400)
	KindBadRequest Kind = "BadRequest"
	// KindRateLimited indicates a client over its connection allowance (HTTP 429)
	KindRateLimited Kind = "RateLimited"
	// KindInternal indicates server-side error (HTTP 500)
	KindInternal Kind = "InternalError"
)

// Error represents a structured error with kind, message, and context.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindType, KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConcurrency:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

// ValidationError creates a new validation error.
func ValidationError(message string) *Error {
	return newError(KindValidation, message)
}

// NotFoundError creates a new not-found error.
func NotFoundError(message string) *Error {
	return newError(KindNotFound, message)
}

// TypeError creates an error for payloads of the wrong shape.
func TypeError(message string) *Error {
	return newError(KindType, message)
}

// ConcurrencyError creates an error for a lost show race.
func ConcurrencyError(message string) *Error {
	return newError(KindConcurrency, message)
}

// BadRequestError creates an error for unknown events and unreadable frames.
func BadRequestError(message string) *Error {
	return newError(KindBadRequest, message)
}

// RateLimitedError creates an error for a client over its connection allowance.
func RateLimitedError(message string) *Error {
	return newError(KindRateLimited, message)
}

// InternalError creates a new internal error.
func InternalError(message string, cause error) *Error {
	e := newError(KindInternal, message)
	e.Cause = cause
	return e
}

// WithCause attaches an underlying error (chainable).
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithField adds a context field to the error (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Reply is the error reply sent back to the issuing session. It is never broadcast.
type Reply struct {
	Status string `json:"status"`
	Error  Kind   `json:"error"`
	Msg    string `json:"msg"`
}

// ToReply converts an Error to its wire reply.
func (e *Error) ToReply() Reply {
	return Reply{Status: "error", Error: e.Kind, Msg: e.Message}
}

// ErrorResponse represents the JSON structure sent to HTTP clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    Kind           `json:"kind"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Kind:    e.Kind,
		Context: e.Context,
	}
}

// AsStructuredError converts any error into a structured Error.
// Domain sentinels map onto their kind; anything else becomes internal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	switch {
	case errors.Is(err, domain.ErrChannelNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return NotFoundError(err.Error()).WithCause(err)
	case errors.Is(err, domain.ErrAlreadyShowing):
		return ConcurrencyError("Another lower third is already being displayed.").WithCause(err)
	case errors.Is(err, domain.ErrInvalidSlug), errors.Is(err, domain.ErrDuplicateSlug), errors.Is(err, domain.ErrNoChannels):
		return ValidationError(err.Error()).WithCause(err)
	}

	return InternalError("internal server error", err)
}
