package domain

import "errors"

var (
	ErrInvalidSlug        = errors.New("invalid slug")
	ErrDuplicateSlug      = errors.New("duplicate slug")
	ErrChannelNotFound    = errors.New("channel not found")
	ErrNoChannels         = errors.New("at least one channel must be defined")
	ErrAlreadyShowing     = errors.New("another lower third is already being displayed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrTooManySessions    = errors.New("too many sessions")
	ErrBroadcasterStopped = errors.New("broadcaster stopped")
)
