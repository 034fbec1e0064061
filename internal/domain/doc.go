// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (channel.go, overlay.go, relay.go, etc.)
// with shared types and cross-cutting contracts. Only small pure helpers live here
// (slug derivation); state and locking belong to internal/channel.
package domain
