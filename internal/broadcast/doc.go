// Package broadcast implements the socket session and room manager using the actor pattern.
//
// A single goroutine owns every session and every channel group and is fed through a command
// channel (no mutexes). Per-connection writer goroutines own the socket writes, so a slow client
// only ever fills its own buffer and is evicted instead of stalling the fan-out.
package broadcast
