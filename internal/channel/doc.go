// Package channel implements the channel registry and the per-channel overlay state machine.
//
// The registry is built once at startup and never changes afterwards, so lookups take a read lock only.
// Each Channel owns two mutexes: one guards the Idle/Showing check-and-set, the other hands out
// publication turns so announcements leave the process in the order the mutations happened.
package channel
