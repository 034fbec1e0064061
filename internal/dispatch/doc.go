// Package dispatch routes inbound socket commands to the channel state
// machines and announces the resulting transitions through the relay.
package dispatch
