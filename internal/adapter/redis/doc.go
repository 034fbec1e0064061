// Package redis relays channel broadcasts between server processes over Redis pub/sub.
package redis
