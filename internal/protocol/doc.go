// Package protocol defines the socket wire format and the typed commands decoded from it.
//
// Frames are JSON text messages. Clients send {"event", "id", "data"}; the server answers
// commands that carry an id with {"ack", "data"} and pushes events as {"event", "data"}.
// Payload validation happens here, at the decode boundary: handlers only ever see a valid
// request value or a structured *errors.Error.
package protocol
