package domain

import (
	"context"
	"encoding/json"
)

// Broadcast is one event fanned out to a group. An empty Room addresses every session.
type Broadcast struct {
	Room  string          `json:"room,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewBroadcast marshals data into a Broadcast. A nil data produces an event without payload.
func NewBroadcast(room, event string, data any) (Broadcast, error) {
	msg := Broadcast{Room: room, Event: event}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Broadcast{}, err
	}
	msg.Data = raw
	return msg, nil
}

// Relay carries broadcasts to every process that may hold members of the room.
type Relay interface {
	Publish(ctx context.Context, msg Broadcast) error
}

// Sink delivers a broadcast to the sessions connected to this process.
type Sink interface {
	Deliver(msg Broadcast)
}
