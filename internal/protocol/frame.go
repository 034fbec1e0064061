package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	apperrors "github.com/seibert-media/lower-thirds-tools/internal/platform/errors"
)

// Inbound is a frame sent by a client.
type Inbound struct {
	Event string          `json:"event"`
	ID    *uint64         `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is a frame sent to a client: either a pushed event or an acknowledgement.
type Outbound struct {
	Event string  `json:"event,omitempty"`
	Ack   *uint64 `json:"ack,omitempty"`
	Data  any     `json:"data"`
}

// SuccessReply is the acknowledgement payload of a successful command.
type SuccessReply struct {
	Status string `json:"status"`
}

// Success is the reply for show/hide/kill.
var Success = SuccessReply{Status: "success"}

// DecodeInbound parses a raw client frame.
func DecodeInbound(raw []byte) (Inbound, error) {
	var in Inbound
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&in); err != nil {
		return Inbound{}, apperrors.BadRequestError("frame is not a valid event object").WithCause(err)
	}
	if in.Event == "" {
		return Inbound{}, apperrors.BadRequestError("frame has no event name")
	}
	return in, nil
}

// FrameID recovers the id of a frame DecodeInbound rejected so the client can
// still be answered. Numeric strings are accepted; other ids cannot be acked.
func FrameID(raw []byte) (uint64, bool) {
	var partial struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &partial); err != nil || len(partial.ID) == 0 || isNull(partial.ID) {
		return 0, false
	}

	var id uint64
	if err := json.Unmarshal(partial.ID, &id); err == nil {
		return id, true
	}
	var s string
	if err := json.Unmarshal(partial.ID, &s); err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Event builds a pushed event frame.
func Event(name string, data any) Outbound {
	return Outbound{Event: name, Data: data}
}

// RawEvent builds a pushed event frame from already encoded data.
// Empty data is sent as null.
func RawEvent(name string, data json.RawMessage) Outbound {
	if len(data) == 0 {
		return Outbound{Event: name}
	}
	return Outbound{Event: name, Data: data}
}

// Ack builds the acknowledgement for the command with the given id.
func Ack(id uint64, data any) Outbound {
	return Outbound{Ack: &id, Data: data}
}

// Encode marshals an outbound frame.
func Encode(frame Outbound) ([]byte, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal %q frame: %w", frame.Event, err)
	}
	return data, nil
}
