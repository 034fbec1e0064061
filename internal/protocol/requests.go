package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	apperrors "github.com/seibert-media/lower-thirds-tools/internal/platform/errors"
)

// ChannelRequest is the payload of join_channel, leave_channel, hide_lower_third and kill_lower_third.
type ChannelRequest struct {
	Channel string
}

// ShowRequest is the validated payload of show_lower_third.
type ShowRequest struct {
	Channel    string
	LowerThird domain.LowerThird
}

// ParseChannelRequest validates a payload that only needs a channel.
func ParseChannelRequest(event string, data json.RawMessage) (ChannelRequest, error) {
	fields, err := decodeObject(event, data, "channel")
	if err != nil {
		return ChannelRequest{}, err
	}
	channel, err := stringField(event, fields, "channel")
	if err != nil {
		return ChannelRequest{}, err
	}
	return ChannelRequest{Channel: channel}, nil
}

// ParseShowRequest validates a show_lower_third payload.
func ParseShowRequest(data json.RawMessage) (ShowRequest, error) {
	const event = domain.EventShowLowerThird

	fields, err := decodeObject(event, data, "channel", "design", "title")
	if err != nil {
		return ShowRequest{}, err
	}

	req := ShowRequest{}
	if req.Channel, err = stringField(event, fields, "channel"); err != nil {
		return ShowRequest{}, err
	}
	if req.LowerThird.Design, err = stringField(event, fields, "design"); err != nil {
		return ShowRequest{}, err
	}
	if req.LowerThird.Title, err = stringField(event, fields, "title"); err != nil {
		return ShowRequest{}, err
	}
	if req.LowerThird.Subtitle, err = optionalStringField(event, fields, "subtitle"); err != nil {
		return ShowRequest{}, err
	}
	if req.LowerThird.Duration, err = parseDuration(event, fields["duration"]); err != nil {
		return ShowRequest{}, err
	}
	return req, nil
}

func decodeObject(event string, data json.RawMessage, required ...string) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, apperrors.TypeError(fmt.Sprintf("%s expects a dictionary", event))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, apperrors.TypeError(fmt.Sprintf("%s expects a dictionary", event)).WithCause(err)
	}

	var missing []string
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, apperrors.ValidationError(fmt.Sprintf("%s needs at least the keys %s", event, strings.Join(required, ", "))).
			WithField("missing", missing)
	}
	return fields, nil
}

func stringField(event string, fields map[string]json.RawMessage, key string) (string, error) {
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil || isNull(fields[key]) {
		return "", apperrors.ValidationError(fmt.Sprintf("%s expects %s to be a string", event, key)).WithField("key", key)
	}
	if s == "" {
		return "", apperrors.ValidationError(fmt.Sprintf("%s expects %s to be non-empty", event, key)).WithField("key", key)
	}
	return s, nil
}

func optionalStringField(event string, fields map[string]json.RawMessage, key string) (*string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("%s expects %s to be a string", event, key)).WithField("key", key)
	}
	return &s, nil
}

// parseDuration accepts numbers and numeric strings. Absent, null and "" mean no duration;
// zero is a valid duration.
func parseDuration(event string, raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, nil
	}

	invalid := func() error {
		return apperrors.ValidationError(fmt.Sprintf("%s expects duration to be a non-negative number of seconds", event)).
			WithField("duration", string(raw))
	}

	var value float64
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid()
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalid()
		}
		value = parsed
	default:
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, invalid()
		}
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return nil, invalid()
	}
	// -0 passes the check above and would be echoed as -0.
	value = math.Abs(value)
	return &value, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
