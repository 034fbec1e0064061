package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/seibert-media/lower-thirds-tools/internal/channel"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/seibert-media/lower-thirds-tools/internal/protocol"
)

func (s *Service) show(ctx context.Context, data json.RawMessage) (any, error) {
	req, err := protocol.ParseShowRequest(data)
	if err != nil {
		return nil, err
	}
	ch, err := s.lookup(req.Channel)
	if err != nil {
		return nil, err
	}

	t, err := ch.Show(req.LowerThird)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, ch, t)

	slog.InfoContext(ctx, "Lower third shown", "channel", ch.Slug(), "design", req.LowerThird.Design)
	return protocol.Success, nil
}

func (s *Service) hide(ctx context.Context, data json.RawMessage) (any, error) {
	return s.clear(ctx, domain.EventHideLowerThird, data, (*channel.Channel).Hide)
}

func (s *Service) kill(ctx context.Context, data json.RawMessage) (any, error) {
	return s.clear(ctx, domain.EventKillLowerThird, data, (*channel.Channel).Kill)
}

func (s *Service) clear(ctx context.Context, event string, data json.RawMessage, mutate func(*channel.Channel) channel.Transition) (any, error) {
	req, err := protocol.ParseChannelRequest(event, data)
	if err != nil {
		return nil, err
	}
	ch, err := s.lookup(req.Channel)
	if err != nil {
		return nil, err
	}

	s.announce(ctx, ch, mutate(ch))

	slog.InfoContext(ctx, "Lower third cleared", "channel", ch.Slug(), "event", event)
	return protocol.Success, nil
}

// announce publishes the transition event followed by the resulting status to the channel group.
func (s *Service) announce(ctx context.Context, ch *channel.Channel, t channel.Transition) {
	ch.Emit(t, func(t channel.Transition) {
		s.publish(ctx, ch.Slug(), t.Event, t.Payload)
		s.publish(ctx, ch.Slug(), domain.EventChannelStatus, t.Status)
	})
}

// publish hands one broadcast to the relay. The state change is already
// committed, so failures are logged and not reported to the caller.
func (s *Service) publish(ctx context.Context, room, event string, payload any) {
	msg, err := domain.NewBroadcast(room, event, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode broadcast", "channel", room, "event", event, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.relay.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish broadcast", "channel", room, "event", event, "error", err)
	}
}
