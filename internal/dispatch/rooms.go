package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/seibert-media/lower-thirds-tools/internal/protocol"
)

// join adds the session to the channel's group and sends it the current status.
// The status goes out in the channel's publication order.
func (s *Service) join(ctx context.Context, sessionID string, data json.RawMessage) error {
	req, err := protocol.ParseChannelRequest(domain.EventJoinChannel, data)
	if err != nil {
		return err
	}
	ch, err := s.lookup(req.Channel)
	if err != nil {
		return err
	}

	if err := s.hub.Join(sessionID, ch.Slug()); err != nil {
		return fmt.Errorf("join %s: %w", ch.Slug(), err)
	}

	var sendErr error
	ch.Snapshot(func(status domain.ChannelStatus) {
		sendErr = s.hub.Send(sessionID, protocol.Event(domain.EventChannelStatus, status))
	})
	if sendErr != nil {
		return fmt.Errorf("send status of %s: %w", ch.Slug(), sendErr)
	}

	slog.DebugContext(ctx, "Session joined channel", "channel", ch.Slug())
	return nil
}

// leave removes the session from the channel's group. Leaving twice is fine.
func (s *Service) leave(ctx context.Context, sessionID string, data json.RawMessage) error {
	req, err := protocol.ParseChannelRequest(domain.EventLeaveChannel, data)
	if err != nil {
		return err
	}
	ch, err := s.lookup(req.Channel)
	if err != nil {
		return err
	}

	if s.hub.Leave(sessionID, ch.Slug()) {
		slog.DebugContext(ctx, "Session left channel", "channel", ch.Slug())
	}
	return nil
}
