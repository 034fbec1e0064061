package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/seibert-media/lower-thirds-tools/internal/adapter/metrics"
	"github.com/seibert-media/lower-thirds-tools/internal/channel"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/correlation"
	apperrors "github.com/seibert-media/lower-thirds-tools/internal/platform/errors"
	"github.com/seibert-media/lower-thirds-tools/internal/protocol"
)

const publishTimeout = 5 * time.Second

// Hub is the part of the session manager the dispatcher needs.
type Hub interface {
	Join(sessionID, room string) error
	Leave(sessionID, room string) bool
	Send(sessionID string, frame protocol.Outbound) error
}

// Service handles the commands of connected sessions.
type Service struct {
	registry *channel.Registry
	hub      Hub
	relay    domain.Relay
	metrics  *metrics.CommandMetrics
	clock    clockwork.Clock
}

// NewService creates the dispatcher. cmdMetrics may be nil.
func NewService(registry *channel.Registry, hub Hub, relay domain.Relay, cmdMetrics *metrics.CommandMetrics, clock clockwork.Clock) *Service {
	return &Service{
		registry: registry,
		hub:      hub,
		relay:    relay,
		metrics:  cmdMetrics,
		clock:    clock,
	}
}

// Connect greets a new session with the channel list.
func (s *Service) Connect(sessionID string) error {
	data := domain.ChannelsData{Channels: s.registry.List()}
	if err := s.hub.Send(sessionID, protocol.Event(domain.EventChannelsData, data)); err != nil {
		return fmt.Errorf("send channels_data: %w", err)
	}
	return nil
}

// HandleFrame decodes and handles one raw client frame. A malformed frame is
// answered with a BadRequest ack when its id can be recovered, and dropped otherwise.
func (s *Service) HandleFrame(ctx context.Context, sessionID string, raw []byte) {
	in, err := protocol.DecodeInbound(raw)
	if err == nil {
		s.Handle(ctx, sessionID, in)
		return
	}

	ctx = correlation.WithSessionID(ctx, sessionID)
	id, ok := protocol.FrameID(raw)
	if !ok {
		slog.WarnContext(ctx, "Dropping malformed frame", "error", err)
		return
	}

	appErr := apperrors.AsStructuredError(err)
	logCommandError(ctx, "", appErr)
	s.observe("", string(appErr.Kind), 0)
	if err := s.hub.Send(sessionID, protocol.Ack(id, appErr.ToReply())); err != nil {
		slog.WarnContext(ctx, "Failed to send acknowledgement", "error", err)
	}
}

// Handle runs one command and, if the client attached an id, acknowledges it
// with the reply. Errors never leave this method: they become error replies.
func (s *Service) Handle(ctx context.Context, sessionID string, in protocol.Inbound) {
	ctx = correlation.WithSessionID(ctx, sessionID)

	reply := s.execute(ctx, sessionID, in)
	if in.ID == nil {
		return
	}
	if err := s.hub.Send(sessionID, protocol.Ack(*in.ID, reply)); err != nil {
		slog.WarnContext(ctx, "Failed to send acknowledgement", "event", in.Event, "error", err)
	}
}

func (s *Service) execute(ctx context.Context, sessionID string, in protocol.Inbound) (reply any) {
	start := s.clock.Now()
	result := "success"

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Command panicked", "event", in.Event, "panic", r)
			appErr := apperrors.InternalError("internal server error", fmt.Errorf("panic: %v", r))
			reply = appErr.ToReply()
			result = string(appErr.Kind)
		}
		s.observe(in.Event, result, s.clock.Since(start))
	}()

	reply, err := s.route(ctx, sessionID, in)
	if err != nil {
		appErr := apperrors.AsStructuredError(err)
		result = string(appErr.Kind)
		logCommandError(ctx, in.Event, appErr)
		return appErr.ToReply()
	}
	return reply
}

func (s *Service) route(ctx context.Context, sessionID string, in protocol.Inbound) (any, error) {
	switch in.Event {
	case domain.EventJoinChannel:
		return nil, s.join(ctx, sessionID, in.Data)
	case domain.EventLeaveChannel:
		return nil, s.leave(ctx, sessionID, in.Data)
	case domain.EventShowLowerThird:
		return s.show(ctx, in.Data)
	case domain.EventHideLowerThird:
		return s.hide(ctx, in.Data)
	case domain.EventKillLowerThird:
		return s.kill(ctx, in.Data)
	default:
		return nil, apperrors.BadRequestError(fmt.Sprintf("unknown event %q", in.Event)).WithField("event", in.Event)
	}
}

func (s *Service) lookup(slug string) (*channel.Channel, error) {
	ch, err := s.registry.Get(slug)
	if err != nil {
		return nil, apperrors.NotFoundError(fmt.Sprintf("Channel %q not found.", slug)).
			WithField("channel", slug).
			WithCause(err)
	}
	return ch, nil
}

func (s *Service) observe(event, result string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	label := event
	if !knownEvent(event) {
		label = "unknown"
	}
	s.metrics.Commands.WithLabelValues(label, result).Inc()
	s.metrics.Duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func knownEvent(event string) bool {
	switch event {
	case domain.EventJoinChannel, domain.EventLeaveChannel,
		domain.EventShowLowerThird, domain.EventHideLowerThird, domain.EventKillLowerThird:
		return true
	}
	return false
}

func logCommandError(ctx context.Context, event string, err *apperrors.Error) {
	attrs := []any{"event", event, "kind", err.Kind, "error", err.Message}
	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}
	if err.Kind == apperrors.KindInternal {
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Command failed", attrs...)
		return
	}
	slog.DebugContext(ctx, "Command rejected", attrs...)
}
