package httpserver

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/correlation"
)

const maxFrameSize = 64 * 1024

// handleSocket upgrades the request and runs the session's read loop until the client goes away.
func (s *Server) handleSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		slog.DebugContext(c.Request().Context(), "WebSocket upgrade failed", "error", err)
		return nil
	}

	sessionID := uuid.NewString()
	ctx := correlation.WithSessionID(c.Request().Context(), sessionID)

	if err := s.hub.Register(sessionID, conn); err != nil {
		slog.WarnContext(ctx, "Socket session rejected", "error", err)
		return nil
	}
	defer s.hub.Unregister(sessionID)

	slog.InfoContext(ctx, "Socket session connected", "remote_addr", c.RealIP())

	if err := s.dispatcher.Connect(sessionID); err != nil {
		slog.WarnContext(ctx, "Failed to greet socket session", "error", err)
		return nil
	}

	conn.SetReadLimit(maxFrameSize)
	for {
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "Socket read failed", "error", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.dispatcher.HandleFrame(ctx, sessionID, raw)
	}

	slog.InfoContext(ctx, "Socket session disconnected")
	return nil
}
