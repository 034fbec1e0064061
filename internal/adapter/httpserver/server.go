package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/seibert-media/lower-thirds-tools/internal/adapter/metrics"
	"github.com/seibert-media/lower-thirds-tools/internal/channel"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/config"
)

type channelDirectory interface {
	List() map[string]domain.ChannelInfo
	Get(slug string) (*channel.Channel, error)
}

type sessionHub interface {
	Register(sessionID string, conn *websocket.Conn) error
	Unregister(sessionID string)
	SessionCount() int
	GroupSize(room string) int
}

type commandDispatcher interface {
	Connect(sessionID string) error
	HandleFrame(ctx context.Context, sessionID string, raw []byte)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	channels   channelDirectory
	hub        sessionHub
	dispatcher commandDispatcher
	upgrader   websocket.Upgrader
	admission  *socketAdmission

	registry     *prometheus.Registry
	httpMetrics  *metrics.HTTPMetrics
	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires the HTTP surface. registry and httpMetrics may be nil, which disables /metrics.
func NewServer(cfg *config.Config, channels channelDirectory, hub sessionHub, dispatcher commandDispatcher, registry *prometheus.Registry, httpMetrics *metrics.HTTPMetrics, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:       e,
		config:     cfg,
		channels:   channels,
		hub:        hub,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     NewCheckOrigin(cfg.AllowedOrigin, cfg.IsDevelopment()),
		},
		admission:    newSocketAdmission(cfg, httpMetrics),
		registry:     registry,
		httpMetrics:  httpMetrics,
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
