package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds the process settings read from the environment.
type Config struct {
	AppEnv       string `env:"APP_ENV" default:"development"`
	Port         string `env:"PORT" default:"8080"`
	LogLevel     string `env:"LOG_LEVEL" default:"info"`
	LogFormat    string `env:"LOG_FORMAT" default:"text"`
	ChannelsFile string `env:"LOWER_THIRDS_TOOL_CONFIG" default:"settings.yml"`

	// AllowedOrigin is the public URL of the control surface. Empty allows same-origin and non-browser clients only.
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	SocketRateLimit         float64 `env:"SOCKET_RATE_LIMIT" default:"5"`
	SocketRateBurst         int     `env:"SOCKET_RATE_BURST" default:"10"`
	// MaxConnectionsPerIP caps concurrent sessions per client address. 0 disables the cap.
	MaxConnectionsPerIP int `env:"MAX_CONNECTIONS_PER_IP" default:"100"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}

	if cfg.ChannelsFile == "" {
		return errors.New("LOWER_THIRDS_TOOL_CONFIG must not be empty")
	}
	if cfg.MaxWebSocketConnections < 0 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must not be negative")
	}
	if cfg.SocketRateLimit <= 0 {
		return errors.New("SOCKET_RATE_LIMIT must be positive")
	}
	if cfg.SocketRateBurst < 1 {
		return errors.New("SOCKET_RATE_BURST must be at least 1")
	}
	if cfg.MaxConnectionsPerIP < 0 {
		return errors.New("MAX_CONNECTIONS_PER_IP must not be negative")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	return nil
}
