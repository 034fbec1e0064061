// Command reload-clients tells every connected overlay and control page to reload.
// It needs a message_queue in the channel configuration to reach the server processes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/seibert-media/lower-thirds-tools/internal/adapter/redis"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/config"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/logging"
)

const defaultConfigPath = "settings.yml"

var errNoMessageQueue = errors.New("message_queue is not configured, server processes cannot be reached")

func main() {
	_ = godotenv.Load()
	logging.InitLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	path := os.Getenv("LOWER_THIRDS_TOOL_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	flag.StringVar(&path, "config", path, "path to the channel configuration")
	timeout := flag.Duration("timeout", 10*time.Second, "time allowed to reach the message queue")
	flag.Parse()

	if err := run(path, *timeout); err != nil {
		slog.Error("Reload failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Reload requested", "event", domain.EventReloadClient)
}

func run(path string, timeout time.Duration) error {
	doc, err := config.LoadDocument(path)
	if err != nil {
		return err
	}
	if doc.MessageQueue == "" {
		return errNoMessageQueue
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rdb, err := redis.NewClient(ctx, doc.MessageQueue, nil)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	msg, err := domain.NewBroadcast("", domain.EventReloadClient, nil)
	if err != nil {
		return fmt.Errorf("build reload broadcast: %w", err)
	}
	return redis.PublishOnce(ctx, rdb, msg)
}
