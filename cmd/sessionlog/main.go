package main // Entry point of the session event consumer

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/rental-portal/internal/config"
	"github.com/iliyamo/rental-portal/internal/logger"
	"github.com/iliyamo/rental-portal/internal/queue"
)

func main() {
	cfg, err := config.LoadSessionLog()
	if err != nil {
		bootLog := logger.New("sessionlog", "info", nil)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New("sessionlog", cfg.LogLevel, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, Dir: cfg.Dir, Log: log}
	log.Info().Str("queue", cfg.Events.Queue).Str("dir", cfg.Dir).Msg("consuming")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("consumer stopped")
	}
}
