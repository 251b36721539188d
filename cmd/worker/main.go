package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/ldotspots/zuco-motors/internal/app"
	"github.com/ldotspots/zuco-motors/internal/config"
	"github.com/ldotspots/zuco-motors/internal/log"
	"github.com/ldotspots/zuco-motors/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New("worker", cfg.Environment)

	if cfg.Store.Backend == config.BackendLocal {
		logger.Fatal().Msg("the worker needs the postgres backend; the local backend runs tasks in the api")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}
	defer a.Close()

	consumer := queue.NewConsumer(a.Redis, cfg.Worker, logger, a.Processor)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
