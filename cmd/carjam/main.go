// Command carjam serves only the plate lookup proxy.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/ldotspots/zuco-motors/internal/carjam"
	"github.com/ldotspots/zuco-motors/internal/config"
	"github.com/ldotspots/zuco-motors/internal/log"
	"github.com/ldotspots/zuco-motors/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New("carjam", cfg.Environment)
	if cfg.CarJam.APIKey == "" {
		logger.Warn().Msg("CARJAM_API_KEY not set, lookups will fail")
	}

	srv := server.NewHTTPServer(cfg, logger, carjam.Proxy{
		Client: carjam.NewClient(cfg.CarJam),
		Log:    logger,
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
