package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/app"
	"github.com/hackgods/registry-scheduling/internal/config"
	"github.com/hackgods/registry-scheduling/internal/logging"
	"github.com/hackgods/registry-scheduling/internal/warmer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("slot-warmer", "dev", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New("slot-warmer", cfg.Env, cfg.LogLevel)
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("slot-warmer starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(rootCtx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	w := warmer.New(a.Catalog, a.Engine, a.Slugs, logger)

	// Run once at startup
	runOnce(rootCtx, w, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping slot warmer")
			return
		case <-ticker.C:
			runOnce(rootCtx, w, logger)
		}
	}
}

func runOnce(ctx context.Context, w *warmer.Warmer, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	res, err := w.Run(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("warm run error")
		return
	}
	logger.Info().
		Int("slugs", res.Slugs).
		Int("slots", res.Slots).
		Int("failed", res.Failed).
		Dur("took", time.Since(start)).
		Msg("warm run complete")
}
