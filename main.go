package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	clts "whalewatch/clients"
	"whalewatch/config"
	"whalewatch/internal/app"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long the stats server drains on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// A local .env is a convenience for development, not a requirement.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}

	cfg := config.Load()
	logger.Info("starting whalewatch",
		zap.Bool("isProd", cfg.IsProd),
		zap.Bool("ethereum", cfg.Ethereum.Enabled),
		zap.Bool("bitcoin", cfg.Bitcoin.Enabled),
		zap.Bool("hyperliquid", cfg.Hyperliquid.Enabled),
	)

	if result := cfg.Validate(); !result.Valid {
		for _, e := range result.Errors {
			logger.Error("invalid config", zap.String("field", e.Field), zap.String("message", e.Message))
		}
		logger.Fatal("configuration invalid")
	}

	logger.Info("instantiating clients")
	clients := clts.NewClients(logger, cfg)

	monitor, err := app.NewMonitor(clients, cfg)
	if err != nil {
		logger.Fatal("failed to create monitor", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if err := monitor.Start(ctx); err != nil {
		logger.Fatal("failed to start monitor", zap.Error(err))
	}

	var stats *app.StatsServer
	if cfg.HealthServer.Enabled {
		stats = app.NewStatsServer(logger, monitor, cfg.HealthServer.Port)
		stats.Start()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	monitor.Stop()

	if stats != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := stats.Shutdown(shutdownCtx); err != nil {
			logger.Warn("stats server shutdown error", zap.Error(err))
		}
		cancel()
	}

	if err := clients.Notifier.Close(); err != nil {
		logger.Warn("notifier close error", zap.Error(err))
	}
}
