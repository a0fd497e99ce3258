package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/docketpulse/docketpulse/internal/config"
	"github.com/docketpulse/docketpulse/internal/store/postgres"
)

func main() {
	_ = godotenv.Load(".env") // ignore error if .env missing

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	states := postgres.NewStateStore(pool)
	subscribers := postgres.NewSubscriberStore(pool)

	interval := time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 15)) * time.Minute
	logger.Info("starting sweeper", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, logger, states, subscribers)

	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			sweep(ctx, logger, states, subscribers)
		}
	}
}

func sweep(ctx context.Context, logger *slog.Logger, states *postgres.StateStore, subscribers *postgres.SubscriberStore) {
	now := time.Now()

	if n, err := states.DeleteExpired(ctx, now); err != nil {
		logger.Error("sweep document states failed", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("swept expired document states", slog.Int64("count", n))
	}

	if n, err := subscribers.DeleteExpired(ctx, now); err != nil {
		logger.Error("sweep subscribers failed", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("swept expired subscribers", slog.Int64("count", n))
	}
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
