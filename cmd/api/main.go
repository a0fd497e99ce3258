package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/docketpulse/docketpulse/internal/api"
	"github.com/docketpulse/docketpulse/internal/artifact"
	"github.com/docketpulse/docketpulse/internal/config"
	"github.com/docketpulse/docketpulse/internal/status"
	"github.com/docketpulse/docketpulse/internal/store/postgres"
	vk "github.com/docketpulse/docketpulse/internal/store/valkey"
	"github.com/docketpulse/docketpulse/internal/workflow"
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

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("connected to database")

	vkClient, err := vk.NewClient(cfg.Valkey)
	if err != nil {
		logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer vkClient.Close()
	logger.Info("connected to valkey")

	artifacts, err := artifact.NewStore(cfg.S3)
	if err != nil {
		logger.Error("failed to init artifact store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	states := postgres.NewStateStore(pool)
	subscribers := postgres.NewSubscriberStore(pool)
	engine := workflow.NewStreamEngine(vkClient)
	aggregator := status.NewAggregator(states, artifacts, logger)

	router := api.NewRouter(logger, api.RouterDeps{
		Pool:          pool,
		States:        states,
		Subscribers:   subscribers,
		Engine:        engine,
		Aggregator:    aggregator,
		StateTTL:      cfg.Retention.StateTTL,
		SubscriberTTL: cfg.Retention.SubscriberTTL,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting API server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
