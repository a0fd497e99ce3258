package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/docketpulse/docketpulse/internal/artifact"
	"github.com/docketpulse/docketpulse/internal/comments"
	"github.com/docketpulse/docketpulse/internal/config"
	"github.com/docketpulse/docketpulse/internal/events"
	"github.com/docketpulse/docketpulse/internal/jobs"
	"github.com/docketpulse/docketpulse/internal/llm"
	"github.com/docketpulse/docketpulse/internal/notify"
	"github.com/docketpulse/docketpulse/internal/stages"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
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

	// Valkey
	vkClient, err := vk.NewClient(cfg.Valkey)
	if err != nil {
		logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer vkClient.Close()
	logger.Info("connected to valkey")

	// Artifact store
	artifacts, err := artifact.NewStore(cfg.S3)
	if err != nil {
		logger.Error("failed to init artifact store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("artifact store ready", slog.String("bucket", artifacts.Bucket()))

	// Bedrock
	model, err := llm.NewClient(cfg.Bedrock)
	if err != nil {
		logger.Error("failed to init bedrock client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("bedrock ready", slog.String("model", model.ModelID()))

	// Progress reporting
	states := postgres.NewStateStore(pool)
	subscribers := postgres.NewSubscriberStore(pool)
	pusher := notify.NewHTTPPusher(cfg.Broadcast.Endpoint)
	hub := notify.NewHub(subscribers, pusher, cfg.Broadcast.PushTimeout, logger)
	reporter := stages.NewReporter(states, hub, logger)

	// Stage handlers
	source := comments.NewClient(cfg.Regulations)
	commentStage := stages.NewCommentStage(reporter, source, artifacts, cfg.Regulations.MaxPages, logger)
	clusteringTrigger := stages.NewClusteringTrigger(reporter, jobs.NewStreamRunner(vkClient), logger)
	analysisTrigger := stages.NewAnalysisTrigger(reporter, artifacts, model, logger)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}

	// Consumers
	execConsumer := workflow.NewConsumer(vkClient, hostname+"-exec", logger)
	if err := execConsumer.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure execution consumer group", slog.String("error", err.Error()))
		os.Exit(1)
	}

	clusteringConsumer := events.NewArrivalConsumer(vkClient, events.ClusteringArrivalStream, hostname+"-clustering", logger)
	if err := clusteringConsumer.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure clustering consumer group", slog.String("error", err.Error()))
		os.Exit(1)
	}

	analysisConsumer := events.NewArrivalConsumer(vkClient, events.AnalysisArrivalStream, hostname+"-analysis", logger)
	if err := analysisConsumer.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure analysis consumer group", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting execution worker, consuming from stream", slog.String("stream", workflow.ExecutionStream))
		if err := execConsumer.Consume(ctx, commentStage.HandleExecution); err != nil {
			if ctx.Err() == nil {
				logger.Error("execution consumer error", slog.String("error", err.Error()))
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting clustering worker, consuming from stream", slog.String("stream", events.ClusteringArrivalStream))
		if err := clusteringConsumer.Consume(ctx, clusteringTrigger.HandleNotification); err != nil {
			if ctx.Err() == nil {
				logger.Error("clustering consumer error", slog.String("error", err.Error()))
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting analysis worker, consuming from stream", slog.String("stream", events.AnalysisArrivalStream))
		if err := analysisConsumer.Consume(ctx, analysisTrigger.HandleNotification); err != nil {
			if ctx.Err() == nil {
				logger.Error("analysis consumer error", slog.String("error", err.Error()))
			}
		}
	}()

	wg.Wait()
	logger.Info("worker stopped")
}
