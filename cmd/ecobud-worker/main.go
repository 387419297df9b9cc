package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ecobud/internal/amqp"
	"ecobud/internal/backend"
	"ecobud/internal/cache"
	"ecobud/internal/cli"
	"ecobud/internal/jobs/inmemory"
	"ecobud/internal/log"
	"ecobud/internal/services"
	"ecobud/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if !cfg.UsesAMQP() {
		logger.Error("AMQP_URL is required for ecobud-worker")
		os.Exit(1)
	}

	logger.Info("Starting ecobud-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Worker uses its own in-memory store; the API will not see its writes")
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	tinkClient := cli.TinkClient(cfg)
	caches := cache.NewManager()
	caches.Register("tink_tokens", tinkClient.TokenCache())
	caches.StartCleanup(time.Minute)

	engine := services.NewSyncEngine(tinkClient, res.Store)
	syncWorker := worker.NewSyncWorker(engine, inmemory.NewStore(0), cfg.SyncMaxRetries)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	if err := amqpClient.ConsumeSyncRequests(ctx, syncWorker.HandleSyncMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
