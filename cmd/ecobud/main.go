package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ecobud/internal/analytics"
	"ecobud/internal/backend"
	"ecobud/internal/cache"
	"ecobud/internal/cli"
	apphttp "ecobud/internal/http"
	"ecobud/internal/log"
	"ecobud/internal/middleware/ratelimit"
	"ecobud/internal/services"
	"ecobud/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, backendCfg.Type)
		os.Exit(1)
	}
	store := res.Store

	dispatcher, err := backend.NewDispatcher(backend.DispatcherConfig{
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
		Workers:      cfg.SyncWorkers,
		QueueSize:    cfg.SyncQueueSize,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize sync dispatcher", log.FieldError, err)
		os.Exit(1)
	}

	tinkClient := cli.TinkClient(cfg)
	engine := services.NewSyncEngine(tinkClient, store)
	txService := services.NewTransactionService(store, engine, dispatcher.Publisher, cfg.SyncPageCount, cfg.SyncMaxRetries)
	userService := services.NewUserService(store, tinkClient)
	bankService := services.NewBankService(store, tinkClient, nil)

	readiness := []apphttp.Pinger{store}
	if dispatcher.Broker != nil {
		readiness = append(readiness, dispatcher.Broker)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions: txService,
		Analytics:    analytics.NewEngine(store),
		Users:        userService,
		Bank:         bankService,
		Raw:          tinkClient,
		Jobs:         dispatcher.Jobs,
		Readiness:    readiness,
		Logger:       logger.WithComponent(log.ComponentHTTP),
	}, apphttp.Options{
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies(),
		RateLimit:     ratelimit.DefaultConfig(),
		PageCount:     cfg.SyncPageCount,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	caches := cache.NewManager()
	caches.Register("tink_tokens", tinkClient.TokenCache())
	caches.Register("sessions", srv.Sessions())
	caches.Register("link_states", bankService.States())
	caches.StartCleanup(time.Minute)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := dispatcher.Close(); err != nil {
			logger.Warn("Sync dispatcher close error", log.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	if dispatcher.Queue != nil {
		syncWorker := worker.NewSyncWorker(engine, dispatcher.Jobs, cfg.SyncMaxRetries)
		if err := dispatcher.Queue.Start(gctx, syncWorker.HandleJob); err != nil {
			logger.Error("Failed to start sync queue", log.FieldError, err)
			os.Exit(1)
		}
	}

	g.Go(func() error {
		logger.Info("Starting ecobud server", "port", cfg.Port, log.FieldBackend, backendCfg.Type, "amqp", cfg.UsesAMQP())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
