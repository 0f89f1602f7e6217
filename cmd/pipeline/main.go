package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"circular_fetcher/internal/alert"
	"circular_fetcher/internal/cache"
	"circular_fetcher/internal/config"
	"circular_fetcher/internal/extract"
	"circular_fetcher/internal/fetch"
	"circular_fetcher/internal/publisher"
	"circular_fetcher/internal/reconcile"
	"circular_fetcher/internal/scheduler"
	"circular_fetcher/internal/service"
	"circular_fetcher/internal/source"
	"circular_fetcher/internal/source/bdjobs"
	"circular_fetcher/internal/source/govbd"
	"circular_fetcher/internal/storage/postgres"
)

const runTimeout = 30 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The cache is an optimization: an unreachable redis degrades the
	// pipeline to uncached reads, it never blocks startup.
	var cacheStore cache.Store
	rdb, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Warn("redis unavailable, running uncached", "error", err)
		cacheStore = cache.Noop{}
	} else {
		defer rdb.Close()
		logger.Info("connected to redis")
		cacheStore = cache.NewRedisStore(rdb)
	}
	resultCache := cache.New(cacheStore, cfg.Cache.DefaultTTL, cfg.Cache.TTLs, logger)

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	jobRecords := postgres.NewJobRecordStore(db)
	alertStore := postgres.NewAlertStore(db)
	runStateStore := postgres.NewRunStateStore(db)
	lowConfidence := postgres.NewLowConfidenceStore(db)
	txManager := postgres.NewTransactionManager(db)

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to build source registry", "error", err)
		os.Exit(1)
	}
	if len(registry.Drivers()) == 0 {
		logger.Error("no sources enabled")
		os.Exit(1)
	}

	fetcher := fetch.NewScheduler(registry.Drivers(), cfg.Fetch, logger)
	extractor := extract.New(cfg.Extract.AcceptThreshold, logger)
	reconciler := reconcile.New(jobRecords, txManager, cfg.Reconcile.MissedRunThreshold, logger)
	matcher := alert.NewMatcher()

	pipeline := service.NewPipeline(
		fetcher,
		extractor,
		reconciler,
		alertStore,
		matcher,
		rabbitMQ,
		resultCache,
		lowConfidence,
		runStateStore,
		logger,
	)

	sched := scheduler.NewScheduler(pipeline, cfg.Schedule, runTimeout, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting circular fetcher",
		"sources", len(registry.Drivers()),
		"schedule", cfg.Schedule,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func buildRegistry(cfg *config.Config, logger *slog.Logger) (*source.Registry, error) {
	registry := source.NewRegistry()

	for id, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}

		var driver source.Driver
		switch id {
		case govbd.SourceID:
			driver = govbd.New(govbd.Config{BaseURL: src.BaseURL, PageSize: src.PageSize}, logger)
		case bdjobs.SourceID:
			driver = bdjobs.New(bdjobs.Config{BaseURL: src.BaseURL, PageSize: src.PageSize}, logger)
		default:
			logger.Warn("unknown source in config, skipping", "source", id)
			continue
		}

		if err := registry.Register(driver); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
