package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/mytankugift/catalog-sync/internal/catalog"
	"github.com/mytankugift/catalog-sync/internal/config"
	"github.com/mytankugift/catalog-sync/internal/events"
	"github.com/mytankugift/catalog-sync/internal/jobs"
	"github.com/mytankugift/catalog-sync/internal/supplier"
	"github.com/mytankugift/catalog-sync/internal/worker"
	"github.com/mytankugift/catalog-sync/internal/worker/stages"
	"github.com/mytankugift/catalog-sync/shared/logger"
	"github.com/mytankugift/catalog-sync/shared/postgresql"
	"github.com/mytankugift/catalog-sync/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.EnableCaller,
	})

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	var eventsPub *events.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := rabbitmq.NewClient(&rabbitmq.Config{
			Host:              cfg.RabbitMQ.Host,
			Port:              cfg.RabbitMQ.Port,
			User:              cfg.RabbitMQ.User,
			Password:          cfg.RabbitMQ.Password,
			VHost:             cfg.RabbitMQ.VHost,
			ExchangeName:      cfg.RabbitMQ.Exchange.Name,
			ExchangeType:      cfg.RabbitMQ.Exchange.Type,
			ExchangeDurable:   cfg.RabbitMQ.Exchange.Durable,
			RetryAttempts:     cfg.RabbitMQ.Connection.RetryAttempts,
			RetryInterval:     cfg.RabbitMQ.Connection.RetryInterval,
			Heartbeat:         cfg.RabbitMQ.Connection.Heartbeat,
			ConnectionTimeout: cfg.RabbitMQ.Connection.ConnectionTimeout,
		}, appLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		eventsPub = events.NewPublisher(rabbitClient, logger.Component(appLogger, "events"))
	}

	repo := jobs.NewRepository(dbClient.DB(), logger.Component(appLogger, "jobs"))
	store := catalog.NewStore(dbClient.DB())
	source := supplier.NewHTTPClient(cfg.Supplier.BaseURL, cfg.Supplier.Timeout)

	engine := stages.NewEngine(&stages.EngineConfig{
		Tracker:     repo,
		Logger:      logger.Component(appLogger, "engine"),
		BatchSize:   cfg.Pipeline.BatchSize,
		BatchPause:  cfg.Pipeline.BatchPause,
		ItemRetries: cfg.Pipeline.ItemRetries,
		RetryDelay:  cfg.Pipeline.RetryDelay,
	})

	stageLogger := logger.Component(appLogger, "stages")
	executors := []worker.Executor{
		stages.NewRawFetcher(engine, source, store, stageLogger, stages.RawConfig{
			PageSize: cfg.Supplier.PageSize,
		}),
		stages.NewNormalizer(engine, store, stageLogger, stages.NormalizeConfig{}),
		stages.NewEnricher(engine, source, store, stageLogger),
		stages.NewPublisher(engine, source, store, stageLogger),
		stages.NewStockRefresher(engine, source, store, stageLogger, stages.StockConfig{
			Freshness: cfg.Pipeline.StockFreshness,
		}),
	}

	workerID := buildWorkerID()
	loops := make([]*worker.Loop, 0, len(executors))
	for _, executor := range executors {
		loops = append(loops, worker.NewLoop(&worker.LoopConfig{
			Store:        repo,
			Executor:     executor,
			Events:       eventsPub,
			Logger:       logger.Component(appLogger, "worker-loop"),
			WorkerID:     workerID,
			PollInterval: cfg.Worker.PollInterval,
		}))
	}

	supervisor := worker.NewSupervisor(logger.Component(appLogger, "supervisor"), loops...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- supervisor.Run(ctx)
	}()

	appLogger.Info("Worker service started", slog.String("worker_id", workerID))

	select {
	case err := <-errChan:
		// A worker loop broke before any shutdown signal.
		return err

	case <-ctx.Done():
		appLogger.Info("Shutdown signal received, letting in-flight jobs finish")

		shutdownTimeout := cfg.Worker.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 30 * time.Second
		}

		select {
		case err := <-errChan:
			if err != nil {
				return err
			}
			appLogger.Info("Worker service shutdown complete")
		case <-time.After(shutdownTimeout):
			appLogger.Warn("Shutdown timeout exceeded, exiting with work in flight")
		}
		return nil
	}
}

func buildWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])
}
