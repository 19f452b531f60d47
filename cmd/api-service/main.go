package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mytankugift/catalog-sync/internal/api/handler"
	"github.com/mytankugift/catalog-sync/internal/api/router"
	"github.com/mytankugift/catalog-sync/internal/config"
	"github.com/mytankugift/catalog-sync/internal/events"
	"github.com/mytankugift/catalog-sync/internal/jobs"
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

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.EnableCaller,
	})

	appLogger.Info("Starting API service",
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

	engine := router.SetupRouter(&handler.Dependencies{
		Logger: logger.Component(appLogger, "api"),
		Jobs:   repo,
		Events: eventsPub,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server listening", slog.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received")
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	appLogger.Info("API service shutdown complete")
	return nil
}
