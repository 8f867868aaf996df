package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/signal-pipeline/internal/config"
	"github.com/cuongbtq/signal-pipeline/internal/ingest"
	"github.com/cuongbtq/signal-pipeline/internal/ingest/storage"
	"github.com/cuongbtq/signal-pipeline/shared/logger"
	"github.com/cuongbtq/signal-pipeline/shared/postgresql"
	"github.com/cuongbtq/signal-pipeline/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("INGEST_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/ingest-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateIngestConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting ingest service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	rabbitClient := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	rabbitClient.Initialize()

	ingestHandler := ingest.NewHandler(&ingest.Config{
		Store:       storage.NewStorage(dbClient.GetDB(), appLogger.Logger),
		Publisher:   rabbitClient,
		StreamQueue: cfg.RabbitMQ.Queues.Signals,
		Logger:      appLogger.Logger,
	})

	cleanup := func() {
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if dbClient != nil {
			dbClient.Close()
		}
	}
	defer cleanup()

	// Quit on SIGINT/SIGTERM, including while still waiting for the broker.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := subscribe(ctx, rabbitClient, cfg, ingestHandler, appLogger.Logger); err != nil {
		if errors.Is(err, context.Canceled) {
			appLogger.Info("Shutdown requested before subscription was established")
			return nil
		}
		return err
	}

	appLogger.Info("Ingest service is running",
		slog.String("queue", cfg.RabbitMQ.Queues.Uploads),
	)

	<-ctx.Done()

	appLogger.Info("Shutting down ingest service...")
	return nil
}

// subscribe waits for the first connection and registers the upload
// consumer. Subscribe fails fast while disconnected, so a connection lost
// between the wait and the call is retried here; once registered, the
// client re-arms the consumer after every reconnect on its own.
func subscribe(ctx context.Context, client *rabbitmq.Client, cfg *config.Config, h *ingest.Handler, logger *slog.Logger) error {
	waitCtx := ctx
	if cfg.Ingest.StartupTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, cfg.Ingest.StartupTimeout)
		defer cancel()
	}

	for {
		if err := client.WaitConnected(waitCtx); err != nil {
			return fmt.Errorf("broker not reachable: %w", err)
		}

		err := client.Subscribe(cfg.RabbitMQ.Queues.Uploads, h.HandleUpload)
		if err == nil {
			return nil
		}
		if errors.Is(err, rabbitmq.ErrNotConnected) {
			logger.Warn("Connection lost before subscribing, retrying")
			continue
		}
		return fmt.Errorf("failed to subscribe: %w", err)
	}
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRabbitMQ builds the RabbitMQ client; Initialize starts it
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) *rabbitmq.Client {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		Queues:             cfg.Queues.Names(),
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		ReconnectBaseDelay: cfg.Connection.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Connection.ReconnectMaxDelay,
	}, logger)
}
