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

	"github.com/joho/godotenv"

	"github.com/cuongbtq/appointment-service/internal/config"
	"github.com/cuongbtq/appointment-service/internal/i18n"
	"github.com/cuongbtq/appointment-service/internal/mail"
	"github.com/cuongbtq/appointment-service/internal/queue"
	"github.com/cuongbtq/appointment-service/internal/worker"
	"github.com/cuongbtq/appointment-service/internal/worker/jobs"
	"github.com/cuongbtq/appointment-service/internal/worker/storage"
	"github.com/cuongbtq/appointment-service/migrations"
	"github.com/cuongbtq/appointment-service/shared/logger"
	"github.com/cuongbtq/appointment-service/shared/postgresql"
	"github.com/cuongbtq/appointment-service/shared/rabbitmq"
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

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := dbClient.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	deadLetters := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)
	if cfg.Worker.DeadLetterRetention > 0 {
		purged, err := deadLetters.Purge(ctx, time.Now().Add(-cfg.Worker.DeadLetterRetention))
		if err != nil {
			appLogger.Warn("Failed to purge dead letters", slog.Any("error", err))
		} else {
			appLogger.Info("Purged dead letters",
				slog.Int64("count", purged),
				slog.Duration("retention", cfg.Worker.DeadLetterRetention),
			)
		}
	}

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	location, err := cfg.Booking.Location()
	if err != nil {
		return err
	}

	formatter, err := i18n.New(cfg.Booking.Locale)
	if err != nil {
		return fmt.Errorf("failed to initialize locale: %w", err)
	}
	formatter = formatter.In(location)

	registry := queue.NewRegistry()
	if err := jobs.Register(registry, jobs.Dependencies{
		Notifier:  initNotifier(&cfg.Mail, appLogger.Logger),
		Formatter: formatter,
		Logger:    appLogger.Logger,
	}); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	dispatcher := queue.NewDispatcher(queue.DispatcherConfig{
		Registry:    registry,
		DeadLetters: deadLetters,
		Policy: queue.RetryPolicy{
			MaxAttempts:     cfg.Queue.Retry.MaxAttempts,
			InitialInterval: cfg.Queue.Retry.InitialInterval,
			MaxInterval:     cfg.Queue.Retry.MaxInterval,
			Multiplier:      cfg.Queue.Retry.Multiplier,
		},
		JobTimeout: cfg.Worker.JobTimeout,
		Logger:     appLogger.Logger,
	})

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Logger,
		Broker:        rabbitClient,
		Dispatcher:    dispatcher,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case runErr = <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", runErr),
		)
	}

	// Stop consuming
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
	return runErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.NoColor,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
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
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryQueueName:     cfg.Queue.RetryName,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initNotifier selects the mail delivery backend
func initNotifier(cfg *config.MailConfig, logger *slog.Logger) mail.Notifier {
	if cfg.Provider == config.MailResend {
		return mail.NewResendNotifier(mail.ResendConfig{APIKey: cfg.ResendAPIKey, From: cfg.From}, logger)
	}
	return mail.NewLogNotifier(logger)
}
