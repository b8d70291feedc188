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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/appointment-service/internal/api/cache"
	"github.com/cuongbtq/appointment-service/internal/api/files"
	"github.com/cuongbtq/appointment-service/internal/api/handler"
	"github.com/cuongbtq/appointment-service/internal/api/router"
	"github.com/cuongbtq/appointment-service/internal/api/service"
	"github.com/cuongbtq/appointment-service/internal/api/storage"
	"github.com/cuongbtq/appointment-service/internal/clock"
	"github.com/cuongbtq/appointment-service/internal/config"
	"github.com/cuongbtq/appointment-service/internal/i18n"
	"github.com/cuongbtq/appointment-service/internal/mail"
	"github.com/cuongbtq/appointment-service/internal/queue"
	"github.com/cuongbtq/appointment-service/internal/worker/jobs"
	workerstorage "github.com/cuongbtq/appointment-service/internal/worker/storage"
	"github.com/cuongbtq/appointment-service/migrations"
	"github.com/cuongbtq/appointment-service/shared/logger"
	"github.com/cuongbtq/appointment-service/shared/postgresql"
	"github.com/cuongbtq/appointment-service/shared/rabbitmq"
)

// appointmentStore is everything the service needs from persistence
type appointmentStore interface {
	service.AppointmentStore
	service.NotificationStore
	service.UserDirectory
}

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

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := cfg.Booking.Location()
	if err != nil {
		return err
	}

	formatter, err := i18n.New(cfg.Booking.Locale)
	if err != nil {
		return fmt.Errorf("failed to initialize locale: %w", err)
	}
	formatter = formatter.In(location)

	// Storage
	var (
		dbClient *postgresql.Client
		store    appointmentStore
	)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		memory := storage.NewMemory()
		if err := seedDemo(memory, cfg.Auth, appLogger.Logger); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		store = memory
		appLogger.Warn("Using in-memory storage, data is lost on restart")
	default:
		dbClient, err = initPostgreSQL(&cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()

		if cfg.Database.AutoMigrate {
			if err := dbClient.Migrate(ctx, migrations.FS); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		store = storage.NewStorage(dbClient)
		appLogger.Info("Database connection established")
	}

	// Job queue
	var enqueuer queue.Enqueuer
	switch cfg.Queue.Backend {
	case config.QueueMemory:
		memoryQueue, err := initMemoryQueue(cfg, dbClient, formatter, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize job queue: %w", err)
		}
		memoryQueue.Start(ctx)
		defer memoryQueue.Stop()
		enqueuer = memoryQueue
		appLogger.Info("In-process job queue started", slog.Int("workers", cfg.Queue.Workers))
	default:
		rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		enqueuer = queue.NewRabbitQueue(rabbitClient, appLogger.Logger)
		appLogger.Info("RabbitMQ connection established")
	}

	// List cache
	var listCache service.ListCache = cache.Nop{}
	if cfg.Redis.Enabled {
		redisClient, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer redisClient.Close()
		listCache = cache.NewRedis(redisClient, cfg.Redis.ListTTL, appLogger.Logger)
		appLogger.Info("Redis list cache enabled", slog.Duration("ttl", cfg.Redis.ListTTL))
	}

	resolver, err := initFiles(&cfg.Files)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}

	svc := service.New(service.Dependencies{
		Appointments:  store,
		Notifications: store,
		Users:         store,
		Queue:         enqueuer,
		Clock:         clock.System{},
		Formatter:     formatter,
		Files:         resolver,
		Cache:         listCache,
		Logger:        appLogger.Logger,
	}, service.Config{PageSize: cfg.Booking.PageSize, Location: location})

	r := initRouter(cfg, appLogger.Logger, svc, dbClient, location)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down server...")
	case err := <-errChan:
		appLogger.Error("Server failed", slog.Any("error", err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
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

// initMemoryQueue builds the in-process queue with the mail job registered.
// Dead letters go to Postgres when a database is configured.
func initMemoryQueue(cfg *config.Config, dbClient *postgresql.Client, formatter *i18n.Formatter, logger *slog.Logger) (*queue.MemoryQueue, error) {
	notifier := initNotifier(&cfg.Mail, logger)

	registry := queue.NewRegistry()
	if err := jobs.Register(registry, jobs.Dependencies{
		Notifier:  notifier,
		Formatter: formatter,
		Logger:    logger,
	}); err != nil {
		return nil, err
	}

	var deadLetters queue.DeadLetterStore = queue.NewMemoryDeadLetters()
	if dbClient != nil {
		deadLetters = workerstorage.NewStorage(dbClient.GetDB(), logger)
	}

	dispatcher := queue.NewDispatcher(queue.DispatcherConfig{
		Registry:    registry,
		DeadLetters: deadLetters,
		Policy:      retryPolicy(&cfg.Queue.Retry),
		JobTimeout:  cfg.Worker.JobTimeout,
		Logger:      logger,
	})

	return queue.NewMemoryQueue(dispatcher, queue.MemoryConfig{
		BufferSize: cfg.Queue.BufferSize,
		Workers:    cfg.Queue.Workers,
		Logger:     logger,
	}), nil
}

func retryPolicy(cfg *config.RetryConfig) queue.RetryPolicy {
	return queue.RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
	}
}

// initNotifier selects the mail delivery backend
func initNotifier(cfg *config.MailConfig, logger *slog.Logger) mail.Notifier {
	if cfg.Provider == config.MailResend {
		return mail.NewResendNotifier(mail.ResendConfig{APIKey: cfg.ResendAPIKey, From: cfg.From}, logger)
	}
	return mail.NewLogNotifier(logger)
}

// initFiles selects how avatar URLs are produced
func initFiles(cfg *config.FilesConfig) (service.URLResolver, error) {
	if cfg.Backend == config.FilesMinIO {
		return files.NewMinIO(files.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			UseSSL:    cfg.MinIO.UseSSL,
			URLExpiry: cfg.MinIO.URLExpiry,
		})
	}
	return files.NewStatic(cfg.BaseURL), nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, svc *service.Service, dbClient *postgresql.Client, location *time.Location) *gin.Engine {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:      logger,
		Service:     svc,
		Development: cfg.IsDevelopment(),
		Location:    location,
	}
	if dbClient != nil {
		handlerDeps.Database = dbClient
	}

	return router.SetupRouter(handlerDeps, router.Config{
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit: router.RateLimitConfig{
			Enabled:           cfg.Server.RateLimit.Enabled,
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		},
	})
}
