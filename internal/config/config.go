package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/cuongbtq/appointment-service/internal/domain"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Backend and provider names accepted in configuration
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	QueueRabbitMQ = "rabbitmq"
	QueueMemory   = "memory"

	MailResend = "resend"
	MailLog    = "log"

	FilesLocal = "local"
	FilesMinIO = "minio"

	EnvDevelopment = "development"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Queue    QueueConfig    `yaml:"queue"`
	Mail     MailConfig     `yaml:"mail"`
	Files    FilesConfig    `yaml:"files"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	AllowedOrigins  []string        `yaml:"allowed_origins"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per-client token bucket applied to write endpoints
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      AMQPQueueConfig  `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// AMQPQueueConfig holds RabbitMQ queue configuration
type AMQPQueueConfig struct {
	Name       string `yaml:"name"`
	RetryName  string `yaml:"retry_name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// RedisConfig holds the appointment list cache settings
type RedisConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	ListTTL time.Duration `yaml:"list_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	NoColor      bool   `yaml:"no_color"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency         int           `yaml:"concurrency"`
	JobTimeout          time.Duration `yaml:"job_timeout"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
	DeadLetterRetention time.Duration `yaml:"dead_letter_retention"`
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// BookingConfig holds business settings of the booking API
type BookingConfig struct {
	PageSize int    `yaml:"page_size"`
	Locale   string `yaml:"locale"`
	// Timezone is an IANA zone name; empty means the host zone
	Timezone string `yaml:"timezone"`
}

// Location resolves Timezone. Appointment slots are whole hours of it.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

// QueueConfig selects the job queue backend and its retry policy
type QueueConfig struct {
	Backend    string      `yaml:"backend"`
	BufferSize int         `yaml:"buffer_size"`
	Workers    int         `yaml:"workers"`
	Retry      RetryConfig `yaml:"retry"`
}

// RetryConfig is the job retry policy
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Multiplier      float64       `yaml:"multiplier"`
}

// MailConfig selects how e-mail is delivered
type MailConfig struct {
	Provider     string `yaml:"provider"`
	ResendAPIKey string `yaml:"resend_api_key"`
	From         string `yaml:"from"`
}

// FilesConfig selects how avatar URLs are produced
type FilesConfig struct {
	Backend string      `yaml:"backend"`
	BaseURL string      `yaml:"base_url"`
	MinIO   MinIOConfig `yaml:"minio"`
}

// MinIOConfig holds object storage settings
type MinIOConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Bucket    string        `yaml:"bucket"`
	Region    string        `yaml:"region"`
	UseSSL    bool          `yaml:"use_ssl"`
	URLExpiry time.Duration `yaml:"url_expiry"`
}

// Load reads and parses the configuration file, then applies environment
// overrides and defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	return &config, nil
}

// IsDevelopment reports whether error details may be exposed to clients
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"JWT_SECRET", &c.Auth.JWTSecret},
		{"DATABASE_PASSWORD", &c.Database.Password},
		{"RABBITMQ_PASSWORD", &c.RabbitMQ.Password},
		{"REDIS_URL", &c.Redis.URL},
		{"RESEND_API_KEY", &c.Mail.ResendAPIKey},
		{"MINIO_SECRET_KEY", &c.Files.MinIO.SecretKey},
		{"APP_ENV", &c.App.Environment},
		{"BOOKING_TIMEZONE", &c.Booking.Timezone},
	}

	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}
}

func (c *Config) applyDefaults() {
	setString(&c.Database.Driver, DriverPostgres)
	setString(&c.Database.SSLMode, "disable")
	setString(&c.Queue.Backend, QueueRabbitMQ)
	setString(&c.Mail.Provider, MailLog)
	setString(&c.Files.Backend, FilesLocal)
	setString(&c.Booking.Locale, "pt-BR")
	setString(&c.App.Environment, EnvDevelopment)

	setInt(&c.Booking.PageSize, domain.DefaultPageSize)
	setInt(&c.Queue.BufferSize, 256)
	setInt(&c.Queue.Workers, 2)
	setInt(&c.Queue.Retry.MaxAttempts, 5)
	setInt(&c.Worker.Concurrency, 4)
	setInt(&c.Server.RateLimit.Burst, 10)

	setDuration(&c.Queue.Retry.InitialInterval, time.Second)
	setDuration(&c.Queue.Retry.MaxInterval, 5*time.Minute)
	setDuration(&c.Worker.JobTimeout, 30*time.Second)
	setDuration(&c.Worker.ShutdownTimeout, 30*time.Second)
	setDuration(&c.Server.ShutdownTimeout, 10*time.Second)
	setDuration(&c.Auth.TokenTTL, 7*24*time.Hour)
	setDuration(&c.Redis.ListTTL, time.Minute)
	setDuration(&c.Files.MinIO.URLExpiry, time.Hour)

	if c.Queue.Retry.Multiplier < 1 {
		c.Queue.Retry.Multiplier = 2
	}
	if c.Server.RateLimit.RequestsPerSecond <= 0 {
		c.Server.RateLimit.RequestsPerSecond = 5
	}
	if c.RabbitMQ.Consumer.PrefetchCount <= 0 {
		c.RabbitMQ.Consumer.PrefetchCount = c.Worker.Concurrency
	}
}

// ValidateAPIConfig checks the sections the api-service needs
func (c *Config) ValidateAPIConfig() error {
	if err := validatePort("server", c.Server.Port); err != nil {
		return err
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required")
	}

	if c.Booking.PageSize <= 0 {
		return fmt.Errorf("booking page_size must be greater than 0")
	}

	if _, err := c.Booking.Location(); err != nil {
		return err
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if err := c.validateDatabase(); err != nil {
			return err
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	switch c.Queue.Backend {
	case QueueRabbitMQ:
		if err := c.validateRabbitMQ(); err != nil {
			return err
		}
	case QueueMemory:
		if err := c.validateMail(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported queue backend: %q", c.Queue.Backend)
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis url is required when redis is enabled")
	}

	switch c.Files.Backend {
	case FilesLocal:
	case FilesMinIO:
		if c.Files.MinIO.Endpoint == "" || c.Files.MinIO.Bucket == "" {
			return fmt.Errorf("minio endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unsupported files backend: %q", c.Files.Backend)
	}

	return nil
}

// ValidateWorkerConfig checks the sections the worker-service needs
func (c *Config) ValidateWorkerConfig() error {
	if c.Database.Driver != DriverPostgres {
		return fmt.Errorf("worker requires the postgres database driver, got %q", c.Database.Driver)
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if err := c.validateMail(); err != nil {
		return err
	}

	if _, err := c.Booking.Location(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if err := validatePort("database", c.Database.Port); err != nil {
		return err
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}
	if err := validatePort("rabbitmq", c.RabbitMQ.Port); err != nil {
		return err
	}
	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}
	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}
	return nil
}

func (c *Config) validateMail() error {
	switch c.Mail.Provider {
	case MailLog:
		return nil
	case MailResend:
		if c.Mail.ResendAPIKey == "" {
			return fmt.Errorf("mail resend_api_key is required for the resend provider")
		}
		if c.Mail.From == "" {
			return fmt.Errorf("mail from is required for the resend provider")
		}
		return nil
	default:
		return fmt.Errorf("unsupported mail provider: %q", c.Mail.Provider)
	}
}

func validatePort(section string, port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("invalid %s port: %d (must be between %d and %d)", section, port, MinPort, MaxPort)
	}
	return nil
}

func setString(target *string, def string) {
	if *target == "" {
		*target = def
	}
}

func setInt(target *int, def int) {
	if *target <= 0 {
		*target = def
	}
}

func setDuration(target *time.Duration, def time.Duration) {
	if *target <= 0 {
		*target = def
	}
}
