package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// EnvPrefix prefixes environment overrides, e.g. TRANSLATEMOCK_SERVER_PORT
	EnvPrefix = "TRANSLATEMOCK"
)

// Queue backends
const (
	QueueBackendMemory   = "memory"
	QueueBackendRabbitMQ = "rabbitmq"
)

// Delivery log backends
const (
	DeliveryLogMemory   = "memory"
	DeliveryLogPostgres = "postgres"
	DeliveryLogNone     = "none"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Logging     LoggingConfig     `yaml:"logging"`
	App         AppConfig         `yaml:"app"`
	Queue       QueueConfig       `yaml:"queue"`
	Worker      WorkerConfig      `yaml:"worker"`
	DeliveryLog DeliveryLogConfig `yaml:"delivery_log" split_words:"true"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" split_words:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" split_words:"true"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      BrokerQueue      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key" split_words:"true"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete" split_words:"true"`
}

// BrokerQueue holds RabbitMQ queue configuration
type BrokerQueue struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete" split_words:"true"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts" split_words:"true"`
	RetryInterval time.Duration `yaml:"retry_interval" split_words:"true"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts" split_words:"true"`
	RetryInterval     time.Duration `yaml:"retry_interval" split_words:"true"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" split_words:"true"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller" split_words:"true"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// QueueConfig selects and sizes the dispatch queue
type QueueConfig struct {
	Backend        string `yaml:"backend"`
	Capacity       int    `yaml:"capacity"`
	OverflowPolicy string `yaml:"overflow_policy" split_words:"true"`
}

// WorkerConfig holds callback worker configuration
type WorkerConfig struct {
	// Embedded runs the worker inside the API service
	Embedded        bool          `yaml:"embedded"`
	Concurrency     int           `yaml:"concurrency"`
	IdleInterval    time.Duration `yaml:"idle_interval" split_words:"true"`
	CallTimeout     time.Duration `yaml:"call_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	StatsSchedule   string        `yaml:"stats_schedule" split_words:"true"`
	Retry           RetryConfig   `yaml:"retry"`
}

// RetryConfig configures callback retries; MaxAttempts <= 1 disables them
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" split_words:"true"`
	BaseDelay   time.Duration `yaml:"base_delay" split_words:"true"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay" split_words:"true"`
}

// DeliveryLogConfig selects where delivery attempts are recorded
type DeliveryLogConfig struct {
	Backend  string `yaml:"backend"`
	Capacity int    `yaml:"capacity"`
}

// Default returns the configuration used when a key is absent from the file
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		App: AppConfig{
			Name:        "etranslation-mock",
			Environment: "development",
		},
		Queue: QueueConfig{
			Backend: QueueBackendMemory,
		},
		Worker: WorkerConfig{
			Embedded:        true,
			Concurrency:     1,
			IdleInterval:    time.Second,
			ShutdownTimeout: 2 * time.Second,
			StatsSchedule:   "@every 1m",
		},
		DeliveryLog: DeliveryLogConfig{
			Backend:  DeliveryLogMemory,
			Capacity: 1000,
		},
	}
}

// Load reads the configuration file on top of the defaults, then applies
// TRANSLATEMOCK_* environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return config, nil
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateQueue(); err != nil {
		return err
	}

	if c.Queue.Backend == QueueBackendMemory && !c.Worker.Embedded {
		return fmt.Errorf("memory queue requires worker.embedded: jobs would never be delivered")
	}

	if c.Worker.Embedded {
		if err := c.ValidateWorkerConfig(); err != nil {
			return err
		}
	}

	return c.validateDeliveryLog()
}

// ValidateWorkerConfig checks the settings the callback worker needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateQueue(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.IdleInterval <= 0 {
		return fmt.Errorf("worker idle_interval must be greater than 0")
	}

	if c.Worker.CallTimeout < 0 {
		return fmt.Errorf("worker call_timeout must not be negative")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Worker.Retry.MaxAttempts > 1 && c.Worker.Retry.BaseDelay <= 0 {
		return fmt.Errorf("worker retry base_delay must be greater than 0 when retries are enabled")
	}

	return c.validateDeliveryLog()
}

// ValidateStandaloneWorker checks a worker running in its own process
func (c *Config) ValidateStandaloneWorker() error {
	if c.Queue.Backend != QueueBackendRabbitMQ {
		return fmt.Errorf("standalone worker requires the rabbitmq queue backend, got %q", c.Queue.Backend)
	}
	return c.ValidateWorkerConfig()
}

func (c *Config) validateQueue() error {
	switch c.Queue.Backend {
	case QueueBackendMemory:
		if c.Queue.Capacity < 0 {
			return fmt.Errorf("queue capacity must not be negative")
		}
		switch c.Queue.OverflowPolicy {
		case "", "reject", "block", "drop_oldest":
		default:
			return fmt.Errorf("unknown queue overflow_policy %q", c.Queue.OverflowPolicy)
		}
	case QueueBackendRabbitMQ:
		if err := c.validateRabbitMQ(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown queue backend %q", c.Queue.Backend)
	}
	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}

func (c *Config) validateDeliveryLog() error {
	switch c.DeliveryLog.Backend {
	case DeliveryLogMemory, DeliveryLogNone, "":
		return nil
	case DeliveryLogPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown delivery_log backend %q", c.DeliveryLog.Backend)
	}
}
