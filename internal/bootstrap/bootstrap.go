// Package bootstrap builds the runtime components both services share from
// the loaded configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kebal2/etranslation-mock/internal/config"
	"github.com/kebal2/etranslation-mock/internal/worker"
	"github.com/kebal2/etranslation-mock/internal/worker/queue"
	"github.com/kebal2/etranslation-mock/internal/worker/storage"
	"github.com/kebal2/etranslation-mock/shared/logger"
	"github.com/kebal2/etranslation-mock/shared/postgresql"
	"github.com/kebal2/etranslation-mock/shared/rabbitmq"
)

// Infrastructure holds the dispatch queue, the delivery log and the
// connections behind them
type Infrastructure struct {
	Queue       queue.Queue
	DeliveryLog storage.Log

	logger  *slog.Logger
	closers []func() error
	checks  []func(ctx context.Context) error
}

// HealthCheck reports the first unhealthy backend connection
func (i *Infrastructure) HealthCheck(ctx context.Context) error {
	for _, check := range i.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every connection opened by InitInfrastructure, newest first
func (i *Infrastructure) Close() error {
	var errs []error
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}

// CloseQueue stops the dispatch queue from accepting jobs when the backend
// supports it; later enqueues fail with domain.ErrQueueClosed. Queued jobs
// stay available to the worker.
func (i *Infrastructure) CloseQueue() error {
	if c, ok := i.Queue.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// InitInfrastructure connects the configured queue and delivery log backends
func InitInfrastructure(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{logger: log}

	q, err := infra.initQueue(ctx, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	infra.Queue = q

	deliveryLog, err := infra.initDeliveryLog(ctx, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	infra.DeliveryLog = deliveryLog

	return infra, nil
}

func (i *Infrastructure) initQueue(ctx context.Context, cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Backend {
	case config.QueueBackendMemory, "":
		policy, err := queue.ParseOverflowPolicy(cfg.Queue.OverflowPolicy)
		if err != nil {
			return nil, err
		}
		i.logger.Info("Using in-memory dispatch queue",
			slog.Int("capacity", cfg.Queue.Capacity),
			slog.String("overflow_policy", string(policy)),
		)
		return queue.NewMemory(&queue.MemoryConfig{
			Capacity: cfg.Queue.Capacity,
			Policy:   policy,
			Logger:   i.logger,
		}), nil

	case config.QueueBackendRabbitMQ:
		client, err := initRabbitMQ(ctx, &cfg.RabbitMQ, i.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		i.closers = append(i.closers, client.Close)
		i.checks = append(i.checks, func(context.Context) error {
			if !client.IsConnected() {
				return fmt.Errorf("rabbitmq is not connected")
			}
			return nil
		})
		i.logger.Info("RabbitMQ connection established")
		return queue.NewRabbitMQ(client, i.logger), nil

	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}

func (i *Infrastructure) initDeliveryLog(ctx context.Context, cfg *config.Config) (storage.Log, error) {
	switch cfg.DeliveryLog.Backend {
	case config.DeliveryLogNone:
		return nil, nil

	case config.DeliveryLogMemory, "":
		return storage.NewMemory(cfg.DeliveryLog.Capacity), nil

	case config.DeliveryLogPostgres:
		dbClient, err := initPostgreSQL(ctx, &cfg.Database, cfg.App.Name, i.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		i.closers = append(i.closers, dbClient.Close)
		i.checks = append(i.checks, dbClient.HealthCheck)
		i.logger.Info("Database connection established")

		pg := storage.NewPostgres(dbClient.GetDB(), i.logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil

	default:
		return nil, fmt.Errorf("unknown delivery_log backend %q", cfg.DeliveryLog.Backend)
	}
}

// NewWorker creates the callback worker over the infrastructure's queue
func NewWorker(cfg *config.WorkerConfig, infra *Infrastructure, log *slog.Logger) (*worker.Worker, error) {
	return worker.NewWorker(&worker.Config{
		Logger:        log,
		Queue:         infra.Queue,
		HTTPClient:    &http.Client{},
		DeliveryLog:   infra.DeliveryLog,
		RetryPolicy:   RetryPolicy(&cfg.Retry),
		Concurrency:   cfg.Concurrency,
		IdleInterval:  cfg.IdleInterval,
		CallTimeout:   cfg.CallTimeout,
		StatsSchedule: cfg.StatsSchedule,
	})
}

// RetryPolicy maps retry settings to a policy; fewer than two attempts means no retries
func RetryPolicy(cfg *config.RetryConfig) worker.RetryPolicy {
	if cfg.MaxAttempts <= 1 {
		return worker.NoRetry{}
	}
	return worker.ExponentialBackoff{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
		MaxDelay:    cfg.MaxDelay,
	}
}

func initPostgreSQL(ctx context.Context, cfg *config.DatabaseConfig, appName string, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(ctx, &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		ApplicationName: appName,
		ConnectTimeout:  cfg.ConnectTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

func initRabbitMQ(ctx context.Context, cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(ctx, &rabbitmq.Config{
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
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}
