package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var errNotConnected = errors.New("not connected to RabbitMQ")

// Config holds RabbitMQ connection configuration
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	QueueName          string
	QueueDurable       bool
	QueueAutoDelete    bool
	RoutingKey         string
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

// URI returns the AMQP URI for the configured broker. An empty or "/"
// vhost selects the broker default.
func (c *Config) URI() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strings.TrimPrefix(c.VHost, "/"),
	}
	return u.String()
}

// publishBackoff returns the retry count, first delay and multiplier,
// filling in defaults for unset values
func (c *Config) publishBackoff() (int, time.Duration, float64) {
	retries, delay, mult := c.PublishRetries, c.PublishRetryDelay, c.PublishBackoffMult
	if retries <= 0 {
		retries = 3
	}
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	if mult < 1 {
		mult = 2
	}
	return retries, delay, mult
}

// Client is a RabbitMQ connection bound to one exchange and queue.
// Channel operations are serialized, so a Client can be shared by the
// intake handlers and every drain loop.
type Client struct {
	config *Config
	logger *slog.Logger

	chMu    sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel

	mu        sync.RWMutex
	connected bool
}

// NewClient dials the broker, retrying per the connection settings until
// ctx is done, then declares the topology
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	c := &Client{
		config: config,
		logger: logger,
	}

	if err := c.dial(ctx); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return c, nil
}

func (c *Client) dial(ctx context.Context) error {
	attempts := max(c.config.RetryAttempts, 1)
	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err = amqp.DialConfig(c.config.URI(), amqpConfig)
		if err == nil {
			break
		}

		c.logger.Warn("RabbitMQ dial failed",
			slog.String("host", c.config.Host),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)
		if attempt == attempts {
			return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("connect canceled: %w", ctx.Err())
		case <-time.After(c.config.RetryInterval):
		}
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := declareTopology(ch, c.config); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to setup exchange and queue: %w", err)
	}

	c.conn, c.channel = conn, ch
	go c.watchClose(ch.NotifyClose(make(chan *amqp.Error, 1)))
	c.setConnected(true)

	c.logger.Info("Connected to RabbitMQ",
		slog.String("host", c.config.Host),
		slog.String("exchange", c.config.ExchangeName),
		slog.String("queue", c.config.QueueName),
		slog.String("routing_key", c.config.RoutingKey),
	)
	return nil
}

// declareTopology declares the exchange and queue and binds them with the routing key
func declareTopology(ch *amqp.Channel, cfg *Config) error {
	if err := ch.ExchangeDeclare(cfg.ExchangeName, cfg.ExchangeType, cfg.ExchangeDurable, cfg.ExchangeAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", cfg.ExchangeName, err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, cfg.QueueDurable, cfg.QueueAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", cfg.QueueName, err)
	}
	if err := ch.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", cfg.QueueName, err)
	}
	return nil
}

func (c *Client) watchClose(closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	c.setConnected(false)

	if ok && amqpErr != nil {
		c.logger.Error("RabbitMQ channel closed by broker",
			slog.Int("code", amqpErr.Code),
			slog.String("reason", amqpErr.Reason),
		)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Publish sends msg to the configured exchange as a persistent message,
// retrying failed publishes with exponential backoff
func (c *Client) Publish(ctx context.Context, msg amqp.Publishing) error {
	if !c.IsConnected() {
		return errNotConnected
	}

	msg.DeliveryMode = amqp.Persistent
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	retries, delay, mult := c.config.publishBackoff()

	var err error
	for attempt := 0; ; attempt++ {
		c.chMu.Lock()
		err = c.channel.PublishWithContext(ctx, c.config.ExchangeName, c.config.RoutingKey, false, false, msg)
		c.chMu.Unlock()
		if err == nil {
			return nil
		}
		if attempt == retries {
			break
		}

		c.logger.Warn("Publish failed, retrying",
			slog.String("message_id", msg.MessageId),
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_after", delay),
			slog.Any("error", err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * mult)
	}

	return fmt.Errorf("failed to publish message after %d attempts: %w", retries+1, err)
}

// Get fetches a single message with basic.get; ok is false when the queue is empty.
// The caller must Ack or Nack the delivery.
func (c *Client) Get() (amqp.Delivery, bool, error) {
	if !c.IsConnected() {
		return amqp.Delivery{}, false, errNotConnected
	}

	c.chMu.Lock()
	defer c.chMu.Unlock()

	d, ok, err := c.channel.Get(c.config.QueueName, false)
	if err != nil {
		return amqp.Delivery{}, false, fmt.Errorf("failed to get message: %w", err)
	}
	return d, ok, nil
}

// MessageCount returns the number of ready messages in the queue
func (c *Client) MessageCount() (int, error) {
	if !c.IsConnected() {
		return 0, errNotConnected
	}

	c.chMu.Lock()
	defer c.chMu.Unlock()

	q, err := c.channel.QueueDeclarePassive(c.config.QueueName, c.config.QueueDurable, c.config.QueueAutoDelete, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}
	return q.Messages, nil
}

// Close shuts the channel and the connection
func (c *Client) Close() error {
	c.setConnected(false)

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		c.logger.Error("Failed to close RabbitMQ client", slog.Any("error", err))
		return err
	}
	c.logger.Info("RabbitMQ connection closed")
	return nil
}

// IsConnected reports whether the channel is open
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.conn != nil && !c.conn.IsClosed()
}
