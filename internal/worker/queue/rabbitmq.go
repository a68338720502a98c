package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kebal2/etranslation-mock/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	jobContentType = "application/json"
	jobMessageType = "callback-job"
)

// Broker is the subset of the shared RabbitMQ client the queue relies on
type Broker interface {
	Publish(ctx context.Context, msg amqp.Publishing) error
	Get() (amqp.Delivery, bool, error)
	MessageCount() (int, error)
}

// RabbitMQ is a broker-backed queue, letting the intake and the delivery
// worker run as separate services. Jobs are acked as soon as they are
// decoded, so a crash mid-delivery loses the job like the in-memory queue does.
type RabbitMQ struct {
	broker Broker
	logger *slog.Logger
}

// NewRabbitMQ creates a queue on top of a connected broker client
func NewRabbitMQ(broker Broker, logger *slog.Logger) *RabbitMQ {
	if logger == nil {
		logger = slog.Default()
	}
	return &RabbitMQ{
		broker: broker,
		logger: logger,
	}
}

// Enqueue publishes the job as a persistent JSON message. Each message gets
// its own id; the tracking code travels as the correlation id.
func (q *RabbitMQ) Enqueue(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return fmt.Errorf("%w: nil job", domain.ErrInvalidJob)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:   jobContentType,
		Type:          jobMessageType,
		MessageId:     uuid.NewString(),
		CorrelationId: job.TrackingCode(),
		Body:          body,
	}
	if err := q.broker.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	return nil
}

// TryDequeue polls the broker once per message with basic.get.
// Malformed messages are dropped without requeue and polling continues.
func (q *RabbitMQ) TryDequeue(ctx context.Context) (*domain.Job, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		delivery, ok, err := q.broker.Get()
		if err != nil {
			return nil, false, fmt.Errorf("failed to get message: %w", err)
		}
		if !ok {
			return nil, false, nil
		}

		var job domain.Job
		if err := json.Unmarshal(delivery.Body, &job); err != nil {
			q.logger.Error("Failed to decode callback job message",
				slog.String("error", err.Error()),
				slog.Uint64("delivery_tag", delivery.DeliveryTag),
			)
			if nackErr := delivery.Nack(false, false); nackErr != nil {
				q.logger.Error("Failed to NACK malformed message",
					slog.String("error", nackErr.Error()),
				)
			}
			continue
		}

		if ackErr := delivery.Ack(false); ackErr != nil {
			q.logger.Error("Failed to ACK message",
				slog.String("request_id", job.TrackingCode()),
				slog.String("error", ackErr.Error()),
			)
		}

		return &job, true, nil
	}
}

// Len returns the broker-reported number of ready messages, or 0 if unavailable
func (q *RabbitMQ) Len() int {
	n, err := q.broker.MessageCount()
	if err != nil {
		q.logger.Warn("Failed to inspect queue depth",
			slog.String("error", err.Error()),
		)
		return 0
	}
	return n
}
