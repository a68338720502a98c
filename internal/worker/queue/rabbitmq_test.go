package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kebal2/etranslation-mock/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBroker keeps published bodies in memory and serves them through Get
type fakeBroker struct {
	mu         sync.Mutex
	messages   [][]byte
	published  []amqp.Publishing
	acked      []uint64
	nacked     []uint64
	nextTag    uint64
	publishErr error
}

func (b *fakeBroker) Publish(ctx context.Context, msg amqp.Publishing) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg.Body)
	b.published = append(b.published, msg)
	return nil
}

func (b *fakeBroker) Get() (amqp.Delivery, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return amqp.Delivery{}, false, nil
	}
	body := b.messages[0]
	b.messages = b.messages[1:]
	b.nextTag++
	return amqp.Delivery{Acknowledger: b, DeliveryTag: b.nextTag, Body: body}, true, nil
}

func (b *fakeBroker) MessageCount() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages), nil
}

func (b *fakeBroker) Ack(tag uint64, multiple bool) error {
	b.acked = append(b.acked, tag)
	return nil
}

func (b *fakeBroker) Nack(tag uint64, multiple, requeue bool) error {
	b.nacked = append(b.nacked, tag)
	return nil
}

func (b *fakeBroker) Reject(tag uint64, requeue bool) error {
	return nil
}

func TestRabbitMQ_EnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{}
	q := NewRabbitMQ(broker, nil)

	job, err := domain.NewDocumentJob("http://cb.test/x", "555123", "ref", []string{"en", "de"}, "aGVsbG8=")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, job))
	assert.Equal(t, 1, q.Len())

	require.Len(t, broker.published, 1)
	msg := broker.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "callback-job", msg.Type)
	assert.Equal(t, "555123", msg.CorrelationId)
	assert.NotEmpty(t, msg.MessageId)

	got, ok, err := q.TryDequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "555123", got.TrackingCode())
	assert.Equal(t, []string{"en", "de"}, got.TargetLanguages())
	assert.Equal(t, domain.PayloadDocument, got.Kind())
	assert.Equal(t, []uint64{1}, broker.acked)

	_, ok, err = q.TryDequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRabbitMQ_SkipsMalformedMessages(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{}
	broker.messages = append(broker.messages, []byte(`not json`))
	q := NewRabbitMQ(broker, nil)

	job, err := domain.NewTextJob("http://cb.test/x", "1", "", []string{"en"}, "hi")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, job))

	got, ok, err := q.TryDequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", got.TrackingCode())
	assert.Equal(t, []uint64{1}, broker.nacked)
	assert.Equal(t, []uint64{2}, broker.acked)
}

func TestRabbitMQ_PublishError(t *testing.T) {
	broker := &fakeBroker{publishErr: errors.New("connection closed")}
	q := NewRabbitMQ(broker, nil)

	job, err := domain.NewTextJob("http://cb.test/x", "1", "", []string{"en"}, "hi")
	require.NoError(t, err)

	err = q.Enqueue(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enqueue job")
}
