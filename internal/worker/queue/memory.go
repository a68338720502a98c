package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kebal2/etranslation-mock/internal/worker/domain"
)

// MemoryConfig holds in-memory queue configuration
type MemoryConfig struct {
	// Capacity bounds the queue; 0 means unbounded
	Capacity int
	Policy   OverflowPolicy
	Logger   *slog.Logger
}

// Memory is an in-process FIFO of callback jobs, safe for many producers
// and any number of consumers. Jobs are lost when the process exits.
type Memory struct {
	mu       sync.Mutex
	items    []*domain.Job
	capacity int
	policy   OverflowPolicy
	logger   *slog.Logger
	ready    chan struct{}
	space    chan struct{}
	dropped  uint64
	closed   bool
}

// NewMemory creates a new in-memory queue
func NewMemory(cfg *MemoryConfig) *Memory {
	q := &Memory{
		policy: OverflowReject,
		logger: slog.Default(),
		ready:  make(chan struct{}, 1),
		space:  make(chan struct{}),
	}

	if cfg != nil {
		if cfg.Capacity > 0 {
			q.capacity = cfg.Capacity
		}
		if cfg.Policy != "" {
			q.policy = cfg.Policy
		}
		if cfg.Logger != nil {
			q.logger = cfg.Logger
		}
	}

	return q
}

// Enqueue appends a job to the tail of the queue
func (q *Memory) Enqueue(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return fmt.Errorf("%w: nil job", domain.ErrInvalidJob)
	}

	q.mu.Lock()
	for {
		if q.closed {
			q.mu.Unlock()
			return domain.ErrQueueClosed
		}
		if q.capacity == 0 || len(q.items) < q.capacity {
			break
		}

		switch q.policy {
		case OverflowDropOldest:
			evicted := q.popLocked()
			q.dropped++
			q.logger.Warn("Dispatch queue full, dropping oldest job",
				slog.String("request_id", evicted.TrackingCode()),
				slog.String("destination", evicted.Destination().String()),
				slog.Int("capacity", q.capacity),
			)

		case OverflowBlock:
			space := q.space
			q.mu.Unlock()
			select {
			case <-ctx.Done():
				return fmt.Errorf("waiting for queue capacity: %w", ctx.Err())
			case <-space:
			}
			q.mu.Lock()

		default:
			q.mu.Unlock()
			return fmt.Errorf("%w: capacity %d", domain.ErrQueueFull, q.capacity)
		}
	}

	q.items = append(q.items, job)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}

	return nil
}

// TryDequeue removes and returns the head of the queue without blocking
func (q *Memory) TryDequeue(ctx context.Context) (*domain.Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false, nil
	}

	return q.popLocked(), true, nil
}

// popLocked removes the head; the caller holds q.mu and has checked the queue is non-empty
func (q *Memory) popLocked() *domain.Job {
	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]

	if q.capacity > 0 {
		close(q.space)
		q.space = make(chan struct{})
	}

	return job
}

// Len returns the current queue depth
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the queue from accepting jobs and releases producers waiting
// for capacity. Jobs already queued can still be dequeued.
func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.space)
	q.space = make(chan struct{})
	return nil
}

// Dropped returns how many jobs the drop_oldest policy has evicted
func (q *Memory) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Ready signals, at most once per burst, that a job was enqueued
func (q *Memory) Ready() <-chan struct{} {
	return q.ready
}
