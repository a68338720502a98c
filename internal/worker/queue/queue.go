package queue

import (
	"context"
	"fmt"

	"github.com/kebal2/etranslation-mock/internal/worker/domain"
)

// Queue buffers callback jobs between request intake and the delivery worker
type Queue interface {
	// Enqueue adds a fully formed job. It does not block unless a bounded
	// queue is configured with the block overflow policy.
	Enqueue(ctx context.Context, job *domain.Job) error

	// TryDequeue returns the next job, or ok=false when the queue is empty. It never blocks.
	TryDequeue(ctx context.Context) (job *domain.Job, ok bool, err error)

	// Len reports the number of queued jobs
	Len() int
}

// Notifier is implemented by queues that can wake an idle consumer on enqueue
type Notifier interface {
	Ready() <-chan struct{}
}

// DropCounter is implemented by queues that can evict jobs on overflow
type DropCounter interface {
	Dropped() uint64
}

// OverflowPolicy decides what a bounded queue does when it is full
type OverflowPolicy string

const (
	OverflowReject     OverflowPolicy = "reject"
	OverflowBlock      OverflowPolicy = "block"
	OverflowDropOldest OverflowPolicy = "drop_oldest"
)

// ParseOverflowPolicy validates a configured policy name. An empty name means reject.
func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch OverflowPolicy(name) {
	case "":
		return OverflowReject, nil
	case OverflowReject, OverflowBlock, OverflowDropOldest:
		return OverflowPolicy(name), nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q", name)
	}
}
