package worker

import (
	"time"

	"github.com/kebal2/etranslation-mock/internal/worker/domain"
)

// RetryPolicy decides whether a failed delivery attempt is retried.
// attempt is 1 for the first call.
type RetryPolicy interface {
	Next(attempt int, err error) (delay time.Duration, retry bool)
}

// NoRetry gives every delivery exactly one attempt
type NoRetry struct{}

func (NoRetry) Next(int, error) (time.Duration, bool) {
	return 0, false
}

// ExponentialBackoff retries retryable failures with a growing delay
type ExponentialBackoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

func (p ExponentialBackoff) Next(attempt int, err error) (time.Duration, bool) {
	if attempt >= p.MaxAttempts || !domain.IsRetryable(err) {
		return 0, false
	}

	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * mult)
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay, true
		}
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay, true
}
