package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidJob is returned when a callback job cannot be constructed
	ErrInvalidJob = errors.New("invalid callback job")

	// ErrQueueFull is returned by a bounded queue using the reject policy
	ErrQueueFull = errors.New("dispatch queue is full")

	// ErrQueueClosed is returned when enqueueing into a closed queue
	ErrQueueClosed = errors.New("dispatch queue is closed")

	// ErrDeliveryFailed is returned when a callback response signals a server side failure
	ErrDeliveryFailed = errors.New("callback delivery failed")
)

// DeliveryError describes a failed callback call. Status is zero when the
// request never produced a response.
type DeliveryError struct {
	Destination string
	Status      int
	Err         error
}

func (e *DeliveryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("callback to %s: %v", e.Destination, e.Err)
	}
	return fmt.Sprintf("callback to %s: status %d: %v", e.Destination, e.Status, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Transient reports whether a later attempt could succeed: no response at
// all, or a 5xx from the receiver.
func (e *DeliveryError) Transient() bool {
	return e.Status == 0 || e.Status >= 500
}

// IsRetryable reports whether err carries a transient DeliveryError
func IsRetryable(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Transient()
}
