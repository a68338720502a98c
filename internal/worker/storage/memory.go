package storage

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 1000

// Memory keeps the most recent attempts in a fixed-size ring
type Memory struct {
	mu       sync.RWMutex
	attempts []Attempt
	next     int
	full     bool
}

// NewMemory creates a ring holding up to capacity attempts
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &Memory{
		attempts: make([]Attempt, capacity),
	}
}

func (m *Memory) Record(ctx context.Context, attempt *Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts[m.next] = *attempt
	m.next = (m.next + 1) % len(m.attempts)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// ListByRequest returns retained attempts for a request, oldest first
func (m *Memory) ListByRequest(ctx context.Context, requestID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start, count := 0, m.next
	if m.full {
		start, count = m.next, len(m.attempts)
	}

	result := make([]Attempt, 0)
	for i := 0; i < count; i++ {
		a := m.attempts[(start+i)%len(m.attempts)]
		if a.RequestID == requestID {
			result = append(result, a)
		}
	}
	return result, nil
}
