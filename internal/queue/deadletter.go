package queue

import (
	"context"
	"sync"
	"time"
)

// DeadLetter is a job that exhausted its attempts or failed permanently
type DeadLetter struct {
	Job      Job
	Error    string
	FailedAt time.Time
}

// DeadLetterStore keeps jobs that will not be retried
type DeadLetterStore interface {
	Put(ctx context.Context, dl DeadLetter) error
}

// MemoryDeadLetters is a process-local DeadLetterStore
type MemoryDeadLetters struct {
	mu      sync.Mutex
	letters []DeadLetter
}

// NewMemoryDeadLetters creates an empty store
func NewMemoryDeadLetters() *MemoryDeadLetters {
	return &MemoryDeadLetters{}
}

func (m *MemoryDeadLetters) Put(_ context.Context, dl DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.letters = append(m.letters, dl)
	return nil
}

// List returns a copy of the stored dead letters
func (m *MemoryDeadLetters) List() []DeadLetter {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeadLetter, len(m.letters))
	copy(out, m.letters)
	return out
}
