// Package queue dispatches keyed background jobs to registered handlers
// outside the request path.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job is a unit of deferred work
type Job struct {
	ID         string          `json:"id"`
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempt    int             `json:"attempt"`
}

// NewJob encodes payload into a first-attempt job for key
func NewJob(key string, payload any, now time.Time) (Job, error) {
	if key == "" {
		return Job{}, ErrEmptyKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("failed to marshal %s payload: %w", key, err)
	}

	return Job{
		ID:         uuid.New().String(),
		Key:        key,
		Payload:    body,
		EnqueuedAt: now,
		Attempt:    1,
	}, nil
}

// Next returns the job as it should be redelivered after a failed attempt
func (j Job) Next() Job {
	j.Attempt++
	return j
}

// Decode unmarshals the payload into v
func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return Permanent(fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}
	return nil
}

// HandlerFunc processes one job. Returned errors are retried unless Permanent.
type HandlerFunc func(ctx context.Context, job Job) error

// Enqueuer is the producer side of the queue
type Enqueuer interface {
	Add(ctx context.Context, key string, payload any) error
}
