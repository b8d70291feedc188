package queue

import (
	"context"
	"time"
)

// Inline runs jobs synchronously inside Add, retrying without delay.
// Handler failures are not returned to the caller.
type Inline struct {
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewInline creates an inline queue dispatching through d
func NewInline(d *Dispatcher) *Inline {
	return &Inline{dispatcher: d, now: time.Now}
}

func (q *Inline) Add(ctx context.Context, key string, payload any) error {
	job, err := NewJob(key, payload, q.now())
	if err != nil {
		return err
	}

	for {
		out := q.dispatcher.Dispatch(ctx, job)
		if !out.Retry {
			return nil
		}
		job = job.Next()
	}
}
