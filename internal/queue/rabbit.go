package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ContentTypeJSON is the content type of published jobs
const ContentTypeJSON = "application/json"

// Publisher is the broker capability RabbitQueue needs
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// RabbitQueue publishes jobs to RabbitMQ; a worker-service consumes them
type RabbitQueue struct {
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewRabbitQueue creates a RabbitMQ-backed producer
func NewRabbitQueue(publisher Publisher, logger *slog.Logger) *RabbitQueue {
	return &RabbitQueue{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (q *RabbitQueue) Add(ctx context.Context, key string, payload any) error {
	job, err := NewJob(key, payload, q.now())
	if err != nil {
		return err
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.publisher.PublishWithRetry(ctx, body, ContentTypeJSON); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", key, err)
	}

	q.logger.Info("Job enqueued",
		slog.String("job_id", job.ID),
		slog.String("job_key", job.Key),
	)
	return nil
}
