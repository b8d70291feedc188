package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/appointment-service/internal/queue"
)

// setupConsumer sets up RabbitMQ consumer with QoS and returns delivery channel
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	if err := w.broker.Qos(w.prefetchCount); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	w.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.broker.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
	)

	return deliveries, nil
}

// startMessageDispatcher decodes deliveries and hands them to the worker pool
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - worker stopping")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return ErrDeliveriesClosed
			}

			job, err := decodeJob(delivery.Body)
			if err != nil {
				w.rejectMalformed(ctx, delivery, err)
				continue
			}

			select {
			case w.jobsChan <- &message{job: job, delivery: delivery}:
				w.logger.Debug("Job dispatched to worker pool",
					slog.String("job_id", job.ID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.requeueOnShutdown(delivery)
				return nil
			case <-w.stopChan:
				w.requeueOnShutdown(delivery)
				return nil
			}
		}
	}
}

func decodeJob(body []byte) (queue.Job, error) {
	var job queue.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("%w: %v", queue.ErrInvalidPayload, err)
	}
	if job.Key == "" {
		return job, queue.ErrEmptyKey
	}
	if _, err := uuid.Parse(job.ID); err != nil {
		return job, fmt.Errorf("invalid job id %q: %w", job.ID, err)
	}
	if job.Attempt < 1 {
		job.Attempt = 1
	}
	return job, nil
}

// rejectMalformed dead-letters a body that is not a job and drops it from the queue
func (w *Worker) rejectMalformed(ctx context.Context, delivery amqp.Delivery, cause error) {
	w.logger.Error("Failed to decode job message",
		slog.String("error", cause.Error()),
		slog.Uint64("delivery_tag", delivery.DeliveryTag),
	)

	raw := queue.Job{Payload: delivery.Body, EnqueuedAt: delivery.Timestamp}
	if !json.Valid(delivery.Body) {
		quoted, _ := json.Marshal(string(delivery.Body))
		raw.Payload = quoted
	}
	w.dispatcher.DeadLetter(ctx, raw, errors.Join(queue.ErrInvalidPayload, cause))

	if nackErr := delivery.Nack(false, false); nackErr != nil {
		w.logger.Error("Failed to NACK malformed message",
			slog.String("error", nackErr.Error()),
		)
	}
}

func (w *Worker) requeueOnShutdown(delivery amqp.Delivery) {
	w.logger.Info("Message dispatcher stopped while dispatching job")
	if nackErr := delivery.Nack(false, true); nackErr != nil {
		w.logger.Error("Failed to NACK message on shutdown",
			slog.String("error", nackErr.Error()),
		)
	}
}
