package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cuongbtq/appointment-service/internal/queue"
)

// settle acknowledges a delivery according to the dispatch outcome. A retry
// is published to the delay queue before the original delivery is acked;
// if that publish fails the original is requeued instead.
func (w *Worker) settle(ctx context.Context, workerName string, msg *message, outcome queue.Outcome) {
	logger := w.logger.With(
		slog.String("worker_name", workerName),
		slog.String("job_id", msg.job.ID),
		slog.Uint64("delivery_tag", msg.delivery.DeliveryTag),
	)

	if outcome.Retry {
		if err := w.publishRetry(ctx, msg.job.Next(), outcome); err != nil {
			logger.Error("Failed to schedule job retry, requeueing",
				slog.String("error", err.Error()),
			)
			if nackErr := msg.delivery.Nack(false, true); nackErr != nil {
				logger.Error("Failed to NACK message", slog.String("error", nackErr.Error()))
			}
			return
		}
	}

	if err := msg.delivery.Ack(false); err != nil {
		logger.Error("Failed to ACK message", slog.String("error", err.Error()))
		return
	}

	switch {
	case outcome.Succeeded():
		logger.Debug("Message ACKed")
	case outcome.Retry:
		logger.Info("Job retry scheduled",
			slog.Int("next_attempt", msg.job.Attempt+1),
			slog.Duration("retry_in", outcome.RetryIn),
		)
	default:
		logger.Warn("Job dead-lettered")
	}
}

func (w *Worker) publishRetry(ctx context.Context, next queue.Job, outcome queue.Outcome) error {
	body, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return w.broker.PublishDelayed(ctx, body, queue.ContentTypeJSON, outcome.RetryIn)
}
