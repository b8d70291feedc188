package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/appointment-service/internal/queue"
)

// ErrDeliveriesClosed is returned by Start when the broker closes the consumer
var ErrDeliveriesClosed = errors.New("rabbitmq delivery channel closed")

// Broker is the RabbitMQ capability the worker consumes from and re-publishes retries to
type Broker interface {
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	PublishDelayed(ctx context.Context, body []byte, contentType string, delay time.Duration) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Broker        Broker
	Dispatcher    *queue.Dispatcher
	Concurrency   int
	PrefetchCount int
	WorkerID      string
}

// Worker consumes jobs from RabbitMQ and runs them through the dispatcher
type Worker struct {
	logger        *slog.Logger
	broker        Broker
	dispatcher    *queue.Dispatcher
	concurrency   int
	prefetchCount int
	workerID      string
	jobsChan      chan *message
	wg            sync.WaitGroup
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// message is a decoded job with the delivery it must be settled on
type message struct {
	job      queue.Job
	delivery amqp.Delivery
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()[:8]
	}

	return &Worker{
		logger:        cfg.Logger,
		broker:        cfg.Broker,
		dispatcher:    cfg.Dispatcher,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		workerID:      workerID,
		jobsChan:      make(chan *message),
		stopChan:      make(chan struct{}),
	}
}

// Start consumes until ctx is canceled or Stop is called. Jobs already
// handed to the pool run to completion on a context detached from ctx.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch_count", w.prefetchCount),
		slog.Any("job_keys", w.dispatcher.Registry().Keys()),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(context.WithoutCancel(ctx))

	return w.startMessageDispatcher(ctx, deliveries)
}

// Stop waits for the worker pool to drain
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
