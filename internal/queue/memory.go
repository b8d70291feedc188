package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// MemoryConfig holds in-memory queue settings
type MemoryConfig struct {
	BufferSize int
	Workers    int
	Logger     *slog.Logger
	Now        func() time.Time
}

// MemoryQueue is a process-local queue with a background worker loop.
// Jobs do not survive a restart.
type MemoryQueue struct {
	dispatcher *Dispatcher
	jobs       chan Job
	workers    int
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	stopped  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMemoryQueue creates a queue dispatching through d
func NewMemoryQueue(d *Dispatcher, cfg MemoryConfig) *MemoryQueue {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &MemoryQueue{
		dispatcher: d,
		jobs:       make(chan Job, cfg.BufferSize),
		workers:    cfg.Workers,
		logger:     cfg.Logger,
		now:        cfg.Now,
		stopChan:   make(chan struct{}),
	}
}

// Add records a job and returns without waiting for it to run
func (q *MemoryQueue) Add(ctx context.Context, key string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	job, err := NewJob(key, payload, q.now())
	if err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return ErrQueueStopped
	}

	select {
	case q.jobs <- job:
		q.logger.Debug("Job enqueued",
			slog.String("job_id", job.ID),
			slog.String("job_key", job.Key),
		)
		return nil
	default:
		return ErrQueueFull
	}
}

// Start spawns the worker goroutines
func (q *MemoryQueue) Start(ctx context.Context) {
	q.logger.Info("Starting in-memory job queue",
		slog.Int("workers", q.workers),
		slog.Int("buffer_size", cap(q.jobs)),
	)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.workerLoop(ctx, i)
	}
}

// Stop stops the workers and waits for in-flight jobs
func (q *MemoryQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.stopChan)
	q.mu.Unlock()

	q.wg.Wait()

	if pending := len(q.jobs); pending > 0 {
		q.logger.Warn("In-memory job queue stopped with pending jobs",
			slog.Int("pending", pending),
		)
	}
	q.logger.Info("In-memory job queue stopped")
}

// Len is the number of jobs waiting for a worker
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

func (q *MemoryQueue) workerLoop(ctx context.Context, workerNum int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopChan:
			return
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.process(ctx, job, workerNum)
		}
	}
}

func (q *MemoryQueue) process(ctx context.Context, job Job, workerNum int) {
	out := q.dispatcher.Dispatch(ctx, job)
	if !out.Retry {
		return
	}

	q.logger.Debug("Scheduling job retry",
		slog.Int("worker_num", workerNum),
		slog.String("job_id", job.ID),
		slog.Duration("retry_in", out.RetryIn),
	)

	q.wg.Add(1)
	go q.retryAfter(ctx, job.Next(), out.RetryIn)
}

func (q *MemoryQueue) retryAfter(ctx context.Context, job Job, delay time.Duration) {
	defer q.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-q.stopChan:
		q.dispatcher.DeadLetter(ctx, job, errors.New("queue stopped before retry"))
		return
	case <-ctx.Done():
		q.dispatcher.DeadLetter(ctx, job, errors.New("queue stopped before retry"))
		return
	}

	select {
	case q.jobs <- job:
	case <-q.stopChan:
		q.dispatcher.DeadLetter(ctx, job, errors.New("queue stopped before retry"))
	case <-ctx.Done():
		q.dispatcher.DeadLetter(ctx, job, errors.New("queue stopped before retry"))
	}
}
