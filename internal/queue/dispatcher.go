package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const deadLetterWriteTimeout = 5 * time.Second

// DispatcherConfig holds dispatcher dependencies
type DispatcherConfig struct {
	Registry    *Registry
	DeadLetters DeadLetterStore
	Policy      RetryPolicy
	JobTimeout  time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// Outcome is the result of one dispatch attempt
type Outcome struct {
	Err     error
	Retry   bool
	RetryIn time.Duration
}

// Succeeded reports whether the handler completed without error
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Dispatcher resolves a job's handler and runs it under the retry policy
type Dispatcher struct {
	registry    *Registry
	deadLetters DeadLetterStore
	policy      RetryPolicy
	jobTimeout  time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		registry:    cfg.Registry,
		deadLetters: cfg.DeadLetters,
		policy:      cfg.Policy.withDefaults(),
		jobTimeout:  cfg.JobTimeout,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.deadLetters == nil {
		d.deadLetters = NewMemoryDeadLetters()
	}
	if d.jobTimeout <= 0 {
		d.jobTimeout = 30 * time.Second
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Registry exposes the handler registry
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs one attempt of job. Terminal failures are dead-lettered
// before returning; a retryable failure reports the delay to wait.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) Outcome {
	logger := d.logger.With(
		slog.String("job_id", job.ID),
		slog.String("job_key", job.Key),
		slog.Int("attempt", job.Attempt),
	)

	var err error
	handler, ok := d.registry.Lookup(job.Key)
	if !ok {
		err = Permanent(fmt.Errorf("%w: %s", ErrNoHandler, job.Key))
	} else {
		logger.Info("Job dispatched")
		start := time.Now()
		err = d.run(ctx, handler, job)
		logger = logger.With(slog.Duration("duration", time.Since(start)))
	}

	if err == nil {
		logger.Info("Job succeeded")
		return Outcome{}
	}

	if !IsPermanent(err) && d.policy.ShouldRetry(job.Attempt) {
		delay := d.policy.Backoff(job.Attempt)
		logger.Warn("Job failed, retry scheduled",
			slog.String("error", err.Error()),
			slog.Int("max_attempts", d.policy.MaxAttempts),
			slog.Duration("retry_in", delay),
		)
		return Outcome{Err: err, Retry: true, RetryIn: delay}
	}

	logger.Error("Job failed permanently",
		slog.String("error", err.Error()),
		slog.Bool("permanent", IsPermanent(err)),
	)
	d.DeadLetter(ctx, job, err)
	return Outcome{Err: err}
}

// DeadLetter stores job with its failure cause
func (d *Dispatcher) DeadLetter(ctx context.Context, job Job, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadLetterWriteTimeout)
	defer cancel()

	dl := DeadLetter{Job: job, Error: cause.Error(), FailedAt: d.now()}
	if err := d.deadLetters.Put(ctx, dl); err != nil {
		d.logger.Error("Failed to store dead letter",
			slog.String("job_id", job.ID),
			slog.String("job_key", job.Key),
			slog.Any("error", err),
		)
	}
}

func (d *Dispatcher) run(ctx context.Context, handler HandlerFunc, job Job) (err error) {
	jobCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()

	return handler(jobCtx, job)
}
