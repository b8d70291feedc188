package queue

import "errors"

var (
	// ErrEmptyKey is returned when a job or handler has no key
	ErrEmptyKey = errors.New("job key is required")

	// ErrDuplicateHandler is returned when a key is registered twice
	ErrDuplicateHandler = errors.New("handler already registered for key")

	// ErrNoHandler is returned when a job arrives for an unregistered key
	ErrNoHandler = errors.New("no handler registered for key")

	// ErrInvalidPayload is returned when a job payload cannot be decoded
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrQueueFull is returned by Add when the in-memory buffer is saturated
	ErrQueueFull = errors.New("job queue is full")

	// ErrQueueStopped is returned by Add after Stop
	ErrQueueStopped = errors.New("job queue is stopped")
)

// PermanentError marks a failure that must not be retried
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent error: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the dispatcher dead-letters the job immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is permanent
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
