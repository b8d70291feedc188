package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/appointment-service/internal/queue"
)

// Storage persists jobs that will not be retried
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Put records a dead letter. Undecodable messages are stored without a job id.
func (s *Storage) Put(ctx context.Context, dl queue.DeadLetter) error {
	query := `
		INSERT INTO dead_letter_jobs (job_id, job_key, payload, attempt, error_message, enqueued_at, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var enqueuedAt sql.NullTime
	if !dl.Job.EnqueuedAt.IsZero() {
		enqueuedAt = sql.NullTime{Time: dl.Job.EnqueuedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		nullString(dl.Job.ID),
		dl.Job.Key,
		string(dl.Job.Payload),
		dl.Job.Attempt,
		dl.Error,
		enqueuedAt,
		dl.FailedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dead letter: %w", err)
	}

	s.logger.Info("Dead letter stored",
		slog.String("job_id", dl.Job.ID),
		slog.String("job_key", dl.Job.Key),
		slog.Int("attempt", dl.Job.Attempt),
	)

	return nil
}

// Purge deletes dead letters older than the cutoff
func (s *Storage) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_jobs WHERE failed_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge dead letters: %w", err)
	}
	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
