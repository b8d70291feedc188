package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/appointment-service/internal/domain"
	"github.com/cuongbtq/appointment-service/internal/model"
	"github.com/cuongbtq/appointment-service/shared/postgresql"
)

// activeSlotIndex enforces one active appointment per provider and hour
const activeSlotIndex = "appointments_active_slot_idx"

// Storage is the Postgres implementation of the appointment, notification and user stores
type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	query := `
		SELECT id, name, email, provider, avatar_id, created_at
		FROM users
		WHERE id = $1
	`

	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (s *Storage) FindConflicting(ctx context.Context, providerID string, date time.Time) (*model.Appointment, error) {
	var appointment model.Appointment
	query := `
		SELECT id, requester_id, provider_id, date, canceled_at, created_at
		FROM appointments
		WHERE provider_id = $1
		  AND date = $2
		  AND canceled_at IS NULL
		LIMIT 1
	`

	if err := s.db.GetContext(ctx, &appointment, query, providerID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find conflicting appointment: %w", err)
	}

	return &appointment, nil
}

// CreateWithNotification writes the appointment and the provider notification atomically
func (s *Storage) CreateWithNotification(ctx context.Context, appointment *model.Appointment, notification *model.Notification) error {
	err := postgresql.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO appointments (id, requester_id, provider_id, date, canceled_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			appointment.ID,
			appointment.RequesterID,
			appointment.ProviderID,
			appointment.Date,
			appointment.CanceledAt,
			appointment.CreatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO notifications (id, recipient_id, content, read, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
			notification.ID,
			notification.RecipientID,
			notification.Content,
			notification.Read,
			notification.CreatedAt,
		)
		return err
	})

	if postgresql.IsUniqueViolation(err, activeSlotIndex) {
		return domain.ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

func (s *Storage) FindDetail(ctx context.Context, id string) (*model.AppointmentDetail, error) {
	query := `
		SELECT
			a.id, a.requester_id, a.provider_id, a.date, a.canceled_at, a.created_at,
			p.name, p.email,
			r.name, r.email
		FROM appointments a
		JOIN users p ON p.id = a.provider_id
		JOIN users r ON r.id = a.requester_id
		WHERE a.id = $1
	`

	var (
		detail     model.AppointmentDetail
		canceledAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&detail.ID,
		&detail.RequesterID,
		&detail.ProviderID,
		&detail.Date,
		&canceledAt,
		&detail.CreatedAt,
		&detail.Provider.Name,
		&detail.Provider.Email,
		&detail.Requester.Name,
		&detail.Requester.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("appointment %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if canceledAt.Valid {
		detail.CanceledAt = &canceledAt.Time
	}
	detail.Provider.ID = detail.ProviderID
	detail.Requester.ID = detail.RequesterID

	return &detail, nil
}

// Cancel stamps canceled_at unless another request already did
func (s *Storage) Cancel(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE appointments
		SET canceled_at = $2
		WHERE id = $1
		  AND canceled_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrAlreadyCanceled
	}

	return nil
}

func (s *Storage) ListActiveByRequester(ctx context.Context, requesterID string, limit, offset int) ([]model.AppointmentListing, error) {
	query := `
		SELECT a.id, a.date, p.id, p.name, f.id, f.path
		FROM appointments a
		JOIN users p ON p.id = a.provider_id
		LEFT JOIN files f ON f.id = p.avatar_id
		WHERE a.requester_id = $1
		  AND a.canceled_at IS NULL
		ORDER BY a.date ASC, a.id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, requesterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	listings := make([]model.AppointmentListing, 0, limit)
	for rows.Next() {
		var (
			item       model.AppointmentListing
			avatarID   sql.NullString
			avatarPath sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Date, &item.Provider.ID, &item.Provider.Name, &avatarID, &avatarPath); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		if avatarID.Valid {
			item.Provider.Avatar = &model.AvatarRef{ID: avatarID.String, Path: avatarPath.String}
		}
		listings = append(listings, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return listings, nil
}

func (s *Storage) ListNotifications(ctx context.Context, recipientID string, limit, offset int) ([]model.Notification, error) {
	query := `
		SELECT id, recipient_id, content, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	notifications := []model.Notification{}
	if err := s.db.SelectContext(ctx, &notifications, query, recipientID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}
