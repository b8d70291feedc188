package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/appointment-service/internal/domain"
	"github.com/cuongbtq/appointment-service/internal/model"
)

// Cancel cancels appointmentID on behalf of actingUserID and enqueues the
// provider's cancellation mail. Only the requester may cancel, and only
// while the appointment is more than CancellationNotice away.
func (s *Service) Cancel(ctx context.Context, appointmentID, actingUserID string) (*model.AppointmentDetail, error) {
	detail, err := s.appointments.FindDetail(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if detail.RequesterID != actingUserID {
		return nil, domain.ErrUnauthorized
	}

	if !detail.Active() {
		return nil, domain.ErrAlreadyCanceled
	}

	now := s.clock.Now()
	if !detail.Date.Add(-domain.CancellationNotice).After(now) {
		return nil, domain.ErrTooLate
	}

	if err := s.appointments.Cancel(ctx, detail.ID, now); err != nil {
		return nil, err
	}
	detail.CanceledAt = &now
	s.cache.Invalidate(ctx, detail.RequesterID)

	if err := s.queue.Add(ctx, domain.JobCancellationMail, detail); err != nil {
		s.logger.Error("Failed to enqueue cancellation mail",
			slog.String("appointment_id", detail.ID),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to enqueue cancellation mail: %w", err)
	}

	s.logger.Info("Appointment canceled",
		slog.String("appointment_id", detail.ID),
		slog.String("provider_id", detail.ProviderID),
	)

	return detail, nil
}

// Notifications lists the notifications of a provider, newest first
func (s *Service) Notifications(ctx context.Context, userID string, page int) ([]model.Notification, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Provider {
		return nil, domain.ErrNotAProvider
	}

	_, offset := s.offset(page)
	return s.notifications.ListNotifications(ctx, userID, s.pageSize, offset)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
