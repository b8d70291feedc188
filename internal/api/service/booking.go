package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/appointment-service/internal/clock"
	"github.com/cuongbtq/appointment-service/internal/domain"
	"github.com/cuongbtq/appointment-service/internal/model"
)

// Book reserves the hour slot containing date with providerID for
// requesterID and notifies the provider. Checks run in order and the first
// failure is returned before anything is written. Slots are whole hours of
// the server time zone whatever offset date carries.
func (s *Service) Book(ctx context.Context, requesterID, providerID string, date time.Time) (*model.Appointment, error) {
	if requesterID == providerID {
		return nil, domain.ErrSelfBooking
	}

	provider, err := s.users.GetUser(ctx, providerID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotAProvider
		}
		return nil, err
	}
	if !provider.Provider {
		return nil, domain.ErrNotAProvider
	}

	hourStart := clock.StartOfHour(date.In(s.location))
	now := s.clock.Now()
	if !hourStart.After(now) {
		return nil, domain.ErrPastDate
	}

	conflict, err := s.appointments.FindConflicting(ctx, providerID, hourStart)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, domain.ErrSlotTaken
	}

	requester, err := s.users.GetUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		ProviderID:  providerID,
		Date:        hourStart,
		CreatedAt:   now,
	}
	notification := &model.Notification{
		ID:          uuid.NewString(),
		RecipientID: providerID,
		Content:     s.formatter.BookingNotice(requester.Name, hourStart),
		CreatedAt:   now,
	}

	if err := s.appointments.CreateWithNotification(ctx, appointment, notification); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, requesterID)

	s.logger.Info("Appointment booked",
		slog.String("appointment_id", appointment.ID),
		slog.String("provider_id", providerID),
		slog.Time("date", hourStart),
	)

	return appointment, nil
}

// List returns one page of requesterID's active appointments, earliest first
func (s *Service) List(ctx context.Context, requesterID string, page int) ([]model.AppointmentListing, error) {
	page, offset := s.offset(page)

	cached, generation, ok := s.cache.Get(ctx, requesterID, page)
	if ok {
		return cached, nil
	}

	items, err := s.appointments.ListActiveByRequester(ctx, requesterID, s.pageSize, offset)
	if err != nil {
		return nil, err
	}

	for i := range items {
		avatar := items[i].Provider.Avatar
		if avatar == nil || s.files == nil {
			continue
		}
		url, err := s.files.URL(ctx, avatar.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve avatar url: %w", err)
		}
		avatar.URL = url
	}

	s.cache.Set(ctx, requesterID, page, generation, items)
	return items, nil
}
