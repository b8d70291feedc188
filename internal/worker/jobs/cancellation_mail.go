// Package jobs holds the background job handlers shared by both services.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/appointment-service/internal/domain"
	"github.com/cuongbtq/appointment-service/internal/i18n"
	"github.com/cuongbtq/appointment-service/internal/mail"
	"github.com/cuongbtq/appointment-service/internal/model"
	"github.com/cuongbtq/appointment-service/internal/queue"
)

// Dependencies holds what the job handlers need
type Dependencies struct {
	Notifier  mail.Notifier
	Formatter *i18n.Formatter
	Logger    *slog.Logger
}

// Register adds every job handler to registry
func Register(registry *queue.Registry, deps Dependencies) error {
	cm := NewCancellationMail(deps)
	if err := registry.Register(domain.JobCancellationMail, cm.Handle); err != nil {
		return fmt.Errorf("failed to register %s: %w", domain.JobCancellationMail, err)
	}
	return nil
}

// CancellationMail tells a provider that an appointment was canceled
type CancellationMail struct {
	notifier  mail.Notifier
	formatter *i18n.Formatter
	logger    *slog.Logger
}

// NewCancellationMail creates the handler
func NewCancellationMail(deps Dependencies) *CancellationMail {
	return &CancellationMail{
		notifier:  deps.Notifier,
		formatter: deps.Formatter,
		logger:    deps.Logger,
	}
}

// Handle decodes the appointment and mails its provider
func (c *CancellationMail) Handle(ctx context.Context, job queue.Job) error {
	var appointment model.AppointmentDetail
	if err := job.Decode(&appointment); err != nil {
		return err
	}
	if appointment.Provider.Email == "" {
		return queue.Permanent(fmt.Errorf("appointment %s has no provider email", appointment.ID))
	}

	logger := c.logger.With(
		slog.String("job_id", job.ID),
		slog.String("appointment_id", appointment.ID),
	)
	logger.Info("Starting cancellation mail job")

	msg := mail.Message{
		To:       mail.Address(appointment.Provider.Name, appointment.Provider.Email),
		Subject:  c.formatter.CancellationSubject(),
		Template: "cancellation",
		Context: map[string]any{
			"provider": appointment.Provider.Name,
			"name":     appointment.Requester.Name,
			"date":     c.formatter.Date(appointment.Date),
		},
	}

	if err := c.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send cancellation mail: %w", err)
	}

	logger.Info("Cancellation mail job finished")
	return nil
}
