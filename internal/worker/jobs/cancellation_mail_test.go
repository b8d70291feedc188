package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/appointment-service/internal/domain"
	"github.com/cuongbtq/appointment-service/internal/i18n"
	"github.com/cuongbtq/appointment-service/internal/mail"
	"github.com/cuongbtq/appointment-service/internal/model"
	"github.com/cuongbtq/appointment-service/internal/queue"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func newDeps(t *testing.T, n mail.Notifier) Dependencies {
	t.Helper()
	f, err := i18n.New("pt-BR")
	require.NoError(t, err)
	return Dependencies{
		Notifier:  n,
		Formatter: f.In(time.UTC),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func sampleDetail() model.AppointmentDetail {
	return model.AppointmentDetail{
		Appointment: model.Appointment{
			ID:          "a1",
			RequesterID: "u1",
			ProviderID:  "p1",
			Date:        time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		Provider:  model.Party{ID: "p1", Name: "Carlos", Email: "carlos@example.com"},
		Requester: model.Party{ID: "u1", Name: "Ana", Email: "ana@example.com"},
	}
}

func TestCancellationMail_Handle(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("Send", mock.Anything, mail.Message{
		To:       "Carlos <carlos@example.com>",
		Subject:  "Agendamento cancelado",
		Template: "cancellation",
		Context: map[string]any{
			"provider": "Carlos",
			"name":     "Ana",
			"date":     "dia 02 de março, às 10:00h",
		},
	}).Return(nil).Once()

	job, err := queue.NewJob(domain.JobCancellationMail, sampleDetail(), time.Now())
	require.NoError(t, err)

	err = NewCancellationMail(newDeps(t, notifier)).Handle(context.Background(), job)

	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestCancellationMail_DeliveryErrorIsRetryable(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("rate limited")).Once()

	job, err := queue.NewJob(domain.JobCancellationMail, sampleDetail(), time.Now())
	require.NoError(t, err)

	err = NewCancellationMail(newDeps(t, notifier)).Handle(context.Background(), job)

	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err))
}

func TestCancellationMail_BadPayloadIsPermanent(t *testing.T) {
	notifier := new(mockNotifier)
	handler := NewCancellationMail(newDeps(t, notifier))

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json object", payload: `[1,2]`},
		{name: "missing provider email", payload: `{"id":"a1","provider":{"name":"Carlos"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := queue.Job{ID: "j1", Key: domain.JobCancellationMail, Payload: []byte(tt.payload), Attempt: 1}
			err := handler.Handle(context.Background(), job)
			require.Error(t, err)
			assert.True(t, queue.IsPermanent(err))
		})
	}
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRegister(t *testing.T) {
	registry := queue.NewRegistry()
	deps := newDeps(t, new(mockNotifier))

	require.NoError(t, Register(registry, deps))
	_, ok := registry.Lookup(domain.JobCancellationMail)
	assert.True(t, ok)

	assert.ErrorIs(t, Register(registry, deps), queue.ErrDuplicateHandler)
}

func TestCancellationMail_ThroughInlineQueue(t *testing.T) {
	notifier := mail.NewLogNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	dispatcher := queue.NewDispatcher(queue.DispatcherConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, Register(dispatcher.Registry(), newDeps(t, notifier)))

	q := queue.NewInline(dispatcher)
	require.NoError(t, q.Add(context.Background(), domain.JobCancellationMail, sampleDetail()))

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Carlos <carlos@example.com>", sent[0].To)
	assert.Equal(t, "dia 02 de março, às 10:00h", sent[0].Context["date"])
}
