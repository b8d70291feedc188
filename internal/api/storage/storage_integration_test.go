//go:build integration

package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/appointment-service/internal/domain"
	"github.com/cuongbtq/appointment-service/internal/model"
	"github.com/cuongbtq/appointment-service/migrations"
	"github.com/cuongbtq/appointment-service/shared/postgresql"
)

// Run with: go test -tags integration ./internal/api/storage/
// against the database named by TEST_DATABASE_HOST and friends.

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newPostgresStorage(t *testing.T) *Storage {
	t.Helper()

	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}
	port, err := strconv.Atoi(envOr("TEST_DATABASE_PORT", "5432"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := postgresql.NewClient(&postgresql.Config{
		Host:         host,
		Port:         port,
		User:         envOr("TEST_DATABASE_USER", "postgres"),
		Password:     os.Getenv("TEST_DATABASE_PASSWORD"),
		Database:     envOr("TEST_DATABASE_NAME", "gobarber_test"),
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Migrate(context.Background(), migrations.FS))
	return NewStorage(client)
}

type seeded struct {
	provider       string
	plainProvider  string
	requester      string
	otherRequester string
	avatarPath     string
}

// seed inserts fresh users so tests never collide on a shared database
func seed(t *testing.T, s *Storage) seeded {
	t.Helper()
	ctx := context.Background()

	out := seeded{
		provider:       uuid.NewString(),
		plainProvider:  uuid.NewString(),
		requester:      uuid.NewString(),
		otherRequester: uuid.NewString(),
		avatarPath:     uuid.NewString() + ".png",
	}
	avatarID := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `INSERT INTO files (id, name, path) VALUES ($1, $2, $3)`,
		avatarID, "avatar.png", out.avatarPath)
	require.NoError(t, err)

	users := []struct {
		id       string
		name     string
		provider bool
		avatar   *string
	}{
		{id: out.provider, name: "Carlos", provider: true, avatar: &avatarID},
		{id: out.plainProvider, name: "Bruna", provider: true},
		{id: out.requester, name: "Ana"},
		{id: out.otherRequester, name: "Bia"},
	}
	for _, u := range users {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (id, name, email, provider, avatar_id) VALUES ($1, $2, $3, $4, $5)`,
			u.id, u.name, u.id+"@example.com", u.provider, u.avatar)
		require.NoError(t, err)
	}
	return out
}

func book(t *testing.T, s *Storage, requester, provider string, date time.Time) (*model.Appointment, error) {
	t.Helper()
	now := time.Now().UTC()
	appointment := &model.Appointment{
		ID:          uuid.NewString(),
		RequesterID: requester,
		ProviderID:  provider,
		Date:        date,
		CreatedAt:   now,
	}
	notification := &model.Notification{
		ID:          uuid.NewString(),
		RecipientID: provider,
		Content:     "booked",
		CreatedAt:   now,
	}
	return appointment, s.CreateWithNotification(context.Background(), appointment, notification)
}

func TestStorage_GetUser(t *testing.T) {
	s := newPostgresStorage(t)
	users := seed(t, s)
	ctx := context.Background()

	user, err := s.GetUser(ctx, users.provider)
	require.NoError(t, err)
	assert.Equal(t, "Carlos", user.Name)
	assert.True(t, user.Provider)
	require.NotNil(t, user.AvatarID)

	_, err = s.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorage_CreateWithNotification_ActiveSlotIsUnique(t *testing.T) {
	s := newPostgresStorage(t)
	users := seed(t, s)
	ctx := context.Background()
	slot := time.Date(2031, 5, 6, 10, 0, 0, 0, time.UTC)

	first, err := book(t, s, users.requester, users.provider, slot)
	require.NoError(t, err)

	_, err = book(t, s, users.otherRequester, users.provider, slot)
	assert.ErrorIs(t, err, domain.ErrSlotTaken)

	notifications, err := s.ListNotifications(ctx, users.provider, 10, 0)
	require.NoError(t, err)
	assert.Len(t, notifications, 1, "losing booking must not leave a notification")

	conflict, err := s.FindConflicting(ctx, users.provider, slot)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, first.ID, conflict.ID)

	_, err = book(t, s, users.otherRequester, users.plainProvider, slot)
	assert.NoError(t, err, "another provider at the same hour is free")

	require.NoError(t, s.Cancel(ctx, first.ID, time.Now()))

	conflict, err = s.FindConflicting(ctx, users.provider, slot)
	require.NoError(t, err)
	assert.Nil(t, conflict)

	_, err = book(t, s, users.otherRequester, users.provider, slot)
	assert.NoError(t, err, "canceled slot can be booked again")
}

func TestStorage_Cancel(t *testing.T) {
	s := newPostgresStorage(t)
	users := seed(t, s)
	ctx := context.Background()

	appointment, err := book(t, s, users.requester, users.provider, time.Date(2031, 5, 7, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	at := time.Date(2031, 5, 6, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Cancel(ctx, appointment.ID, at))

	detail, err := s.FindDetail(ctx, appointment.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.CanceledAt)
	assert.True(t, at.Equal(*detail.CanceledAt))
	assert.Equal(t, "Carlos", detail.Provider.Name)
	assert.Equal(t, "Ana", detail.Requester.Name)

	err = s.Cancel(ctx, appointment.ID, at.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrAlreadyCanceled)

	detail, err = s.FindDetail(ctx, appointment.ID)
	require.NoError(t, err)
	assert.True(t, at.Equal(*detail.CanceledAt), "second cancel must not move canceled_at")

	_, err = s.FindDetail(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorage_ListActiveByRequester(t *testing.T) {
	s := newPostgresStorage(t)
	users := seed(t, s)
	ctx := context.Background()

	day := time.Date(2031, 5, 8, 0, 0, 0, 0, time.UTC)
	late, err := book(t, s, users.requester, users.provider, day.Add(15*time.Hour))
	require.NoError(t, err)
	early, err := book(t, s, users.requester, users.plainProvider, day.Add(9*time.Hour))
	require.NoError(t, err)
	canceled, err := book(t, s, users.requester, users.provider, day.Add(11*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Cancel(ctx, canceled.ID, time.Now()))
	_, err = book(t, s, users.otherRequester, users.provider, day.Add(10*time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name    string
		limit   int
		offset  int
		wantIDs []string
	}{
		{name: "first page", limit: 1, offset: 0, wantIDs: []string{early.ID}},
		{name: "second page", limit: 1, offset: 1, wantIDs: []string{late.ID}},
		{name: "whole list", limit: 10, offset: 0, wantIDs: []string{early.ID, late.ID}},
		{name: "past the end", limit: 10, offset: 5, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := s.ListActiveByRequester(ctx, users.requester, tt.limit, tt.offset)
			require.NoError(t, err)

			ids := make([]string, 0, len(items))
			for _, item := range items {
				ids = append(ids, item.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	items, err := s.ListActiveByRequester(ctx, users.requester, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Bruna", items[0].Provider.Name)
	assert.Nil(t, items[0].Provider.Avatar, "provider without avatar is kept by the outer join")

	assert.Equal(t, users.provider, items[1].Provider.ID)
	require.NotNil(t, items[1].Provider.Avatar)
	assert.Equal(t, users.avatarPath, items[1].Provider.Avatar.Path)
	assert.True(t, late.Date.Equal(items[1].Date))
}

func TestStorage_ListNotifications_NewestFirst(t *testing.T) {
	s := newPostgresStorage(t)
	users := seed(t, s)
	ctx := context.Background()

	base := time.Date(2031, 5, 9, 0, 0, 0, 0, time.UTC)
	for i, hour := range []int{9, 10, 11} {
		appointment := &model.Appointment{
			ID:          uuid.NewString(),
			RequesterID: users.requester,
			ProviderID:  users.provider,
			Date:        base.Add(time.Duration(hour) * time.Hour),
			CreatedAt:   base,
		}
		notification := &model.Notification{
			ID:          uuid.NewString(),
			RecipientID: users.provider,
			Content:     "n" + strconv.Itoa(i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.CreateWithNotification(ctx, appointment, notification))
	}

	page, err := s.ListNotifications(ctx, users.provider, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "n2", page[0].Content)
	assert.Equal(t, "n1", page[1].Content)

	rest, err := s.ListNotifications(ctx, users.provider, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "n0", rest[0].Content)
}
