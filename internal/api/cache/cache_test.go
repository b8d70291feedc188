package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/appointment-service/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, time.Minute, discardLogger()), server
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "appointments:u1", Key("u1"))
	assert.Equal(t, "appointments:u1:gen", GenerationKey("u1"))
}

func TestNop(t *testing.T) {
	var c Nop
	c.Set(context.Background(), "u1", 1, 0, []model.AppointmentListing{{ID: "a1"}})

	items, _, ok := c.Get(context.Background(), "u1", 1)
	assert.False(t, ok)
	assert.Nil(t, items)
	c.Invalidate(context.Background(), "u1")
}

func TestRedis_SetThenGet(t *testing.T) {
	ctx := context.Background()
	c, server := newTestRedis(t)

	items, generation, ok := c.Get(ctx, "u1", 1)
	require.False(t, ok)
	assert.Nil(t, items)
	assert.Zero(t, generation)

	page := []model.AppointmentListing{{ID: "a1"}, {ID: "a2"}}
	c.Set(ctx, "u1", 1, generation, page)

	got, _, ok := c.Get(ctx, "u1", 1)
	require.True(t, ok)
	assert.Equal(t, page, got)
	assert.Equal(t, time.Minute, server.TTL(Key("u1")))

	_, _, ok = c.Get(ctx, "u1", 2)
	assert.False(t, ok)
}

func TestRedis_InvalidateDropsPagesAndAdvancesGeneration(t *testing.T) {
	ctx := context.Background()
	c, server := newTestRedis(t)

	c.Set(ctx, "u1", 1, 0, []model.AppointmentListing{{ID: "a1"}})
	c.Set(ctx, "u2", 1, 0, []model.AppointmentListing{{ID: "b1"}})

	c.Invalidate(ctx, "u1")

	_, generation, ok := c.Get(ctx, "u1", 1)
	assert.False(t, ok)
	assert.Equal(t, int64(1), generation)
	assert.False(t, server.Exists(Key("u1")))

	_, other, ok := c.Get(ctx, "u2", 1)
	assert.True(t, ok)
	assert.Zero(t, other)
}

func TestRedis_SetDropsStalePage(t *testing.T) {
	tests := []struct {
		name        string
		invalidates int
		wantCached  bool
	}{
		{name: "generation unchanged", invalidates: 0, wantCached: true},
		{name: "invalidated during read", invalidates: 1, wantCached: false},
		{name: "invalidated twice", invalidates: 2, wantCached: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c, _ := newTestRedis(t)

			_, generation, ok := c.Get(ctx, "u1", 1)
			require.False(t, ok)

			for i := 0; i < tt.invalidates; i++ {
				c.Invalidate(ctx, "u1")
			}
			c.Set(ctx, "u1", 1, generation, []model.AppointmentListing{{ID: "canceled"}})

			_, _, ok = c.Get(ctx, "u1", 1)
			assert.Equal(t, tt.wantCached, ok)
		})
	}
}

func TestRedis_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	c, server := newTestRedis(t)

	server.HSet(Key("u1"), "1", "not json")

	items, generation, ok := c.Get(ctx, "u1", 1)
	assert.False(t, ok)
	assert.Nil(t, items)
	assert.Zero(t, generation)
}

func TestRedis_UnreachableServerIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedis(client, time.Minute, discardLogger())
	ctx := context.Background()

	c.Set(ctx, "u1", 1, 0, []model.AppointmentListing{{ID: "a1"}})
	items, generation, ok := c.Get(ctx, "u1", 1)

	assert.False(t, ok)
	assert.Nil(t, items)
	assert.Negative(t, generation)
	c.Invalidate(ctx, "u1")
}
