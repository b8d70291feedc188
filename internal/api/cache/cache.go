// Package cache keeps recently served appointment pages in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/appointment-service/internal/model"
)

const keyPrefix = "appointments:"

// Nop never hits; used when Redis is disabled
type Nop struct{}

func (Nop) Get(context.Context, string, int) ([]model.AppointmentListing, int64, bool) {
	return nil, 0, false
}
func (Nop) Set(context.Context, string, int, int64, []model.AppointmentListing) {}
func (Nop) Invalidate(context.Context, string) {}

// Redis caches each requester's pages in one hash so a booking or
// cancellation drops all of them at once. A per-requester generation
// counter is bumped on every invalidation; Set only writes when the
// generation is still the one Get returned. Cache errors are logged and
// treated as misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Connect parses url and pings the server
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Get returns the cached page and the requester's current generation.
// The generation is valid on a miss too and must be handed back to Set.
func (r *Redis) Get(ctx context.Context, requesterID string, page int) ([]model.AppointmentListing, int64, bool) {
	var (
		pageCmd *redis.StringCmd
		genCmd  *redis.StringCmd
	)
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pageCmd = pipe.HGet(ctx, Key(requesterID), strconv.Itoa(page))
		genCmd = pipe.Get(ctx, GenerationKey(requesterID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("Appointment cache read failed", slog.Any("error", err))
		return nil, -1, false
	}

	generation, err := generationOf(genCmd)
	if err != nil {
		r.logger.Warn("Appointment cache generation is corrupt", slog.Any("error", err))
		return nil, -1, false
	}

	raw, err := pageCmd.Bytes()
	if err != nil {
		return nil, generation, false
	}

	var items []model.AppointmentListing
	if err := json.Unmarshal(raw, &items); err != nil {
		r.logger.Warn("Appointment cache entry is corrupt", slog.Any("error", err))
		return nil, generation, false
	}
	return items, generation, true
}

// Set stores a page read while generation was current. The write is
// dropped when an invalidation happened since.
func (r *Redis) Set(ctx context.Context, requesterID string, page int, generation int64, items []model.AppointmentListing) {
	if generation < 0 {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}

	key := Key(requesterID)
	genKey := GenerationKey(requesterID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generationOf(tx.Get(ctx, genKey))
		if err != nil {
			return err
		}
		if current != generation {
			return errStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, strconv.Itoa(page), raw)
			pipe.Expire(ctx, key, r.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		r.logger.Debug("Appointment cache write skipped, page is stale",
			slog.String("requester_id", requesterID),
			slog.Int("page", page),
		)
	default:
		r.logger.Warn("Appointment cache write failed", slog.Any("error", err))
	}
}

// Invalidate drops every cached page of requesterID and advances its generation
func (r *Redis) Invalidate(ctx context.Context, requesterID string) {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(requesterID))
		pipe.Del(ctx, Key(requesterID))
		return nil
	})
	if err != nil {
		r.logger.Warn("Appointment cache invalidation failed",
			slog.String("requester_id", requesterID),
			slog.Any("error", err),
		)
	}
}

// Key is the hash holding every cached page of requesterID
func Key(requesterID string) string {
	return keyPrefix + requesterID
}

// GenerationKey is the counter Invalidate increments for requesterID.
// It has no TTL so a generation is never reused.
func GenerationKey(requesterID string) string {
	return keyPrefix + requesterID + ":gen"
}

var errStale = errors.New("cached page is stale")

// generationOf reads a counter; a missing key is generation 0
func generationOf(cmd *redis.StringCmd) (int64, error) {
	n, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
