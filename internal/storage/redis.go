package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/zasa-35/oura-visualizer/internal/config"
	"github.com/zasa-35/oura-visualizer/internal/models"
)

// DefaultStream is the stream snapshots are appended to.
const DefaultStream = "ouraviz:snapshots"

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStore appends snapshots to a Redis stream.
type RedisStore struct {
	client *redis.Client
	adder  streamAdder
	stream string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	s := newRedisStore(client, cfg.Stream)
	s.client = client
	return s, nil
}

func newRedisStore(adder streamAdder, stream string) *RedisStore {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStore{adder: adder, stream: stream}
}

// Save XADDs the snapshot. The entry id is server-assigned, so created_at
// is read back from it.
func (s *RedisStore) Save(ctx context.Context, snap models.Snapshot) (*models.SavedSnapshot, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}
	saved := &models.SavedSnapshot{ID: newID(), Start: snap.Start, End: snap.End}
	entry, err := s.adder.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":      saved.ID,
			"start":   snap.Start,
			"end":     snap.End,
			"payload": string(snap.Payload),
		},
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	if saved.CreatedAt, err = streamIDTime(entry); err != nil {
		return nil, err
	}
	return saved, nil
}

// streamIDTime reads the millisecond timestamp from a "<ms>-<seq>" entry id.
func streamIDTime(id string) (time.Time, error) {
	ms, _, ok := strings.Cut(id, "-")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed stream id %q", id)
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed stream id %q: %w", id, err)
	}
	return time.UnixMilli(n).UTC(), nil
}

// Close closes the connection pool.
func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
