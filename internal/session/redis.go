package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"chat-assistant/internal/models"
)

// RedisStore keeps sessions as JSON with the idle timeout as TTL, so they
// survive a restart. Messages of one session are serialised per process
// only; run a single assistant instance per store.
type RedisStore struct {
	client *redis.Client
	opts   Options
}

func NewRedisStore(client *redis.Client, opts Options) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "session:"
	}
	return &RedisStore{client: client, opts: opts}
}

func (r *RedisStore) key(k string) string {
	return r.opts.KeyPrefix + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (*models.Session, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		// unreadable entries are treated as absent and overwritten on next save
		return nil, false, nil
	}
	if s.Expired(r.opts.now(), r.opts.IdleTimeout) {
		return nil, false, nil
	}
	return &s, true, nil
}

func (r *RedisStore) Save(ctx context.Context, s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.Key), data, r.opts.IdleTimeout).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
