package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-assistant/internal/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newStores(t *testing.T, c *clock) map[string]Store {
	opts := Options{IdleTimeout: time.Hour, MaxEntries: 2, KeyPrefix: "test:", Now: c.now}

	mem, err := NewMemoryStore(opts)
	require.NoError(t, err)

	client, _ := setupRedis(t)
	return map[string]Store{
		"memory": mem,
		"redis":  NewRedisStore(client, opts),
	}
}

func TestStores_RoundTripAndIsolation(t *testing.T) {
	c := &clock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}

	for name, store := range newStores(t, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, found, err := store.Get(ctx, "chat-1")
			require.NoError(t, err)
			assert.False(t, found)

			s := models.NewSession("chat-1", c.now())
			s.State = models.StateAwaitingWaterSchedule
			s.Attributes.Location = "Lisbon"
			require.NoError(t, store.Save(ctx, s))

			s.Attributes.Location = "mutated after save"

			got, found, err := store.Get(ctx, "chat-1")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, models.StateAwaitingWaterSchedule, got.State)
			assert.Equal(t, "Lisbon", got.Attributes.Location)

			require.NoError(t, store.Delete(ctx, "chat-1"))
			_, found, _ = store.Get(ctx, "chat-1")
			assert.False(t, found)
		})
	}
}

func TestStores_IdleExpiry(t *testing.T) {
	c := &clock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}

	for name, store := range newStores(t, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, models.NewSession("idle", c.now())))

			c.t = c.t.Add(2 * time.Hour)
			_, found, err := store.Get(ctx, "idle")
			require.NoError(t, err)
			assert.False(t, found)

			c.t = c.t.Add(-2 * time.Hour)
		})
	}
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	store, err := NewMemoryStore(Options{MaxEntries: 2})
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, models.NewSession("a", now)))
	require.NoError(t, store.Save(ctx, models.NewSession("b", now)))
	require.NoError(t, store.Save(ctx, models.NewSession("c", now)))

	assert.Equal(t, 2, store.Len())
	_, found, _ := store.Get(ctx, "a")
	assert.False(t, found)
}

func TestRedisStore_UsesIdleTimeoutAsTTL(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewRedisStore(client, Options{IdleTimeout: 30 * time.Minute})

	require.NoError(t, store.Save(context.Background(), models.NewSession("ttl", time.Now())))
	assert.Equal(t, 30*time.Minute, mr.TTL("session:ttl"))
}
