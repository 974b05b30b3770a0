package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore on it
func setupTestRedis(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, opts...)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedisGet_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set("storefront:cart_123", `[{"id":1,"quantity":2}]`))

	value, err := store.Get(context.Background(), "cart_123")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"quantity":2}]`, string(value))
}

func TestRedisGet_NotFound(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	value, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, value)
}

func TestRedisPut_NoExpiryByDefault(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, store.Put(context.Background(), "wishlist_7", []byte("[]")))

	stored, err := mr.Get("storefront:wishlist_7")
	require.NoError(t, err)
	assert.Equal(t, "[]", stored)
	assert.Equal(t, time.Duration(0), mr.TTL("storefront:wishlist_7"))
}

func TestRedisPut_WithTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, WithTTL(15*time.Minute, 5*time.Minute))
	defer cleanup()

	require.NoError(t, store.Put(context.Background(), "cart_789", []byte("[]")))

	ttl := mr.TTL("storefront:cart_789")
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl < 20*time.Minute, "TTL should be below base + jitter")
}

func TestRedisDelete(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, WithPrefix("test:"))
	defer cleanup()

	require.NoError(t, mr.Set("test:cart_999", "[]"))
	require.True(t, mr.Exists("test:cart_999"))

	require.NoError(t, store.Delete(context.Background(), "cart_999"))
	assert.False(t, mr.Exists("test:cart_999"))

	// deleting a missing key is not an error
	assert.NoError(t, store.Delete(context.Background(), "cart_999"))
}

func TestRedisGet_ServerDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	mr.Close()

	_, err := store.Get(context.Background(), "cart_1")
	assert.ErrorContains(t, err, "redis get failed")
	assert.NotErrorIs(t, err, ErrNotFound)
}
