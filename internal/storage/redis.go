package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "storefront:"

// RedisStore keeps values as Redis strings. Without a TTL values never
// expire, which is what primary storage needs; the cache layer sets one.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	baseTTL time.Duration
	jitter  time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL expires every written key after base plus a random share of jitter,
// so keys written together do not expire together.
func WithTTL(base, jitter time.Duration) RedisOption {
	return func(r *RedisStore) {
		r.baseTTL = base
		r.jitter = jitter
	}
}

// WithPrefix namespaces keys.
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisStore) {
		r.prefix = prefix
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	r := &RedisStore{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.redisKey(key), value, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisStore) ttl() time.Duration {
	if r.baseTTL <= 0 {
		return 0
	}
	if r.jitter <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + time.Duration(rand.Int63n(int64(r.jitter)))
}

func (r *RedisStore) redisKey(key string) string {
	return r.prefix + key
}
