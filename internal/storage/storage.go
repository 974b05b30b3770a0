// Package storage is the persistence the stores are injected with: a flat
// key/value space of serialized collections.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store defines the persistence operations the cart and wishlist stores need.
// Get returns ErrNotFound for a key that was never written or was deleted.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
