// Package store owns each user's persisted cart and wishlist. A mutation is
// load, apply the domain operation, persist, then publish an invalidation on
// the bus; rejected operations persist and publish nothing.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/fjod/storefront/internal/bus"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/storage"
)

// ErrAnonymous is returned when saving without a user id: logged-out users
// have no persisted cart or wishlist.
var ErrAnonymous = errors.New("anonymous user has no persisted state")

// CartKey and WishlistKey are the persistence keys, scoped by user id.
func CartKey(userID string) string     { return "cart_" + userID }
func WishlistKey(userID string) string { return "wishlist_" + userID }

const lockStripes = 64

// userLocks serializes read-modify-write cycles per user id.
type userLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (u *userLocks) lock(userID string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	m := &u.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// loadList reads a JSON list stored under key. A missing key and a corrupt
// value both yield an empty list; only a backend read failure is returned.
// Callers that write back must not treat that failure as empty.
func loadList[T any](ctx context.Context, backend storage.Store, log *slog.Logger, key string) ([]T, error) {
	data, err := backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		log.WarnContext(ctx, "stored collection is corrupt, using empty collection", "key", key, "error", err)
		return nil, nil
	}
	return items, nil
}

// loadBoth reads the user's cart and wishlist for a cross-collection write.
func loadBoth(ctx context.Context, userID string, carts *CartStore, wishlists *WishlistStore) (domain.Cart, domain.Wishlist, error) {
	cart, err := carts.load(ctx, userID)
	if err != nil {
		return cart, domain.NewWishlist(userID), err
	}
	wishlist, err := wishlists.load(ctx, userID)
	return cart, wishlist, err
}

func saveList[T any](ctx context.Context, backend storage.Store, log *slog.Logger, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := backend.Put(ctx, key, data); err != nil {
		log.ErrorContext(ctx, "save failed", "key", key, "error", err)
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func publish(ctx context.Context, p bus.Publisher, topic bus.Topic, userID string) {
	p.Publish(ctx, bus.Event{Topic: topic, UserID: userID})
}
