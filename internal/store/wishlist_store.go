package store

import (
	"context"
	"log/slog"

	"github.com/fjod/storefront/internal/bus"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/storage"
)

type WishlistStore struct {
	backend storage.Store
	bus     bus.Publisher
	log     *slog.Logger
	locks   userLocks
}

func NewWishlistStore(backend storage.Store, publisher bus.Publisher, logger *slog.Logger) *WishlistStore {
	return &WishlistStore{
		backend: backend,
		bus:     publisher,
		log:     logger.With("store", "wishlist"),
	}
}

// Load returns the user's persisted wishlist, or an empty one.
func (s *WishlistStore) Load(ctx context.Context, userID string) domain.Wishlist {
	wishlist, err := s.load(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "load failed, using empty wishlist", "user_id", userID, "error", err)
		return domain.NewWishlist(userID)
	}
	return wishlist
}

func (s *WishlistStore) load(ctx context.Context, userID string) (domain.Wishlist, error) {
	wishlist := domain.NewWishlist(userID)
	if userID == "" {
		return wishlist, nil
	}
	entries, err := loadList[domain.WishlistEntry](ctx, s.backend, s.log, WishlistKey(userID))
	if err != nil {
		return wishlist, err
	}
	for _, e := range entries {
		wishlist = wishlist.Add(e.Product)
	}
	return wishlist, nil
}

// Save persists the wishlist for userID and then publishes wishlistUpdated.
func (s *WishlistStore) Save(ctx context.Context, userID string, wishlist domain.Wishlist) error {
	if err := s.persist(ctx, userID, wishlist); err != nil {
		return err
	}
	publish(ctx, s.bus, bus.TopicWishlistUpdated, userID)
	return nil
}

func (s *WishlistStore) persist(ctx context.Context, userID string, wishlist domain.Wishlist) error {
	if userID == "" {
		return ErrAnonymous
	}
	return saveList(ctx, s.backend, s.log, WishlistKey(userID), wishlist.Entries)
}

func (s *WishlistStore) mutate(ctx context.Context, userID string, apply func(domain.Wishlist) domain.Wishlist) (domain.Wishlist, error) {
	if userID == "" {
		return domain.NewWishlist(userID), ErrAnonymous
	}
	unlock := s.locks.lock(userID)
	wishlist, err := s.load(ctx, userID)
	if err != nil {
		unlock()
		return wishlist, err
	}
	next := apply(wishlist)
	if err := s.persist(ctx, userID, next); err != nil {
		unlock()
		return wishlist, err
	}
	unlock()

	publish(ctx, s.bus, bus.TopicWishlistUpdated, userID)
	return next, nil
}

// Add saves p; saving an already saved product changes nothing.
func (s *WishlistStore) Add(ctx context.Context, userID string, p domain.Product) (domain.Wishlist, error) {
	return s.mutate(ctx, userID, func(w domain.Wishlist) domain.Wishlist {
		return w.Add(p)
	})
}

func (s *WishlistStore) Remove(ctx context.Context, userID string, productID int64) (domain.Wishlist, error) {
	return s.mutate(ctx, userID, func(w domain.Wishlist) domain.Wishlist {
		return w.Remove(productID)
	})
}

func (s *WishlistStore) Clear(ctx context.Context, userID string) (domain.Wishlist, error) {
	return s.mutate(ctx, userID, func(w domain.Wishlist) domain.Wishlist {
		return w.Clear()
	})
}

// Toggle saves p if absent and drops it otherwise. saved reports the result.
func (s *WishlistStore) Toggle(ctx context.Context, userID string, p domain.Product) (wishlist domain.Wishlist, saved bool, err error) {
	wishlist, err = s.mutate(ctx, userID, func(w domain.Wishlist) domain.Wishlist {
		var next domain.Wishlist
		next, saved = w.Toggle(p)
		return next
	})
	return wishlist, saved, err
}

// MoveToCart adds the saved product to the cart and removes it from the
// wishlist. A stock rejection changes neither collection. The cart is written
// first; if the wishlist write then fails the product stays in both.
func (s *WishlistStore) MoveToCart(ctx context.Context, userID string, productID int64, carts *CartStore) (domain.Wishlist, domain.Cart, error) {
	if userID == "" {
		return domain.NewWishlist(userID), domain.NewCart(userID), ErrAnonymous
	}
	// cart lock first, matching CartStore.MoveToWishlist
	unlockCart := carts.locks.lock(userID)
	unlockWishlist := s.locks.lock(userID)

	cart, wishlist, err := loadBoth(ctx, userID, carts, s)
	if err != nil {
		unlockWishlist()
		unlockCart()
		return wishlist, cart, err
	}
	nextWishlist, nextCart, err := domain.MoveToCart(wishlist, cart, productID)
	if err != nil {
		unlockWishlist()
		unlockCart()
		s.log.InfoContext(ctx, "move to cart rejected", "user_id", userID, "product_id", productID, "error", err)
		return wishlist, cart, err
	}

	if err := carts.persist(ctx, userID, nextCart); err != nil {
		unlockWishlist()
		unlockCart()
		return wishlist, cart, err
	}
	errWishlist := s.persist(ctx, userID, nextWishlist)
	unlockWishlist()
	unlockCart()

	publish(ctx, carts.bus, bus.TopicCartUpdated, userID)
	if errWishlist != nil {
		return wishlist, nextCart, errWishlist
	}
	publish(ctx, s.bus, bus.TopicWishlistUpdated, userID)
	return nextWishlist, nextCart, nil
}

// AddAllToCart puts one unit of every in-stock saved product in the cart. The
// wishlist is left as is. The cart is saved only when something was added.
func (s *WishlistStore) AddAllToCart(ctx context.Context, userID string, carts *CartStore) (domain.Cart, int, []domain.Skipped, error) {
	if userID == "" {
		return domain.NewCart(userID), 0, nil, ErrAnonymous
	}
	unlockCart := carts.locks.lock(userID)
	cart, wishlist, err := loadBoth(ctx, userID, carts, s)
	if err != nil {
		unlockCart()
		return cart, 0, nil, err
	}

	next, added, skipped := domain.AddAllToCart(wishlist, cart)
	if added == 0 {
		unlockCart()
		return cart, 0, skipped, nil
	}
	if err := carts.persist(ctx, userID, next); err != nil {
		unlockCart()
		return cart, 0, skipped, err
	}
	unlockCart()

	publish(ctx, carts.bus, bus.TopicCartUpdated, userID)
	return next, added, skipped, nil
}
