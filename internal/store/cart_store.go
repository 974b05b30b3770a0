package store

import (
	"context"
	"log/slog"

	"github.com/fjod/storefront/internal/bus"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/storage"
)

type CartStore struct {
	backend storage.Store
	bus     bus.Publisher
	log     *slog.Logger
	locks   userLocks
}

func NewCartStore(backend storage.Store, publisher bus.Publisher, logger *slog.Logger) *CartStore {
	return &CartStore{
		backend: backend,
		bus:     publisher,
		log:     logger.With("store", "cart"),
	}
}

// Load returns the user's persisted cart, or an empty one when nothing is
// stored or the stored copy cannot be read. It never fails.
func (s *CartStore) Load(ctx context.Context, userID string) domain.Cart {
	cart, err := s.load(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "load failed, using empty cart", "user_id", userID, "error", err)
		return domain.NewCart(userID)
	}
	return cart
}

// load is Load for writers: a backend read failure is returned so the caller
// never persists over data it could not see.
func (s *CartStore) load(ctx context.Context, userID string) (domain.Cart, error) {
	cart := domain.NewCart(userID)
	if userID == "" {
		return cart, nil
	}
	lines, err := loadList[domain.CartLine](ctx, s.backend, s.log, CartKey(userID))
	if err != nil {
		return cart, err
	}
	for _, l := range lines {
		// lines never persist at quantity 0; skip any that did
		if l.Quantity < 1 {
			continue
		}
		cart.Lines = append(cart.Lines, l)
	}
	return cart, nil
}

// Save persists the cart for userID and then publishes cartUpdated. A failed
// write is returned and nothing is published.
func (s *CartStore) Save(ctx context.Context, userID string, cart domain.Cart) error {
	if err := s.persist(ctx, userID, cart); err != nil {
		return err
	}
	publish(ctx, s.bus, bus.TopicCartUpdated, userID)
	return nil
}

func (s *CartStore) persist(ctx context.Context, userID string, cart domain.Cart) error {
	if userID == "" {
		return ErrAnonymous
	}
	return saveList(ctx, s.backend, s.log, CartKey(userID), cart.Lines)
}

// mutate runs one load/apply/persist cycle under the user's lock and publishes
// after the lock is released.
func (s *CartStore) mutate(ctx context.Context, userID string, apply func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	if userID == "" {
		return domain.NewCart(userID), ErrAnonymous
	}
	unlock := s.locks.lock(userID)
	cart, err := s.load(ctx, userID)
	if err != nil {
		unlock()
		return cart, err
	}
	next, err := apply(cart)
	if err != nil {
		unlock()
		return cart, err
	}
	if err := s.persist(ctx, userID, next); err != nil {
		unlock()
		return cart, err
	}
	unlock()

	publish(ctx, s.bus, bus.TopicCartUpdated, userID)
	return next, nil
}

// Add puts one unit of p in the user's cart.
func (s *CartStore) Add(ctx context.Context, userID string, p domain.Product) (domain.Cart, error) {
	cart, err := s.mutate(ctx, userID, func(c domain.Cart) (domain.Cart, error) {
		return c.AddOrIncrement(p)
	})
	if err != nil {
		s.log.InfoContext(ctx, "add to cart rejected", "user_id", userID, "product_id", p.ID, "error", err)
	}
	return cart, err
}

// SetQuantity sets a line's quantity; quantity <= 0 removes the line.
func (s *CartStore) SetQuantity(ctx context.Context, userID string, productID int64, quantity int) (domain.Cart, error) {
	return s.mutate(ctx, userID, func(c domain.Cart) (domain.Cart, error) {
		return c.SetQuantity(productID, quantity)
	})
}

func (s *CartStore) Remove(ctx context.Context, userID string, productID int64) (domain.Cart, error) {
	return s.mutate(ctx, userID, func(c domain.Cart) (domain.Cart, error) {
		return c.Remove(productID), nil
	})
}

func (s *CartStore) Clear(ctx context.Context, userID string) (domain.Cart, error) {
	return s.mutate(ctx, userID, func(c domain.Cart) (domain.Cart, error) {
		return c.Clear(), nil
	})
}

// MoveToWishlist saves the line's product to the wishlist and then removes the
// line from the cart. The wishlist is written first so a failure between the
// two writes leaves the product in both collections rather than in neither.
func (s *CartStore) MoveToWishlist(ctx context.Context, userID string, productID int64, wishlists *WishlistStore) (domain.Cart, domain.Wishlist, error) {
	if userID == "" {
		return domain.NewCart(userID), domain.NewWishlist(userID), ErrAnonymous
	}
	unlockCart := s.locks.lock(userID)
	unlockWishlist := wishlists.locks.lock(userID)

	cart, wishlist, err := loadBoth(ctx, userID, s, wishlists)
	if err != nil {
		unlockWishlist()
		unlockCart()
		return cart, wishlist, err
	}
	line, ok := cart.Line(productID)
	if !ok {
		unlockWishlist()
		unlockCart()
		return cart, wishlist, domain.ErrNotFound
	}

	nextWishlist := wishlist.Add(line.Product())
	if err := wishlists.persist(ctx, userID, nextWishlist); err != nil {
		unlockWishlist()
		unlockCart()
		return cart, wishlist, err
	}
	nextCart := cart.Remove(productID)
	errCart := s.persist(ctx, userID, nextCart)
	unlockWishlist()
	unlockCart()

	publish(ctx, wishlists.bus, bus.TopicWishlistUpdated, userID)
	if errCart != nil {
		return cart, nextWishlist, errCart
	}
	publish(ctx, s.bus, bus.TopicCartUpdated, userID)
	return nextCart, nextWishlist, nil
}
