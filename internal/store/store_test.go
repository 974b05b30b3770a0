package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/storefront/internal/bus"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func product(id int64, price string, stock int) domain.Product {
	return domain.Product{
		ID:            id,
		Name:          "Product",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Available:     stock > 0,
	}
}

// events records every publish in order.
type events struct {
	mu  sync.Mutex
	got []bus.Event
}

func (e *events) Publish(_ context.Context, ev bus.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, ev)
}

func (e *events) topics() []bus.Topic {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]bus.Topic, 0, len(e.got))
	for _, ev := range e.got {
		out = append(out, ev.Topic)
	}
	return out
}

// failingStore wraps a store and fails Put for the listed keys.
type failingStore struct {
	storage.Store
	failPut map[string]bool
	getErr  error
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if f.failPut[key] {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, value)
}

func setupStores(t *testing.T) (*CartStore, *WishlistStore, *storage.MemoryStore, *events) {
	t.Helper()
	backend := storage.NewMemoryStore()
	ev := &events{}
	return NewCartStore(backend, ev, discardLogger()), NewWishlistStore(backend, ev, discardLogger()), backend, ev
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cart_123", CartKey("123"))
	assert.Equal(t, "wishlist_123", WishlistKey("123"))
}

func TestCartStore_ConcurrentAddsHonourStock(t *testing.T) {
	carts, _, _, _ := setupStores(t)
	ctx := context.Background()
	const callers, stock = 10, 3
	p := product(1, "10.00", stock)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		limited   int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := carts.Add(ctx, "123", p)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrStockLimitExceeded):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, callers-stock, limited)
	line, ok := carts.Load(ctx, "123").Line(1)
	require.True(t, ok)
	assert.Equal(t, stock, line.Quantity)
}

func TestStores_OpposingMovesDoNotDeadlock(t *testing.T) {
	carts, wishlists, _, _ := setupStores(t)
	ctx := context.Background()
	_, err := carts.Add(ctx, "123", product(1, "10.00", 5))
	require.NoError(t, err)

	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range rounds {
			_, _, err := carts.MoveToWishlist(ctx, "123", 1, wishlists)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("move to wishlist: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range rounds {
			_, _, err := wishlists.MoveToCart(ctx, "123", 1, carts)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("move to cart: %v", err)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposing moves did not finish")
	}

	// each move writes both collections under both locks, so the product
	// always ends up in exactly one of them
	_, inCart := carts.Load(ctx, "123").Line(1)
	inWishlist := wishlists.Load(ctx, "123").Contains(1)
	assert.NotEqual(t, inCart, inWishlist)
}
