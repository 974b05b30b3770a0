package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlistAdd_Idempotent(t *testing.T) {
	w := NewWishlist("123")
	p := product(1, "10.00", 3)

	w = w.Add(p).Add(p)
	assert.Equal(t, 1, w.Len())
	assert.True(t, w.Contains(1))
}

func TestWishlistRemove(t *testing.T) {
	w := NewWishlist("123").Add(product(1, "10.00", 3)).Add(product(2, "5.00", 1))

	next := w.Remove(1)
	assert.False(t, next.Contains(1))
	assert.True(t, next.Contains(2))
	assert.Equal(t, next, next.Remove(1))
	assert.Equal(t, 2, w.Len(), "receiver must not change")
}

func TestWishlistToggle(t *testing.T) {
	p := product(1, "10.00", 3)

	w, saved := NewWishlist("123").Toggle(p)
	assert.True(t, saved)
	assert.True(t, w.Contains(1))

	w, saved = w.Toggle(p)
	assert.False(t, saved)
	assert.Equal(t, 0, w.Len())
}

func TestWishlistClear(t *testing.T) {
	w := NewWishlist("123").Add(product(1, "10.00", 3)).Clear()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, "123", w.UserID)
}

func TestMoveToCart_Success(t *testing.T) {
	w := NewWishlist("123").Add(product(1, "10.00", 3))

	nextW, nextC, err := MoveToCart(w, NewCart("123"), 1)
	require.NoError(t, err)
	assert.False(t, nextW.Contains(1))
	line, ok := nextC.Line(1)
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
}

func TestMoveToCart_OutOfStockLeavesBoth(t *testing.T) {
	w := NewWishlist("123").Add(product(1, "10.00", 0))
	c := NewCart("123")

	nextW, nextC, err := MoveToCart(w, c, 1)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, w, nextW)
	assert.Equal(t, c, nextC)
}

func TestMoveToCart_StockLimitLeavesBoth(t *testing.T) {
	p := product(1, "10.00", 1)
	w := NewWishlist("123").Add(p)
	c, _ := NewCart("123").AddOrIncrement(p)

	nextW, nextC, err := MoveToCart(w, c, 1)
	assert.ErrorIs(t, err, ErrStockLimitExceeded)
	assert.True(t, nextW.Contains(1))
	assert.Equal(t, c, nextC)
}

func TestMoveToCart_NotInWishlist(t *testing.T) {
	_, _, err := MoveToCart(NewWishlist("123"), NewCart("123"), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddAllToCart(t *testing.T) {
	w := NewWishlist("123").
		Add(product(1, "10.00", 3)).
		Add(product(2, "5.00", 0)).
		Add(product(3, "1.00", 1))
	c, _ := NewCart("123").AddOrIncrement(product(3, "1.00", 1))

	next, added, skipped := AddAllToCart(w, c)
	assert.Equal(t, 1, added)
	require.Len(t, skipped, 2)
	assert.Equal(t, int64(2), skipped[0].ProductID)
	assert.ErrorIs(t, skipped[0].Err, ErrOutOfStock)
	assert.Equal(t, int64(3), skipped[1].ProductID)
	assert.ErrorIs(t, skipped[1].Err, ErrStockLimitExceeded)
	assert.Equal(t, 2, next.Len())
	assert.Equal(t, 3, w.Len())
}
