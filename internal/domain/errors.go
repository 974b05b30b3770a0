package domain

import (
	"errors"
	"fmt"
)

// Rejection reasons for cart and wishlist mutations. A rejected mutation
// leaves the collection it was applied to unchanged.
var (
	ErrOutOfStock         = errors.New("out of stock")
	ErrStockLimitExceeded = errors.New("stock limit exceeded")
	ErrNotFound           = errors.New("product not found")
)

func stockLimit(stock int) error {
	return fmt.Errorf("%w: only %d in stock", ErrStockLimitExceeded, stock)
}
