package domain

import "github.com/shopspring/decimal"

// CartLine is one product in a cart. The product fields are a snapshot taken
// when the line was added (stock is refreshed on every increment).
type CartLine struct {
	ProductID     int64           `json:"id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand,omitempty"`
	Category      string          `json:"category,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Quantity      int             `json:"quantity"`
}

// LineTotal is price * quantity, unrounded.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Product rebuilds the product snapshot held by the line.
func (l CartLine) Product() Product {
	return Product{
		ID:            l.ProductID,
		Name:          l.Name,
		Brand:         l.Brand,
		Category:      l.Category,
		Price:         l.Price,
		StockQuantity: l.StockQuantity,
		Available:     l.StockQuantity > 0,
	}
}

func newLine(p Product) CartLine {
	return CartLine{
		ProductID:     p.ID,
		Name:          p.Name,
		Brand:         p.Brand,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Quantity:      1,
	}
}

// Cart is a user's cart: lines in insertion order, unique by product id.
//
// Cart is a value. Every mutation returns a new Cart and never touches the
// receiver's backing array, so a rejected mutation cannot leave a partial
// change behind.
type Cart struct {
	UserID string     `json:"user_id"`
	Lines  []CartLine `json:"lines"`
}

// NewCart returns an empty cart for the user.
func NewCart(userID string) Cart {
	return Cart{UserID: userID, Lines: []CartLine{}}
}

func (c Cart) index(productID int64) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) withLines(lines []CartLine) Cart {
	return Cart{UserID: c.UserID, Lines: lines}
}

func (c Cart) copyLines() []CartLine {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return lines
}

// Line returns the line for productID.
func (c Cart) Line(productID int64) (CartLine, bool) {
	i := c.index(productID)
	if i < 0 {
		return CartLine{}, false
	}
	return c.Lines[i], true
}

// Len is the number of distinct products.
func (c Cart) Len() int {
	return len(c.Lines)
}

// ItemCount is the sum of all line quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// AddOrIncrement adds one unit of p. An existing line is incremented unless it
// already holds p.StockQuantity units; a new line needs stock > 0.
func (c Cart) AddOrIncrement(p Product) (Cart, error) {
	i := c.index(p.ID)
	if i < 0 {
		if !p.InStock() {
			return c, ErrOutOfStock
		}
		return c.withLines(append(c.copyLines(), newLine(p))), nil
	}

	existing := c.Lines[i]
	if existing.Quantity >= p.StockQuantity {
		if p.StockQuantity <= 0 {
			return c, ErrOutOfStock
		}
		return c, stockLimit(p.StockQuantity)
	}

	lines := c.copyLines()
	lines[i].Quantity++
	lines[i].StockQuantity = p.StockQuantity
	return c.withLines(lines), nil
}

// SetQuantity replaces a line's quantity. A quantity <= 0 removes the line.
// The line's recorded stock bounds the new quantity. Setting the quantity of an
// absent product is a no-op.
func (c Cart) SetQuantity(productID int64, quantity int) (Cart, error) {
	if quantity <= 0 {
		return c.Remove(productID), nil
	}
	i := c.index(productID)
	if i < 0 {
		return c, nil
	}
	if quantity > c.Lines[i].StockQuantity {
		return c, stockLimit(c.Lines[i].StockQuantity)
	}

	lines := c.copyLines()
	lines[i].Quantity = quantity
	return c.withLines(lines), nil
}

// Remove deletes the line for productID if present.
func (c Cart) Remove(productID int64) Cart {
	i := c.index(productID)
	if i < 0 {
		return c
	}
	lines := make([]CartLine, 0, len(c.Lines)-1)
	lines = append(lines, c.Lines[:i]...)
	lines = append(lines, c.Lines[i+1:]...)
	return c.withLines(lines)
}

// Clear empties the cart.
func (c Cart) Clear() Cart {
	return NewCart(c.UserID)
}
