package pricing

import (
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func cartOf(lines ...domain.CartLine) domain.Cart {
	c := domain.NewCart("123")
	c.Lines = lines
	return c
}

func line(id int64, price string, qty int) domain.CartLine {
	return domain.CartLine{
		ProductID:     id,
		Price:         decimal.RequireFromString(price),
		StockQuantity: 100,
		Quantity:      qty,
	}
}

func TestSummarize_FreeShipping(t *testing.T) {
	cart := cartOf(line(1, "20.00", 2), line(2, "15.00", 1))

	s := DefaultPolicy.Summarize(cart).Display()
	assert.Equal(t, "55.00", s.Subtotal)
	assert.Equal(t, "4.40", s.Tax)
	assert.Equal(t, "0.00", s.Shipping)
	assert.Equal(t, "59.40", s.Total)
	assert.Equal(t, 3, s.ItemCount)
	assert.True(t, s.FreeShipping)
}

func TestSummarize_FlatShipping(t *testing.T) {
	cart := cartOf(line(1, "10.00", 1))

	s := DefaultPolicy.Summarize(cart).Display()
	assert.Equal(t, "10.00", s.Subtotal)
	assert.Equal(t, "0.80", s.Tax)
	assert.Equal(t, "5.99", s.Shipping)
	assert.Equal(t, "16.79", s.Total)
	assert.False(t, s.FreeShipping)
}

func TestShipping_ThresholdIsExclusive(t *testing.T) {
	assert.True(t, DefaultPolicy.Shipping(decimal.NewFromInt(50)).Equal(decimal.RequireFromString("5.99")))
	assert.True(t, DefaultPolicy.Shipping(decimal.RequireFromString("50.01")).IsZero())
}

func TestSubtotal_EmptyAfterClear(t *testing.T) {
	cart := cartOf(line(1, "20.00", 2)).Clear()
	assert.True(t, Subtotal(cart).IsZero())
}

func TestTotal_UnroundedIntermediates(t *testing.T) {
	// 3 * 3.33 = 9.99, tax 0.7992, shipping 5.99 -> 16.7792
	cart := cartOf(line(1, "3.33", 3))

	total := DefaultPolicy.Total(cart)
	assert.True(t, decimal.RequireFromString("16.7792").Equal(total), total.String())
	assert.Equal(t, "16.78", Format(total))
}

func TestNewPolicy(t *testing.T) {
	p := NewPolicy(0.08, 50, 5.99)
	assert.True(t, p.TaxRate.Equal(DefaultPolicy.TaxRate))
	assert.True(t, p.FreeShippingThreshold.Equal(DefaultPolicy.FreeShippingThreshold))
	assert.True(t, p.ShippingFee.Equal(DefaultPolicy.ShippingFee))
}
