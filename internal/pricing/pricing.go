// Package pricing computes cart totals. Every function is pure: it reads a
// cart snapshot and returns unrounded decimals. Rounding happens only in
// Summary.Display.
package pricing

import (
	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Policy holds the tax and shipping rules.
type Policy struct {
	TaxRate decimal.Decimal
	// Orders with a subtotal strictly above the threshold ship free.
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultPolicy is 8% tax and 5.99 flat shipping, free above 50.
var DefaultPolicy = Policy{
	TaxRate:               decimal.RequireFromString("0.08"),
	FreeShippingThreshold: decimal.NewFromInt(50),
	ShippingFee:           decimal.RequireFromString("5.99"),
}

// NewPolicy builds a policy from float settings such as env config.
func NewPolicy(taxRate, freeShippingThreshold, shippingFee float64) Policy {
	return Policy{
		TaxRate:               decimal.NewFromFloat(taxRate),
		FreeShippingThreshold: decimal.NewFromFloat(freeShippingThreshold),
		ShippingFee:           decimal.NewFromFloat(shippingFee),
	}
}

// Subtotal is the sum of price * quantity over all lines.
func Subtotal(cart domain.Cart) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range cart.Lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// Tax on a subtotal.
func (p Policy) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.TaxRate)
}

// Shipping for a subtotal.
func (p Policy) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee
}

// Total is subtotal + tax + shipping.
func (p Policy) Total(cart domain.Cart) decimal.Decimal {
	subtotal := Subtotal(cart)
	return subtotal.Add(p.Tax(subtotal)).Add(p.Shipping(subtotal))
}

// Summary is a priced cart.
type Summary struct {
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
	ItemCount int
}

// Summarize prices the cart under the policy.
func (p Policy) Summarize(cart domain.Cart) Summary {
	subtotal := Subtotal(cart)
	tax := p.Tax(subtotal)
	shipping := p.Shipping(subtotal)
	return Summary{
		Subtotal:  subtotal,
		Tax:       tax,
		Shipping:  shipping,
		Total:     subtotal.Add(tax).Add(shipping),
		ItemCount: cart.ItemCount(),
	}
}

// DisplaySummary is a Summary with every figure rounded to 2 places.
type DisplaySummary struct {
	Subtotal     string `json:"subtotal"`
	Tax          string `json:"tax"`
	Shipping     string `json:"shipping"`
	Total        string `json:"total"`
	ItemCount    int    `json:"item_count"`
	FreeShipping bool   `json:"free_shipping"`
}

// Display rounds the summary for presentation.
func (s Summary) Display() DisplaySummary {
	return DisplaySummary{
		Subtotal:     Format(s.Subtotal),
		Tax:          Format(s.Tax),
		Shipping:     Format(s.Shipping),
		Total:        Format(s.Total),
		ItemCount:    s.ItemCount,
		FreeShipping: s.Shipping.IsZero(),
	}
}

// Format renders a money value with 2 decimal places, rounding half away
// from zero.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
