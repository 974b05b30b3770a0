package domain

import (
	"encoding/base64"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultImageType is assumed when the catalog does not report a mime type.
const DefaultImageType = "image/jpeg"

// Product is a catalog record as seen by the storefront. It is read-only to
// the cart and wishlist: they keep snapshots of it.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	Brand         string          `json:"brand,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Available     bool            `json:"available"`
	ReleaseDate   *time.Time      `json:"release_date,omitempty"`
	Images        []Image         `json:"images,omitempty"`
}

// InStock reports whether at least one unit can be added to a cart.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// Image is the single normalized form of a product picture.
type Image struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// DataURL renders the image as an inline data URL.
func (i Image) DataURL() string {
	mime := i.MimeType
	if mime == "" {
		mime = DefaultImageType
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}
