package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
)

// ProductSource is the read side of the catalog.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

type ProductHandler struct {
	catalog ProductSource
	timeout time.Duration
	log     *slog.Logger
}

func NewProductHandler(catalog ProductSource, timeout time.Duration, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
		log:     logger,
	}
}

type ImageResponse struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url"`
}

type ProductResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Brand         string          `json:"brand,omitempty"`
	Category      string          `json:"category,omitempty"`
	Price         string          `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Available     bool            `json:"available"`
	ReleaseDate   string          `json:"release_date,omitempty"`
	Images        []ImageResponse `json:"images"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

func toProductResponse(p domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Brand:         p.Brand,
		Category:      p.Category,
		Price:         pricing.Format(p.Price),
		StockQuantity: p.StockQuantity,
		Available:     p.Available,
		Images:        make([]ImageResponse, 0, len(p.Images)),
	}
	if p.ReleaseDate != nil {
		resp.ReleaseDate = p.ReleaseDate.Format(time.DateOnly)
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, ImageResponse{Name: img.Name, MimeType: img.MimeType, URL: img.DataURL()})
	}
	return resp
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}
	resp := ProductsResponse{Products: make([]ProductResponse, len(products))}
	for i, p := range products {
		resp.Products[i] = toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}
	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}
