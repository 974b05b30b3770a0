package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/internal/store"
)

type CartHandler struct {
	carts     *store.CartStore
	wishlists *store.WishlistStore
	catalog   ProductSource
	policy    pricing.Policy
	timeout   time.Duration
	log       *slog.Logger
}

func NewCartHandler(carts *store.CartStore, wishlists *store.WishlistStore, catalog ProductSource, policy pricing.Policy, timeout time.Duration, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:     carts,
		wishlists: wishlists,
		catalog:   catalog,
		policy:    policy,
		timeout:   timeout,
		log:       logger,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartItemResponse struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	Brand         string `json:"brand,omitempty"`
	Category      string `json:"category,omitempty"`
	Price         string `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
	Quantity      int    `json:"quantity"`
	LineTotal     string `json:"line_total"`
}

type CartResponse struct {
	UserID  string                 `json:"user_id,omitempty"`
	Items   []CartItemResponse     `json:"items"`
	Summary pricing.DisplaySummary `json:"summary"`
}

func toCartResponse(policy pricing.Policy, cart domain.Cart) CartResponse {
	resp := CartResponse{
		UserID:  cart.UserID,
		Items:   make([]CartItemResponse, len(cart.Lines)),
		Summary: policy.Summarize(cart).Display(),
	}
	for i, l := range cart.Lines {
		resp.Items[i] = CartItemResponse{
			ProductID:     l.ProductID,
			Name:          l.Name,
			Brand:         l.Brand,
			Category:      l.Category,
			Price:         pricing.Format(l.Price),
			StockQuantity: l.StockQuantity,
			Quantity:      l.Quantity,
			LineTotal:     pricing.Format(l.LineTotal()),
		}
	}
	return resp
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart := h.carts.Load(r.Context(), getUserIDFromContext(r.Context()))
	respondJSON(w, http.StatusOK, toCartResponse(h.policy, cart))
}

func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	cart := h.carts.Load(r.Context(), getUserIDFromContext(r.Context()))
	respondJSON(w, http.StatusOK, h.policy.Summarize(cart).Display())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(ctx)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	// stock checks run against the catalog's current record
	p, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}
	cart, err := h.carts.Add(ctx, userID, p)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartResponse(h.policy, cart))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(ctx)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	productID, ok := productIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "body must be {\"quantity\": n}")
		return
	}

	cart, err := h.carts.SetQuantity(ctx, userID, productID, *req.Quantity)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(h.policy, cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	cart, err := h.carts.Remove(ctx, getUserIDFromContext(ctx), productID)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(h.policy, cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.Clear(ctx, getUserIDFromContext(ctx))
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(h.policy, cart))
}

type MoveResponse struct {
	Cart     CartResponse     `json:"cart"`
	Wishlist WishlistResponse `json:"wishlist"`
}

func (h *CartHandler) MoveToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	cart, wishlist, err := h.carts.MoveToWishlist(ctx, getUserIDFromContext(ctx), productID, h.wishlists)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusOK, MoveResponse{Cart: toCartResponse(h.policy, cart), Wishlist: toWishlistResponse(wishlist)})
}
