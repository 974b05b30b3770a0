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

type WishlistHandler struct {
	wishlists *store.WishlistStore
	carts     *store.CartStore
	catalog   ProductSource
	policy    pricing.Policy
	timeout   time.Duration
	log       *slog.Logger
}

func NewWishlistHandler(wishlists *store.WishlistStore, carts *store.CartStore, catalog ProductSource, policy pricing.Policy, timeout time.Duration, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{
		wishlists: wishlists,
		carts:     carts,
		catalog:   catalog,
		policy:    policy,
		timeout:   timeout,
		log:       logger,
	}
}

type WishlistResponse struct {
	UserID string            `json:"user_id,omitempty"`
	Items  []ProductResponse `json:"items"`
}

type ToggleResponse struct {
	Saved    bool             `json:"saved"`
	Wishlist WishlistResponse `json:"wishlist"`
}

type SkippedResponse struct {
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
}

type AddAllResponse struct {
	Added   int               `json:"added"`
	Skipped []SkippedResponse `json:"skipped"`
	Cart    CartResponse      `json:"cart"`
}

func toWishlistResponse(wishlist domain.Wishlist) WishlistResponse {
	resp := WishlistResponse{
		UserID: wishlist.UserID,
		Items:  make([]ProductResponse, len(wishlist.Entries)),
	}
	for i, e := range wishlist.Entries {
		resp.Items[i] = toProductResponse(e.Product)
	}
	return resp
}

func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	wishlist := h.wishlists.Load(r.Context(), getUserIDFromContext(r.Context()))
	respondJSON(w, http.StatusOK, toWishlistResponse(wishlist))
}

// fetchProduct looks up the product named by the {product_id} path parameter
// or, when there is none, by the request body.
func (h *WishlistHandler) fetchProduct(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.Product, bool) {
	productID, ok := productIDParam(r, "product_id")
	if !ok {
		var req AddItemRequestDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
			return domain.Product{}, false
		}
		productID = req.ProductID
	}

	p, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return domain.Product{}, false
	}
	return p, true
}

func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(ctx)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	p, ok := h.fetchProduct(ctx, w, r)
	if !ok {
		return
	}

	wishlist, err := h.wishlists.Add(ctx, userID, p)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toWishlistResponse(wishlist))
}

func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(ctx)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	p, ok := h.fetchProduct(ctx, w, r)
	if !ok {
		return
	}

	wishlist, saved, err := h.wishlists.Toggle(ctx, userID, p)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusOK, ToggleResponse{Saved: saved, Wishlist: toWishlistResponse(wishlist)})
}

func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	wishlist, err := h.wishlists.Remove(ctx, getUserIDFromContext(ctx), productID)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusOK, toWishlistResponse(wishlist))
}

func (h *WishlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	wishlist, err := h.wishlists.Clear(ctx, getUserIDFromContext(ctx))
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusOK, toWishlistResponse(wishlist))
}

func (h *WishlistHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	wishlist, cart, err := h.wishlists.MoveToCart(ctx, getUserIDFromContext(ctx), productID, h.carts)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	respondJSON(w, http.StatusOK, MoveResponse{Cart: toCartResponse(h.policy, cart), Wishlist: toWishlistResponse(wishlist)})
}

func (h *WishlistHandler) AddAllToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, added, skipped, err := h.wishlists.AddAllToCart(ctx, getUserIDFromContext(ctx), h.carts)
	if err != nil {
		respondStoreError(ctx, h.log, w, err)
		return
	}

	resp := AddAllResponse{
		Added:   added,
		Skipped: make([]SkippedResponse, len(skipped)),
		Cart:    toCartResponse(h.policy, cart),
	}
	for i, s := range skipped {
		resp.Skipped[i] = SkippedResponse{ProductID: s.ProductID, Reason: s.Err.Error()}
	}
	respondJSON(w, http.StatusOK, resp)
}
