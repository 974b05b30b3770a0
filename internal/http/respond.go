package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/store"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondStoreError maps store, domain and catalog errors to HTTP statuses.
func respondStoreError(ctx context.Context, log *slog.Logger, w http.ResponseWriter, err error) {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, store.ErrAnonymous):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrOutOfStock):
		status, code = http.StatusConflict, "out_of_stock"
	case errors.Is(err, domain.ErrStockLimitExceeded):
		status, code = http.StatusConflict, "stock_limit_exceeded"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, catalog.ErrProductNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, catalog.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		log.ErrorContext(ctx, "request failed", "error", err, "request_id", getRequestID(ctx))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondError(w, status, code, err.Error())
}

// productIDParam reads the positive {product_id} path parameter.
func productIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
