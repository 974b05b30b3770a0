package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Products  *ProductHandler
	Carts     *CartHandler
	Wishlists *WishlistHandler
	Events    *EventsHandler
	JWTSecret string
	Logger    *slog.Logger
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/products", cfg.Products.List)
		r.Get("/products/{id}", cfg.Products.Get)
		r.Get("/categories", cfg.Products.Categories)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.JWTSecret))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.Carts.GetCart)
				r.Delete("/", cfg.Carts.ClearCart)
				r.Get("/summary", cfg.Carts.Summary)
				r.Post("/items", cfg.Carts.AddItem)
				r.Put("/items/{product_id}", cfg.Carts.UpdateQuantity)
				r.Delete("/items/{product_id}", cfg.Carts.RemoveItem)
				r.Post("/items/{product_id}/move-to-wishlist", cfg.Carts.MoveToWishlist)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", cfg.Wishlists.GetWishlist)
				r.Delete("/", cfg.Wishlists.Clear)
				r.Post("/items", cfg.Wishlists.AddItem)
				r.Delete("/items/{product_id}", cfg.Wishlists.RemoveItem)
				r.Post("/items/{product_id}/toggle", cfg.Wishlists.Toggle)
				r.Post("/items/{product_id}/move-to-cart", cfg.Wishlists.MoveToCart)
				r.Post("/add-all-to-cart", cfg.Wishlists.AddAllToCart)
			})

			r.Get("/counts", cfg.Events.Counts)
			r.Get("/events", cfg.Events.Stream)
		})
	})

	return r
}
