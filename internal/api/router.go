package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/example/storefront-cart/internal/api/middleware"
)

type RouterConfig struct {
	Handlers *Handlers
	Verifier middleware.TokenVerifier
	Logger   zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handlers
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Catalog
	r.Get("/products", h.GetProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/categories", h.GetCategories)

	// Signed-in routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.Verifier))

		r.Post("/session", h.OpenSession)
		r.Delete("/session", h.CloseSession)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddToCart)
			r.Patch("/items/{id}", h.UpdateCartItem)
			r.Delete("/items/{id}", h.RemoveFromCart)
		})

		r.Get("/notifications", h.GetNotifications)
	})

	return r
}
