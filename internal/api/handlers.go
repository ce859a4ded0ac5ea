package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/example/storefront-cart/internal/api/middleware"
	"github.com/example/storefront-cart/internal/catalog"
	"github.com/example/storefront-cart/internal/domain/cart"
	"github.com/example/storefront-cart/internal/session"
)

// ProductSource is the catalog as the handlers need it.
type ProductSource interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	Product(ctx context.Context, id int) (*catalog.Product, error)
}

type Handlers struct {
	catalog  ProductSource
	sessions *session.Manager
	logger   zerolog.Logger
}

func NewHandlers(products ProductSource, sessions *session.Manager, logger zerolog.Logger) *Handlers {
	return &Handlers{
		catalog:  products,
		sessions: sessions,
		logger:   logger.With().Str("component", "API").Logger(),
	}
}

// Catalog Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load catalog")
		respondError(w, "catalog unavailable", http.StatusBadGateway)
		return
	}

	q := r.URL.Query()
	filtered := catalog.Filter(products, catalog.Query{
		Search:   q.Get("q"),
		Category: q.Get("category"),
	})
	sorted := catalog.Sort(filtered, catalog.SortOption(q.Get("sort")))

	if q.Get("group") == "true" {
		groups := catalog.GroupByCategory(catalog.Categories(products), sorted)
		if groups == nil {
			groups = []catalog.Group{}
		}
		respondJSON(w, http.StatusOK, groups)
		return
	}
	respondJSON(w, http.StatusOK, sorted)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "invalid product id", http.StatusBadRequest)
		return
	}

	product, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, "product not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int("product_id", id).Msg("failed to load product")
		respondError(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load catalog")
		respondError(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	categories := catalog.Categories(products)
	if categories == nil {
		categories = []string{}
	}
	respondJSON(w, http.StatusOK, categories)
}

// Session Handlers

func (h *Handlers) OpenSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.openSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newCartView(s))
}

func (h *Handlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())

	err := h.sessions.Close(r.Context(), id.UserID)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		// The store is already torn down; the failed flush has been notified.
		h.logger.Warn().Err(err).Str("user_id", id.UserID).Msg("flush on sign-out failed")
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.openSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newCartView(s))
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"product_id"`
		Quantity  int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 {
		respondError(w, "quantity must be at least 1", http.StatusBadRequest)
		return
	}

	product, err := h.catalog.Product(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, "product not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int("product_id", req.ProductID).Msg("failed to load product")
		respondError(w, "catalog unavailable", http.StatusBadGateway)
		return
	}

	s, ok := h.openSession(w, r)
	if !ok {
		return
	}
	s.Cart.AddToCart(product.ToLineItem(), req.Quantity)
	respondJSON(w, http.StatusOK, newCartView(s))
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity *int `json:"quantity"`
		Delta    *int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if (req.Quantity == nil) == (req.Delta == nil) {
		respondError(w, "exactly one of quantity or delta is required", http.StatusBadRequest)
		return
	}
	if req.Quantity != nil && *req.Quantity < 1 {
		respondError(w, "quantity must be at least 1", http.StatusBadRequest)
		return
	}

	s, ok := h.openSession(w, r)
	if !ok {
		return
	}
	id := cart.ItemID(chi.URLParam(r, "id"))
	if cart.Find(s.Cart.Items(), id) < 0 {
		respondError(w, "item not in cart", http.StatusNotFound)
		return
	}

	if req.Quantity != nil {
		s.Cart.UpdateQuantity(id, *req.Quantity)
	} else {
		s.Cart.ChangeQuantity(id, *req.Delta)
	}
	respondJSON(w, http.StatusOK, newCartView(s))
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.openSession(w, r)
	if !ok {
		return
	}
	id := cart.ItemID(chi.URLParam(r, "id"))
	if cart.Find(s.Cart.Items(), id) < 0 {
		respondError(w, "item not in cart", http.StatusNotFound)
		return
	}

	s.Cart.RemoveFromCart(id)
	respondJSON(w, http.StatusOK, newCartView(s))
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.openSession(w, r)
	if !ok {
		return
	}
	s.Cart.ClearCart()
	respondJSON(w, http.StatusOK, newCartView(s))
}

func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.openSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Notifications.Drain())
}

// openSession returns the caller's session, opening it on first use.
func (h *Handlers) openSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	s, err := h.sessions.Open(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", id.UserID).Msg("failed to open session")
		respondError(w, "failed to open session", http.StatusInternalServerError)
		return nil, false
	}
	return s, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

type cartLine struct {
	ID                 cart.ItemID `json:"id"`
	Title              string      `json:"title"`
	Price              string      `json:"price"`
	DiscountPercentage string      `json:"discount_percentage"`
	DiscountedPrice    string      `json:"discounted_price"`
	Thumbnail          string      `json:"thumbnail"`
	Category           string      `json:"category"`
	Quantity           int         `json:"quantity"`
	Subtotal           string      `json:"subtotal"`
	LineTotal          string      `json:"line_total"`
}

type cartView struct {
	SessionID  string     `json:"session_id"`
	Items      []cartLine `json:"items"`
	Total      string     `json:"total"`
	Count      int        `json:"count"`
	LastSynced *time.Time `json:"last_synced"`
}

func newCartView(s *session.Session) cartView {
	items := s.Cart.Items()
	lines := make([]cartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, cartLine{
			ID:                 item.ID,
			Title:              item.Title,
			Price:              cart.FormatMoney(item.UnitPrice),
			DiscountPercentage: item.DiscountPercentage.String(),
			DiscountedPrice:    cart.FormatMoney(item.DiscountedPrice()),
			Thumbnail:          item.Thumbnail,
			Category:           item.Category,
			Quantity:           item.Quantity,
			Subtotal:           cart.FormatMoney(item.LineSubtotal()),
			LineTotal:          cart.FormatMoney(item.LineTotal()),
		})
	}

	view := cartView{
		SessionID: s.Cart.SessionID(),
		Items:     lines,
		Total:     cart.FormatMoney(cart.Total(items)),
		Count:     cart.Count(items),
	}
	if last := s.Cart.LastSynced(); !last.IsZero() {
		view.LastSynced = &last
	}
	return view
}
