package http

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CartEngine is the cart surface the handlers depend on.
type CartEngine interface {
	GetActiveCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) (*domain.Cart, error)
}

type CartHandler struct {
	carts   CartEngine
	log     *zap.Logger
	timeout time.Duration
}

func NewCartHandler(carts CartEngine, log *zap.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		log:     log,
		timeout: timeout,
	}
}

// CartItemRequestDTO keeps quantity as a float so fractional values can be
// rejected instead of silently truncated.
type CartItemRequestDTO struct {
	ProductID string   `json:"productId"`
	Quantity  *float64 `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetActiveCart(ctx, getUserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CartItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	quantity := 1
	if req.Quantity != nil {
		q, ok := wholeQuantity(*req.Quantity)
		if !ok {
			respondValidation(w, "quantity must be a positive integer")
			return
		}
		quantity = q
	}

	cart, err := h.carts.AddItem(ctx, getUserIDFromContext(r.Context()), req.ProductID, quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CartItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		respondValidation(w, "quantity is required")
		return
	}
	quantity, ok := wholeQuantity(*req.Quantity)
	if !ok {
		respondValidation(w, "quantity must be a positive integer")
		return
	}

	cart, err := h.carts.UpdateItem(ctx, getUserIDFromContext(r.Context()), req.ProductID, quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "productId")

	cart, err := h.carts.RemoveItem(ctx, getUserIDFromContext(r.Context()), productID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.ClearCart(ctx, getUserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func wholeQuantity(q float64) (int, bool) {
	if q <= 0 || q != math.Trunc(q) || q > math.MaxInt32 {
		return 0, false
	}
	return int(q), true
}
