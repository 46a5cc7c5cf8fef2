package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/service"
	"go.uber.org/zap"
)

// CheckoutWorkflow turns the caller's active cart into an order.
type CheckoutWorkflow interface {
	Checkout(ctx context.Context, userID, address string) (*service.CheckoutResult, error)
}

type CheckoutHandler struct {
	checkout CheckoutWorkflow
	log      *zap.Logger
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutWorkflow, log *zap.Logger, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		log:      log,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	Address string `json:"address"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.checkout.Checkout(ctx, getUserIDFromContext(r.Context()), req.Address)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
