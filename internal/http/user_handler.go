package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"go.uber.org/zap"
)

type Accounts interface {
	Authenticator
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	MyOrders(ctx context.Context, userID string) ([]*domain.Order, error)
}

type UserHandler struct {
	accounts Accounts
	log      *zap.Logger
	timeout  time.Duration
}

func NewUserHandler(accounts Accounts, log *zap.Logger, timeout time.Duration) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		log:      log,
		timeout:  timeout,
	}
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OrdersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}

	result, err := h.accounts.Register(ctx, in)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *UserHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.accounts.MyOrders(ctx, getUserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	respondJSON(w, http.StatusOK, &OrdersResponse{Orders: orders})
}
