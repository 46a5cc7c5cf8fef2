package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type CartEngineMock struct {
	cart         *domain.Cart
	err          error
	lastQuantity int
}

func (c *CartEngineMock) GetActiveCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return c.cart, c.err
}

func (c *CartEngineMock) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	c.lastQuantity = quantity
	return c.cart, c.err
}

func (c *CartEngineMock) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	c.lastQuantity = quantity
	return c.cart, c.err
}

func (c *CartEngineMock) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	return c.cart, c.err
}

func (c *CartEngineMock) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return c.cart, c.err
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

func TestGetCart_Success(t *testing.T) {
	mock := &CartEngineMock{
		cart: &domain.Cart{
			ID:     "c1",
			UserID: "u1",
			Items:  []domain.CartItem{{ProductID: "p1", Quantity: 2, UnitPrice: 10}},
			Status: domain.CartStatusActive,
		},
	}
	handler := NewCartHandler(mock, zap.NewNop(), 5*time.Second)

	req := withUser(httptest.NewRequest(http.MethodGet, "/cart", nil), "u1")
	w := httptest.NewRecorder()
	handler.GetCart(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"productId":"p1"`)
	assert.NotContains(t, w.Body.String(), "version")
}

func TestGetCart_InternalErrorIsHidden(t *testing.T) {
	mock := &CartEngineMock{
		err: &service.Error{Kind: service.KindInternal, Message: "internal server error", Err: errors.New("mongo: connection refused")},
	}
	handler := NewCartHandler(mock, zap.NewNop(), 5*time.Second)

	req := withUser(httptest.NewRequest(http.MethodGet, "/cart", nil), "u1")
	w := httptest.NewRecorder()
	handler.GetCart(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error","code":"INTERNAL_ERROR"}`, w.Body.String())
}

func TestGetCart_UnclassifiedErrorIsInternal(t *testing.T) {
	mock := &CartEngineMock{err: errors.New("raw failure")}
	handler := NewCartHandler(mock, zap.NewNop(), 5*time.Second)

	req := withUser(httptest.NewRequest(http.MethodGet, "/cart", nil), "u1")
	w := httptest.NewRecorder()
	handler.GetCart(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "raw failure")
}

func TestAddItem_Quantity(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int
		status   int
	}{
		{"defaults to one", `{"productId":"p1"}`, 1, http.StatusOK},
		{"explicit", `{"productId":"p1","quantity":3}`, 3, http.StatusOK},
		{"integral float", `{"productId":"p1","quantity":2.0}`, 2, http.StatusOK},
		{"fraction", `{"productId":"p1","quantity":2.5}`, 0, http.StatusBadRequest},
		{"negative", `{"productId":"p1","quantity":-1}`, 0, http.StatusBadRequest},
		{"string", `{"productId":"p1","quantity":"2"}`, 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &CartEngineMock{cart: &domain.Cart{ID: "c1"}}
			handler := NewCartHandler(mock, zap.NewNop(), 5*time.Second)

			req := withUser(httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBufferString(tt.body)), "u1")
			w := httptest.NewRecorder()
			handler.AddItem(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.expected, mock.lastQuantity)
		})
	}
}

func TestRemoveItem_UsesPathParam(t *testing.T) {
	mock := &CartEngineMock{err: &service.Error{Kind: service.KindNotFound, Message: "item not found in the cart"}}
	handler := NewCartHandler(mock, zap.NewNop(), 5*time.Second)

	r := chi.NewRouter()
	r.Delete("/cart/items/{productId}", handler.RemoveItem)

	req := withUser(httptest.NewRequest(http.MethodDelete, "/cart/items/p9", nil), "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"item not found in the cart","code":"NOT_FOUND"}`, w.Body.String())
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	mock := &CartEngineMock{cart: &domain.Cart{ID: "c1"}}
	handler := NewCartHandler(mock, zap.NewNop(), 5*time.Second)

	big := `{"productId":"` + string(bytes.Repeat([]byte("a"), maxRequestBodySize+1)) + `"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBufferString(big)), "u1")
	w := httptest.NewRecorder()
	handler.AddItem(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
