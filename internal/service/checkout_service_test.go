package service

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) ordersOf(t *testing.T, userID string) []*domain.Order {
	t.Helper()
	orders, err := f.store.ListOrdersByUserID(context.Background(), userID)
	require.NoError(t, err)
	return orders
}

func TestCheckout_Success(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 100, 5)
	ctx := context.Background()

	before, err := f.cart.AddItem(ctx, "u1", "a", 2)
	require.NoError(t, err)

	result, err := f.checkout.Checkout(ctx, "u1", "X")
	require.NoError(t, err)

	assert.Equal(t, checkoutSuccessMessage, result.Message)
	order := result.Order
	assert.Equal(t, 200.0, order.Total)
	assert.Equal(t, "X", order.Address)
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, domain.OrderItem{
		ProductID:    "a",
		ProductTitle: "Product a",
		ProductImage: "a.png",
		UnitPrice:    100,
		Quantity:     2,
	}, order.OrderItems[0])

	assert.Equal(t, 3, f.stockOf(t, "a"))

	// the old cart is closed and the next access starts a fresh one
	_, err = f.store.GetActiveCart(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrCartNotFound)

	next, err := f.cart.GetActiveCart(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, before.ID, next.ID)
	assert.Empty(t, next.Items)

	orders := f.ordersOf(t, "u1")
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
	assert.Equal(t, []uuid.UUID{order.ID}, f.publisher.published())
}

func TestCheckout_ClosedCartIsCompletedAndEmpty(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 10, 5)
	ctx := context.Background()

	cart, err := f.cart.AddItem(ctx, "u1", "a", 1)
	require.NoError(t, err)

	_, err = f.checkout.Checkout(ctx, "u1", "X")
	require.NoError(t, err)

	closed := f.carts.saved()
	require.NotNil(t, closed)
	assert.Equal(t, cart.ID, closed.ID)
	assert.Equal(t, domain.CartStatusCompleted, closed.Status)
	assert.Empty(t, closed.Items)
	assert.Zero(t, closed.TotalAmount)

	// a stale copy can no longer be saved over the closed cart
	assert.ErrorIs(t, f.store.SaveCart(ctx, cart), repository.ErrCartConflict)
}

func TestCheckout_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.checkout.Checkout(ctx, "u1", "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.checkout.Checkout(ctx, "", "X")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// no cart at all
	_, err := f.checkout.Checkout(ctx, "u1", "X")
	assert.ErrorIs(t, err, ErrEmptyCart)

	// existing but empty cart stays active
	_, err = f.cart.GetActiveCart(ctx, "u1")
	require.NoError(t, err)

	_, err = f.checkout.Checkout(ctx, "u1", "X")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, domain.CartStatusActive, f.storedCart(t, "u1").Status)
	assert.Empty(t, f.ordersOf(t, "u1"))
}

func TestCheckout_PreflightInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 100, 5)
	f.addProduct(t, "b", 50, 5)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", "a", 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, "u1", "b", 4)
	require.NoError(t, err)

	// stock drops after the line was added
	require.NoError(t, f.store.DecrementStock(ctx, "b", 3))

	_, err = f.checkout.Checkout(ctx, "u1", "X")
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "2 available, 4 requested")

	assert.Equal(t, 5, f.stockOf(t, "a"))
	assert.Equal(t, 2, f.stockOf(t, "b"))
	assert.Empty(t, f.ordersOf(t, "u1"))
	cart := f.storedCart(t, "u1")
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 400.0, cart.TotalAmount)
}

func TestCheckout_ProductDeletedBeforeCheckout(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 100, 5)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", "a", 1)
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteProduct(ctx, "a"))

	_, err = f.checkout.Checkout(ctx, "u1", "X")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.ordersOf(t, "u1"))
}

func TestCheckout_DecrementFailureRollsBack(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"stock raced away", repository.ErrInsufficientStock, ErrInsufficientStock},
		{"product vanished", repository.ErrProductNotFound, ErrNotFound},
		{"store failure", errBoom, ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addProduct(t, "a", 100, 5)
			f.addProduct(t, "b", 50, 5)
			ctx := context.Background()

			_, err := f.cart.AddItem(ctx, "u1", "a", 2)
			require.NoError(t, err)
			_, err = f.cart.AddItem(ctx, "u1", "b", 1)
			require.NoError(t, err)

			f.products.failDecrementFor = "b"
			f.products.decrementErr = tt.err

			_, err = f.checkout.Checkout(ctx, "u1", "X")
			assert.ErrorIs(t, err, tt.expected)

			assert.Equal(t, 5, f.stockOf(t, "a"), "decremented stock is restored")
			assert.Equal(t, 5, f.stockOf(t, "b"))
			assert.Empty(t, f.ordersOf(t, "u1"), "order is deleted")
			assert.Len(t, f.storedCart(t, "u1").Items, 2, "cart stays active")
			assert.Empty(t, f.publisher.published())
		})
	}
}

func TestCheckout_CartCloseConflictRollsBack(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 100, 5)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", "a", 2)
	require.NoError(t, err)
	f.carts.conflicts = 1

	_, err = f.checkout.Checkout(ctx, "u1", "X")
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, 5, f.stockOf(t, "a"))
	assert.Empty(t, f.ordersOf(t, "u1"))
	assert.Len(t, f.storedCart(t, "u1").Items, 1)
}

func TestCheckout_CartCloseFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 100, 5)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", "a", 2)
	require.NoError(t, err)
	f.carts.saveErr = errBoom

	_, err = f.checkout.Checkout(ctx, "u1", "X")
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 5, f.stockOf(t, "a"))
	assert.Empty(t, f.ordersOf(t, "u1"))
}

func TestCheckout_OrderCreateFailure(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 100, 5)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", "a", 2)
	require.NoError(t, err)
	f.orders.createErr = errBoom

	_, err = f.checkout.Checkout(ctx, "u1", "X")
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 5, f.stockOf(t, "a"))
	assert.Len(t, f.storedCart(t, "u1").Items, 1)
}

func TestCheckout_ProductLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 100, 5)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", "a", 2)
	require.NoError(t, err)
	f.products.findErr = errBoom

	_, err = f.checkout.Checkout(ctx, "u1", "X")
	assert.ErrorIs(t, err, ErrInternal)
	assert.Empty(t, f.ordersOf(t, "u1"))
}

func TestCheckout_PublishFailureDoesNotUndoOrder(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 100, 5)
	f.publisher.err = errBoom
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", "a", 1)
	require.NoError(t, err)

	result, err := f.checkout.Checkout(ctx, "u1", "X")
	require.NoError(t, err)
	assert.NotNil(t, result.Order)
	assert.Equal(t, 4, f.stockOf(t, "a"))
	assert.Len(t, f.ordersOf(t, "u1"), 1)
}

func TestCheckout_ConcurrentCheckoutsOfOneCart(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "a", 100, 5)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", "a", 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.checkout.Checkout(context.Background(), "u1", "X"); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successCount)
	assert.Equal(t, 3, f.stockOf(t, "a"))
	assert.Len(t, f.ordersOf(t, "u1"), 1)
}
