package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const checkoutSuccessMessage = "Order placed successfully"

// OrderPublisher announces placed orders. Failures never undo a checkout.
type OrderPublisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
}

type CheckoutResult struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

type CheckoutService struct {
	carts     repository.CartRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	cache     cache.CartCache
	publisher OrderPublisher
	log       *zap.Logger
}

func NewCheckoutService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	c cache.CartCache,
	publisher OrderPublisher,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		products:  products,
		orders:    orders,
		cache:     c,
		publisher: publisher,
		log:       log,
	}
}

// Checkout turns the user's active cart into a pending order.
//
// All lines are validated against current stock before anything is written.
// The order is then persisted, stock is decremented line by line and the cart
// is closed with a versioned save. A failure after the order is persisted
// restores decremented stock and deletes the order.
func (s *CheckoutService) Checkout(ctx context.Context, userID, address string) (*CheckoutResult, error) {
	if userID == "" {
		return nil, validationError("userId is required")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, validationError("address is required")
	}
	log := logger.WithContext(ctx, s.log).With(zap.String("user_id", userID))

	cart, err := s.carts.GetActiveCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, &Error{Kind: KindEmptyCart, Message: "cart is empty"}
	}
	if err != nil {
		log.Error("get active cart failed", zap.Error(err))
		return nil, internalError(err)
	}
	if len(cart.Items) == 0 {
		return nil, &Error{Kind: KindEmptyCart, Message: "cart is empty"}
	}

	products, err := s.validateStock(ctx, cart)
	if err != nil {
		return nil, err
	}

	order := buildOrder(userID, address, cart, products)
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		log.Error("create order failed", zap.Error(err))
		return nil, internalError(err)
	}
	log = log.With(zap.String("order_id", order.ID.String()))

	for i, item := range cart.Items {
		err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}

		s.rollback(ctx, log, order, cart.Items[:i])
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			// stock moved between validation and decrement
			return nil, &Error{
				Kind:    KindInsufficientStock,
				Message: fmt.Sprintf("low stock for %s", products[item.ProductID].Title),
			}
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, notFoundError("product %s not found", item.ProductID)
		default:
			log.Error("decrement stock failed", zap.String("product_id", item.ProductID), zap.Error(err))
			return nil, internalError(err)
		}
	}

	purchased := cart.Items
	cart.Status = domain.CartStatusCompleted
	cart.Items = []domain.CartItem{}
	cart.TotalAmount = 0
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.rollback(ctx, log, order, purchased)
		if errors.Is(err, repository.ErrCartConflict) {
			return nil, &Error{Kind: KindConflict, Message: "cart changed during checkout, please retry", Err: err}
		}
		log.Error("close cart failed", zap.String("cart_id", cart.ID), zap.Error(err))
		return nil, internalError(err)
	}

	invalidateCart(ctx, s.cache, s.log, userID)
	s.publish(ctx, log, order)

	log.Info("order placed", zap.Float64("total", order.Total), zap.Int("lines", len(order.OrderItems)))
	return &CheckoutResult{Message: checkoutSuccessMessage, Order: order}, nil
}

// validateStock re-reads every product in the cart and fails on the first
// line whose quantity exceeds the available stock.
func (s *CheckoutService) validateStock(ctx context.Context, cart *domain.Cart) (map[string]*domain.Product, error) {
	ids := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}

	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("load checkout products failed", zap.String("cart_id", cart.ID), zap.Error(err))
		return nil, internalError(err)
	}

	products := make(map[string]*domain.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}

	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, notFoundError("product %s not found", item.ProductID)
		}
		if product.Stock < item.Quantity {
			return nil, &Error{
				Kind: KindInsufficientStock,
				Message: fmt.Sprintf("low stock for %s: %d available, %d requested",
					product.Title, product.Stock, item.Quantity),
			}
		}
	}
	return products, nil
}

func buildOrder(userID, address string, cart *domain.Cart, products map[string]*domain.Product) *domain.Order {
	items := make([]domain.OrderItem, len(cart.Items))
	for i, item := range cart.Items {
		p := products[item.ProductID]
		items[i] = domain.OrderItem{
			ProductID:    item.ProductID,
			ProductTitle: p.Title,
			ProductImage: p.Image,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
		}
	}

	now := time.Now().UTC()
	return &domain.Order{
		ID:         uuid.New(),
		UserID:     userID,
		OrderItems: items,
		Total:      ComputeTotalAmount(cart.Items),
		Address:    address,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *CheckoutService) publish(ctx context.Context, log *zap.Logger, order *domain.Order) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishOrderCreated(pubCtx, order); err != nil {
		log.Warn("publish order created failed", zap.Error(err))
	}
}
