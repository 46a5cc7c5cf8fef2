package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxSaveAttempts bounds the re-read/re-apply loop when a cart save loses a
// version race.
const maxSaveAttempts = 3

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	log      *zap.Logger
	sfg      singleflight.Group // one cart creation per user at a time
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, c cache.CartCache, log *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		cache:    c,
		log:      log,
	}
}

// GetActiveCart returns the user's active cart with product details filled
// in, creating an empty one on first access.
func (s *CartService) GetActiveCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, validationError("userId is required")
	}
	log := logger.WithContext(ctx, s.log)

	cart, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn("cart cache get failed", zap.String("user_id", userID), zap.Error(err))
	}

	cart, err = s.loadActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, cart); err != nil {
		return nil, err
	}

	// written before returning so the caller's next mutation invalidates it
	// rather than racing it
	setCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.cache.Set(setCtx, userID, cart); err != nil {
		log.Warn("cart cache set failed", zap.String("user_id", userID), zap.Error(err))
	}

	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if err := validateLine(userID, productID, quantity); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		if cart.FindItem(productID) >= 0 {
			return &Error{Kind: KindDuplicateItem, Message: "item already exists in the cart"}
		}

		product, err := s.checkStock(ctx, productID, quantity)
		if err != nil {
			return err
		}

		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: product.Price,
		})
		return nil
	})
}

// UpdateItem sets the quantity of an existing line. Stock is checked against
// the new quantity; nothing is reserved until checkout.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if err := validateLine(userID, productID, quantity); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindItem(productID)
		if idx < 0 {
			return notFoundError("item not found in the cart")
		}

		if _, err := s.checkStock(ctx, productID, quantity); err != nil {
			return err
		}

		cart.Items[idx].Quantity = quantity
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, validationError("userId is required")
	}
	if productID == "" {
		return nil, validationError("productId is required")
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindItem(productID)
		if idx < 0 {
			return notFoundError("item not found in the cart")
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, validationError("userId is required")
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.Items = []domain.CartItem{}
		return nil
	})
}

// mutate applies fn to a freshly loaded cart, recomputes the total and saves.
// A lost version race reloads the cart and applies fn again.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(cart *domain.Cart) error) (*domain.Cart, error) {
	log := logger.WithContext(ctx, s.log).With(zap.String("user_id", userID))

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		cart, err := s.loadActiveCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		if err := fn(cart); err != nil {
			return nil, err
		}
		cart.TotalAmount = ComputeTotalAmount(cart.Items)

		err = s.carts.SaveCart(ctx, cart)
		if errors.Is(err, repository.ErrCartConflict) {
			log.Debug("cart save conflict, retrying", zap.String("cart_id", cart.ID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			log.Error("save cart failed", zap.String("cart_id", cart.ID), zap.Error(err))
			return nil, internalError(err)
		}

		s.invalidateCache(ctx, userID)

		// already saved, so a lookup failure only costs the display details
		_ = s.populate(ctx, cart)
		return cart, nil
	}

	log.Error("cart save kept conflicting", zap.Int("attempts", maxSaveAttempts))
	return nil, internalError(fmt.Errorf("save cart after %d attempts: %w", maxSaveAttempts, repository.ErrCartConflict))
}

// loadActiveCart reads the active cart from the repository, creating it when
// missing. The returned cart is never shared with other callers.
func (s *CartService) loadActiveCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetActiveCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		logger.WithContext(ctx, s.log).Error("get active cart failed", zap.String("user_id", userID), zap.Error(err))
		return nil, internalError(err)
	}

	_, err, _ = s.sfg.Do(userID, func() (interface{}, error) {
		return nil, s.createCart(ctx, userID)
	})
	if err != nil {
		logger.WithContext(ctx, s.log).Error("create cart failed", zap.String("user_id", userID), zap.Error(err))
		return nil, internalError(err)
	}

	cart, err = s.carts.GetActiveCart(ctx, userID)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("get active cart after create failed", zap.String("user_id", userID), zap.Error(err))
		return nil, internalError(err)
	}
	return cart, nil
}

func (s *CartService) createCart(ctx context.Context, userID string) error {
	cart := &domain.Cart{
		ID:     uuid.NewString(),
		UserID: userID,
		Items:  []domain.CartItem{},
		Status: domain.CartStatusActive,
	}

	err := s.carts.CreateCart(ctx, cart)
	if errors.Is(err, repository.ErrActiveCartExists) {
		// another process got there first
		return nil
	}
	return err
}

func (s *CartService) checkStock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, notFoundError("product not found")
	}
	if err != nil {
		logger.WithContext(ctx, s.log).Error("find product failed", zap.String("product_id", productID), zap.Error(err))
		return nil, internalError(err)
	}

	if product.Stock < quantity {
		return nil, &Error{
			Kind:    KindInsufficientStock,
			Message: fmt.Sprintf("low stock for %s: %d available, %d requested", product.Title, product.Stock, quantity),
		}
	}
	return product, nil
}

// populate fills in product details for display. Lines whose product has
// since been deleted are left without details.
func (s *CartService) populate(ctx context.Context, cart *domain.Cart) error {
	if len(cart.Items) == 0 {
		return nil
	}

	ids := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("load cart products failed", zap.String("cart_id", cart.ID), zap.Error(err))
		return internalError(err)
	}

	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for i := range cart.Items {
		if p, ok := byID[cart.Items[i].ProductID]; ok {
			cart.Items[i].Product = &domain.ProductDetails{
				Title: p.Title,
				Image: p.Image,
				Price: p.Price,
				Stock: p.Stock,
			}
		}
	}
	return nil
}

func (s *CartService) invalidateCache(ctx context.Context, userID string) {
	invalidateCart(ctx, s.cache, s.log, userID)
}

func invalidateCart(ctx context.Context, c cache.CartCache, log *zap.Logger, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := c.Delete(ctx, userID); err != nil {
		logger.WithContext(ctx, log).Warn("cart cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func validateLine(userID, productID string, quantity int) error {
	if userID == "" {
		return validationError("userId is required")
	}
	if productID == "" {
		return validationError("productId is required")
	}
	if quantity <= 0 {
		return validationError("quantity must be a positive integer")
	}
	return nil
}
