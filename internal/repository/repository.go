package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrActiveCartExists  = errors.New("user already has an active cart")
	ErrCartConflict      = errors.New("cart was modified concurrently")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("user with this email already exists")
	ErrOrderNotFound     = errors.New("order not found")
)

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	// GetActiveCart returns the cart with status "active" for userID or ErrCartNotFound.
	GetActiveCart(ctx context.Context, userID string) (*domain.Cart, error)
	// CreateCart inserts a new cart. ErrActiveCartExists if the user already has one.
	CreateCart(ctx context.Context, cart *domain.Cart) error
	// SaveCart replaces the cart if its version is unchanged since it was read,
	// bumping cart.Version on success. Returns ErrCartConflict otherwise.
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error)
	FindByFilter(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	// DecrementStock atomically subtracts amount, failing with ErrInsufficientStock
	// instead of letting stock drop below zero.
	DecrementStock(ctx context.Context, id string, amount int) error
	IncrementStock(ctx context.Context, id string, amount int) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}
