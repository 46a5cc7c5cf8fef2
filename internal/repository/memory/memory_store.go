package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/google/uuid"
)

// Store implements every repository interface with in-memory maps.
// Values are copied on the way in and out so callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	carts    map[string]*domain.Cart    // cartID -> cart
	products map[string]*domain.Product // productID -> product
	users    map[string]*domain.User    // email -> user
	orders   map[uuid.UUID]*domain.Order
}

var (
	_ repository.CartRepository    = (*Store)(nil)
	_ repository.ProductRepository = (*Store)(nil)
	_ repository.UserRepository    = (*Store)(nil)
	_ repository.OrderRepository   = (*Store)(nil)
)

// NewStore creates a new empty in-memory store
func NewStore() *Store {
	return &Store{
		carts:    make(map[string]*domain.Cart),
		products: make(map[string]*domain.Product),
		users:    make(map[string]*domain.User),
		orders:   make(map[uuid.UUID]*domain.Order),
	}
}

func copyCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Items = make([]domain.CartItem, len(c.Items))
	for i, item := range c.Items {
		item.Product = nil
		cp.Items[i] = item
	}
	return &cp
}

func copyProduct(p *domain.Product) *domain.Product {
	cp := *p
	return &cp
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.OrderItems = append([]domain.OrderItem(nil), o.OrderItems...)
	return &cp
}

func (s *Store) GetActiveCart(_ context.Context, userID string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cart := range s.carts {
		if cart.UserID == userID && cart.IsActive() {
			return copyCart(cart), nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (s *Store) CreateCart(_ context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cart.IsActive() {
		for _, existing := range s.carts {
			if existing.UserID == cart.UserID && existing.IsActive() {
				return repository.ErrActiveCartExists
			}
		}
	}

	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}

	s.carts[cart.ID] = copyCart(cart)
	return nil
}

func (s *Store) SaveCart(_ context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.carts[cart.ID]
	if !exists || existing.Version != cart.Version {
		return repository.ErrCartConflict
	}

	cart.Version++
	cart.UpdatedAt = time.Now().UTC()
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}

	s.carts[cart.ID] = copyCart(cart)
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return copyProduct(product), nil
}

func (s *Store) FindByIDs(_ context.Context, ids []string) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if product, exists := s.products[id]; exists {
			result = append(result, copyProduct(product))
		}
	}
	return result, nil
}

func (s *Store) FindByFilter(_ context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	title := strings.ToLower(filter.Title)
	matched := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if title != "" && !strings.Contains(strings.ToLower(p.Title), title) {
			continue
		}
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			continue
		}
		if filter.InStock && p.Stock <= 0 {
			continue
		}
		matched = append(matched, copyProduct(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*domain.Product{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *Store) CountProducts(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.products)), nil
}

func (s *Store) CreateProduct(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	s.products[product.ID] = copyProduct(product)
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return repository.ErrProductNotFound
	}

	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = copyProduct(product)
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) DecrementStock(_ context.Context, id string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return repository.ErrProductNotFound
	}
	if product.Stock < amount {
		return repository.ErrInsufficientStock
	}

	product.Stock -= amount
	product.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) IncrementStock(_ context.Context, id string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return repository.ErrProductNotFound
	}

	product.Stock += amount
	product.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	if _, exists := s.users[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	cp := *user
	s.users[user.Email] = &cp
	return nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[strings.ToLower(email)]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *Store) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *Store) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[id]
	if !exists {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (s *Store) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := []*domain.Order{}
	for _, order := range s.orders {
		if order.UserID == userID {
			orders = append(orders, copyOrder(order))
		}
	}

	// newest first, matching the Postgres store
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *Store) DeleteOrder(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[id]; !exists {
		return repository.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}
