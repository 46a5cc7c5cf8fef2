package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

// flakyCarts wraps a real cart repository and injects failures into SaveCart.
type flakyCarts struct {
	repository.CartRepository
	m         sync.Mutex
	conflicts int // remaining saves to reject with ErrCartConflict
	saveErr   error
	getErr    error
	lastSaved *domain.Cart
}

func (f *flakyCarts) GetActiveCart(ctx context.Context, userID string) (*domain.Cart, error) {
	f.m.Lock()
	err := f.getErr
	f.m.Unlock()
	if err != nil {
		return nil, err
	}
	return f.CartRepository.GetActiveCart(ctx, userID)
}

func (f *flakyCarts) SaveCart(ctx context.Context, cart *domain.Cart) error {
	f.m.Lock()
	if f.conflicts > 0 {
		f.conflicts--
		f.m.Unlock()
		return repository.ErrCartConflict
	}
	err := f.saveErr
	f.m.Unlock()
	if err != nil {
		return err
	}
	if err := f.CartRepository.SaveCart(ctx, cart); err != nil {
		return err
	}

	cp := *cart
	cp.Items = append([]domain.CartItem(nil), cart.Items...)
	f.m.Lock()
	f.lastSaved = &cp
	f.m.Unlock()
	return nil
}

// saved returns a copy of the last successfully saved cart.
func (f *flakyCarts) saved() *domain.Cart {
	f.m.Lock()
	defer f.m.Unlock()
	return f.lastSaved
}

// flakyProducts wraps a real product repository and fails DecrementStock for
// one product.
type flakyProducts struct {
	repository.ProductRepository
	failDecrementFor string
	decrementErr     error
	findErr          error
}

func (f *flakyProducts) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.ProductRepository.FindByIDs(ctx, ids)
}

func (f *flakyProducts) DecrementStock(ctx context.Context, id string, amount int) error {
	if id == f.failDecrementFor {
		return f.decrementErr
	}
	return f.ProductRepository.DecrementStock(ctx, id, amount)
}

type flakyOrders struct {
	repository.OrderRepository
	createErr error
}

func (f *flakyOrders) CreateOrder(ctx context.Context, order *domain.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.OrderRepository.CreateOrder(ctx, order)
}

type mockCache struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[userID] = cart
	return m.err
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, userID)
	return m.err
}

func (m *mockCache) getCart(userID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[userID]
}

type mockPublisher struct {
	m      sync.Mutex
	orders []uuid.UUID
	err    error
}

func (p *mockPublisher) PublishOrderCreated(_ context.Context, order *domain.Order) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.orders = append(p.orders, order.ID)
	return p.err
}

func (p *mockPublisher) published() []uuid.UUID {
	p.m.Lock()
	defer p.m.Unlock()
	return append([]uuid.UUID(nil), p.orders...)
}

// fixture wires the services over one in-memory store with hooks for failure
// injection. Caching is off; cache behaviour has its own tests.
type fixture struct {
	store     *memory.Store
	carts     *flakyCarts
	products  *flakyProducts
	orders    *flakyOrders
	publisher *mockPublisher
	cart      *CartService
	checkout  *CheckoutService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:     store,
		carts:     &flakyCarts{CartRepository: store},
		products:  &flakyProducts{ProductRepository: store},
		orders:    &flakyOrders{OrderRepository: store},
		publisher: &mockPublisher{},
	}
	log := zap.NewNop()
	f.cart = NewCartService(f.carts, f.products, cache.NoopCache{}, log)
	f.checkout = NewCheckoutService(f.carts, f.products, f.orders, cache.NoopCache{}, f.publisher, log)
	return f
}

func (f *fixture) addProduct(t *testing.T, id string, price float64, stock int) {
	t.Helper()
	require.NoError(t, f.store.CreateProduct(context.Background(), &domain.Product{
		ID:    id,
		Title: "Product " + id,
		Image: id + ".png",
		Price: price,
		Stock: stock,
	}))
}

func (f *fixture) stockOf(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

// storedCart reads the active cart straight from the store, bypassing the cache.
func (f *fixture) storedCart(t *testing.T, userID string) *domain.Cart {
	t.Helper()
	cart, err := f.store.GetActiveCart(context.Background(), userID)
	require.NoError(t, err)
	return cart
}
