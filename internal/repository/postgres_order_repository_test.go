package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupOrdersDB(t *testing.T) (*PostgresOrderRepository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewPostgresOrderRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newTestOrder(userID string, total float64, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:     uuid.New(),
		UserID: userID,
		OrderItems: []domain.OrderItem{
			{ProductID: "p1", ProductTitle: "Laptop", ProductImage: "laptop.png", UnitPrice: total, Quantity: 1},
		},
		Total:     total,
		Address:   "221B Baker Street",
		Status:    domain.OrderStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestCreateOrder_Success(t *testing.T) {
	repo, cleanup := setupOrdersDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder("user-123", 99.99, time.Now().UTC())
	shipping := 4.5
	order.Shipping = &shipping

	err := repo.CreateOrder(ctx, order)
	require.NoError(t, err)

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)
	assert.Equal(t, order.UserID, fetched.UserID)
	assert.Equal(t, order.Total, fetched.Total)
	assert.Equal(t, order.Address, fetched.Address)
	assert.Equal(t, domain.OrderStatusPending, fetched.Status)
	require.NotNil(t, fetched.Shipping)
	assert.Equal(t, 4.5, *fetched.Shipping)
	assert.Nil(t, fetched.Tax)
	require.Len(t, fetched.OrderItems, 1)
	assert.Equal(t, "Laptop", fetched.OrderItems[0].ProductTitle)
	assert.Equal(t, "laptop.png", fetched.OrderItems[0].ProductImage)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo, cleanup := setupOrdersDB(t)
	defer cleanup()

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrdersByUserID(t *testing.T) {
	repo, cleanup := setupOrdersDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user-list-test"
	now := time.Now().UTC()

	order1 := newTestOrder(userID, 10, now.Add(-time.Minute))
	require.NoError(t, repo.CreateOrder(ctx, order1))
	order2 := newTestOrder(userID, 20, now)
	require.NoError(t, repo.CreateOrder(ctx, order2))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("someone-else", 30, now)))

	orders, err := repo.ListOrdersByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	// newest first
	assert.Equal(t, order2.ID, orders[0].ID)
	assert.Equal(t, order1.ID, orders[1].ID)
}

func TestDeleteOrder(t *testing.T) {
	repo, cleanup := setupOrdersDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder("user-123", 10, time.Now().UTC())
	require.NoError(t, repo.CreateOrder(ctx, order))

	require.NoError(t, repo.DeleteOrder(ctx, order.ID))
	_, err := repo.GetOrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.ErrorIs(t, repo.DeleteOrder(ctx, order.ID), ErrOrderNotFound)
}
