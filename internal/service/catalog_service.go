package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxPageSize      = 100
	placeholderImage = "https://via.placeholder.com/150"
)

type ProductInput struct {
	Title string  `json:"title"`
	Image string  `json:"image"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type CatalogService struct {
	products repository.ProductRepository
	log      *zap.Logger
}

func NewCatalogService(products repository.ProductRepository, log *zap.Logger) *CatalogService {
	return &CatalogService{products: products, log: log}
}

func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, validationError("limit and offset must not be negative")
	}
	if filter.Limit > maxPageSize {
		return nil, validationError("limit must not exceed %d", maxPageSize)
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, validationError("minPrice must not exceed maxPrice")
	}
	filter.Title = strings.TrimSpace(filter.Title)

	products, err := s.products.FindByFilter(ctx, filter)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("list products failed", zap.Error(err))
		return nil, internalError(err)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, notFoundError("product not found")
	}
	if err != nil {
		logger.WithContext(ctx, s.log).Error("get product failed", zap.String("product_id", id), zap.Error(err))
		return nil, internalError(err)
	}
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := validateProduct(&in); err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:    uuid.NewString(),
		Title: in.Title,
		Image: in.Image,
		Price: in.Price,
		Stock: in.Stock,
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		logger.WithContext(ctx, s.log).Error("create product failed", zap.Error(err))
		return nil, internalError(err)
	}
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	if err := validateProduct(&in); err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:    id,
		Title: in.Title,
		Image: in.Image,
		Price: in.Price,
		Stock: in.Stock,
	}
	err := s.products.UpdateProduct(ctx, product)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, notFoundError("product not found")
	}
	if err != nil {
		logger.WithContext(ctx, s.log).Error("update product failed", zap.String("product_id", id), zap.Error(err))
		return nil, internalError(err)
	}
	return product, nil
}

// DeleteProduct removes a product from the catalog. Cart lines and orders
// that reference it keep their snapshots.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	err := s.products.DeleteProduct(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return notFoundError("product not found")
	}
	if err != nil {
		logger.WithContext(ctx, s.log).Error("delete product failed", zap.String("product_id", id), zap.Error(err))
		return internalError(err)
	}
	return nil
}

// Seed inserts the starter catalog when no products exist. It reports how
// many products were inserted.
func (s *CatalogService) Seed(ctx context.Context) (int, error) {
	count, err := s.products.CountProducts(ctx)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("count products failed", zap.Error(err))
		return 0, internalError(err)
	}
	if count > 0 {
		return 0, nil
	}

	seed := []ProductInput{
		{Title: "Product 1", Image: placeholderImage, Price: 100, Stock: 10},
		{Title: "Product 2", Image: placeholderImage, Price: 200, Stock: 20},
		{Title: "Product 3", Image: placeholderImage, Price: 300, Stock: 30},
	}
	for i, in := range seed {
		if _, err := s.CreateProduct(ctx, in); err != nil {
			return i, err
		}
	}

	logger.WithContext(ctx, s.log).Info("seeded product catalog", zap.Int("products", len(seed)))
	return len(seed), nil
}

func validateProduct(in *ProductInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return validationError("title is required")
	}
	if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) || in.Price < 0 {
		return validationError("price must be a non-negative number")
	}
	if in.Stock < 0 {
		return validationError("stock must not be negative")
	}
	if in.Image == "" {
		in.Image = placeholderImage
	}
	return nil
}
