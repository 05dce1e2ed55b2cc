package service

import (
	"context"
	"errors"
	"io"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/storage"
	"go.uber.org/zap"
)

const maxProductImages = 4

type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type AddProductInput struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"gt=0"`
	Category    string   `json:"category" validate:"required"`
	SubCategory string   `json:"subCategory"`
	Sizes       []string `json:"sizes" validate:"required,min=1,dive,required"`
	Bestseller  bool     `json:"bestseller"`
	NewArrival  bool     `json:"newArrival"`

	Images []ImageUpload `json:"-"`
}

// ProductService manages the catalog. Reads go through the cache when one
// is configured.
type ProductService struct {
	products repository.ProductStore
	cache    repository.ProductCache
	images   storage.ImageStore
	logger   *zap.Logger
}

// NewProductService accepts a nil cache.
func NewProductService(products repository.ProductStore, cache repository.ProductCache, images storage.ImageStore, logger *zap.Logger) *ProductService {
	return &ProductService{
		products: products,
		cache:    cache,
		images:   images,
		logger:   logger,
	}
}

func (s *ProductService) AddProduct(ctx context.Context, input AddProductInput) (*models.Product, error) {
	const op = "product.AddProduct"

	if err := validate.Struct(input); err != nil {
		return nil, validationError(op, err)
	}
	if len(input.Images) > maxProductImages {
		return nil, apperr.Validation(op, "at most 4 images are allowed")
	}

	urls := make([]string, 0, len(input.Images))
	for _, img := range input.Images {
		url, err := s.images.Upload(ctx, img.Filename, img.ContentType, img.Body)
		if err != nil {
			return nil, apperr.Internal(op, err)
		}
		urls = append(urls, url)
	}

	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		SubCategory: input.SubCategory,
		Images:      urls,
		Sizes:       input.Sizes,
		Bestseller:  input.Bestseller,
		NewArrival:  input.NewArrival,
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, apperr.Wrap(op, err)
	}

	s.logger.Info("Product added", zap.String("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

func (s *ProductService) RemoveProduct(ctx context.Context, id string) error {
	const op = "product.RemoveProduct"

	if id == "" {
		return apperr.Validation(op, "product id is required")
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return apperr.Wrap(op, err)
	}
	if s.cache != nil {
		if err := s.cache.DeleteProduct(ctx, id); err != nil {
			s.logger.Warn("Failed to evict product from cache", zap.String("product_id", id), zap.Error(err))
		}
	}
	s.logger.Info("Product removed", zap.String("product_id", id))
	return nil
}

func (s *ProductService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Wrap("product.ListProducts", err)
	}
	return products, nil
}

// GetProduct reads through the cache. Cache errors fall back to the store.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	const op = "product.GetProduct"

	if id == "" {
		return nil, apperr.Validation(op, "product id is required")
	}

	if s.cache != nil {
		product, err := s.cache.GetProduct(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("Product cache read failed", zap.String("product_id", id), zap.Error(err))
		}
	}

	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, product); err != nil {
			s.logger.Warn("Product cache write failed", zap.String("product_id", id), zap.Error(err))
		}
	}
	return product, nil
}
