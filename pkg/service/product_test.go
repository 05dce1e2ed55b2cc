package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mapCache struct {
	mu       sync.Mutex
	products map[string]*models.Product
	hits     int
	getErr   error
}

func newMapCache() *mapCache {
	return &mapCache{products: make(map[string]*models.Product)}
}

func (c *mapCache) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	p, ok := c.products[id]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	c.hits++
	cp := *p
	return &cp, nil
}

func (c *mapCache) SetProduct(ctx context.Context, product *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *product
	c.products[product.ID] = &cp
	return nil
}

func (c *mapCache) DeleteProduct(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
	return nil
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.products)
}

func TestAddProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product, err := env.products.AddProduct(ctx, AddProductInput{
		Name:     "Linen Shirt",
		Price:    50,
		Category: "Men",
		Sizes:    []string{"M", "L"},
		Images: []ImageUpload{
			{Filename: "front.jpg", ContentType: "image/jpeg", Body: strings.NewReader("a")},
			{Filename: "back.jpg", ContentType: "image/jpeg", Body: strings.NewReader("b")},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Len(t, product.Images, 2)
	assert.True(t, strings.HasPrefix(product.Images[0], "http://cdn.example/products/"))
	assert.Equal(t, 2, env.images.Len())

	list, err := env.products.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAddProduct_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	valid := AddProductInput{Name: "Shirt", Price: 10, Category: "Men", Sizes: []string{"M"}}

	in := valid
	in.Price = 0
	_, err := env.products.AddProduct(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	in = valid
	in.Sizes = nil
	_, err = env.products.AddProduct(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	in = valid
	in.Name = ""
	_, err = env.products.AddProduct(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.Message(err), "name is required")

	in = valid
	for i := 0; i < 5; i++ {
		in.Images = append(in.Images, ImageUpload{Filename: "x.jpg", Body: strings.NewReader("x")})
	}
	_, err = env.products.AddProduct(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, env.images.Len())
}

func TestGetProduct_ReadThrough(t *testing.T) {
	env := newTestEnv(t)
	env.product(t, "p1", 50, "M")
	cache := newMapCache()
	svc := NewProductService(env.store, cache, env.images, zaptest.NewLogger(t))
	ctx := context.Background()

	p, err := svc.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Product p1", p.Name)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 0, cache.hits)

	_, err = svc.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	require.NoError(t, svc.RemoveProduct(ctx, "p1"))
	assert.Equal(t, 0, cache.Len())
	_, err = svc.GetProduct(ctx, "p1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetProduct_CacheErrorFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.product(t, "p1", 50, "M")
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	svc := NewProductService(env.store, cache, env.images, zaptest.NewLogger(t))

	p, err := svc.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestRemoveProduct_Missing(t *testing.T) {
	env := newTestEnv(t)
	err := env.products.RemoveProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
