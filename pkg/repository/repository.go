package repository

import (
	"context"
	"errors"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
)

var (
	ErrNotFound  = apperr.ErrNotFound
	ErrConflict  = apperr.ErrConflict
	ErrCacheMiss = errors.New("cache miss")
)

type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// AddCartItem atomically adds quantity (> 0) to cartData[productID][size]
	// and returns the resulting cart.
	AddCartItem(ctx context.Context, id, productID, size string, quantity int) (models.Cart, error)
	ReplaceCart(ctx context.Context, id string, cart models.Cart) error
	AddToWishlist(ctx context.Context, id, productID string) ([]string, error)
	RemoveFromWishlist(ctx context.Context, id, productID string) ([]string, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	FindOrderByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error)
	// ListOrdersByUser and ListOrders return newest first.
	ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	UpdateOrderPayment(ctx context.Context, id string, update PaymentUpdate) error
}

// PaymentUpdate is applied to an order when its gateway payment settles.
type PaymentUpdate struct {
	PaymentStatus models.PaymentStatus
	Paid          bool
	// Status, when set, also moves the fulfillment status.
	Status models.OrderStatus
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, reference string) (*models.Payment, error)
	// SettlePayment moves a pending payment to status. It reports false when
	// the payment was no longer pending, so only one caller settles it.
	SettlePayment(ctx context.Context, reference string, status models.PaymentStatus, gatewayStatus string) (bool, error)
	ListPendingPayments(ctx context.Context, createdBefore time.Time) ([]*models.Payment, error)
}

type AuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	// GetAuditLogs returns entries for entityID newest first; limit <= 0
	// returns all of them.
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*models.AuditLog, error)
}

type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// Transactor runs fn so that the store writes it performs commit or abort
// together when the backend supports it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
