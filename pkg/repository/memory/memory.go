// Package memory implements every repository interface in process memory.
// It backs the "memory" storage driver and the service tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

type Store struct {
	mu        sync.RWMutex
	accounts  map[string]*models.Account
	products  map[string]*models.Product
	orders    map[string]*models.Order
	payments  map[string]*models.Payment
	auditLogs []*models.AuditLog
}

var (
	_ repository.AccountStore = (*Store)(nil)
	_ repository.ProductStore = (*Store)(nil)
	_ repository.OrderStore   = (*Store)(nil)
	_ repository.PaymentStore = (*Store)(nil)
	_ repository.AuditLogger  = (*Store)(nil)
	_ repository.Transactor   = (*Store)(nil)
)

func New() *Store {
	return &Store{
		accounts: make(map[string]*models.Account),
		products: make(map[string]*models.Product),
		orders:   make(map[string]*models.Order),
		payments: make(map[string]*models.Payment),
	}
}

// WithTransaction runs fn directly; each store call is atomic on its own.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func copyAccount(a *models.Account) *models.Account {
	cp := *a
	cp.CartData = a.CartData.Clone()
	cp.WishlistData = append([]string{}, a.WishlistData...)
	return &cp
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp
}

func copyProduct(p *models.Product) *models.Product {
	cp := *p
	cp.Images = append([]string(nil), p.Images...)
	cp.Sizes = append([]string(nil), p.Sizes...)
	return &cp
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, repository.ErrNotFound)
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == account.Email {
			return fmt.Errorf("account %s: %w", account.Email, repository.ErrConflict)
		}
	}
	if account.ID == "" {
		account.ID = models.NewID()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, notFound("account", id)
	}
	return copyAccount(a), nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, notFound("account", email)
}

func (s *Store) AddCartItem(ctx context.Context, id, productID, size string, quantity int) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, notFound("account", id)
	}
	if a.CartData == nil {
		a.CartData = models.Cart{}
	}
	a.CartData.Add(productID, size, quantity)
	return a.CartData.Clone(), nil
}

func (s *Store) ReplaceCart(ctx context.Context, id string, cart models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return notFound("account", id)
	}
	a.CartData = cart.Clone()
	return nil
}

func (s *Store) AddToWishlist(ctx context.Context, id, productID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, notFound("account", id)
	}
	if !slices.Contains(a.WishlistData, productID) {
		a.WishlistData = append(a.WishlistData, productID)
	}
	return append([]string{}, a.WishlistData...), nil
}

func (s *Store) RemoveFromWishlist(ctx context.Context, id, productID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, notFound("account", id)
	}
	a.WishlistData = slices.DeleteFunc(a.WishlistData, func(p string) bool { return p == productID })
	return append([]string{}, a.WishlistData...), nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return notFound("account", id)
	}
	a.Password = hash
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = models.NewID()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	s.products[product.ID] = copyProduct(product)
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	return copyProduct(p), nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return notFound("product", id)
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.IdempotencyKey != "" {
		for _, o := range s.orders {
			if o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
				return fmt.Errorf("order %s: %w", order.IdempotencyKey, repository.ErrConflict)
			}
		}
	}
	if order.ID == "" {
		order.ID = models.NewID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	return copyOrder(o), nil
}

func (s *Store) FindOrderByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return copyOrder(o), nil
		}
	}
	return nil, notFound("order", key)
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return s.listOrders(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (s *Store) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return s.listOrders(func(*models.Order) bool { return true }), nil
}

func (s *Store) listOrders(match func(*models.Order) bool) []*models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Order{}
	for _, o := range s.orders {
		if match(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return notFound("order", id)
	}
	o.Status = status
	return nil
}

func (s *Store) UpdateOrderPayment(ctx context.Context, id string, update repository.PaymentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return notFound("order", id)
	}
	o.PaymentStatus = update.PaymentStatus
	o.Payment = update.Paid
	if update.Status != "" {
		o.Status = update.Status
	}
	return nil
}

func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[payment.Reference]; ok {
		return fmt.Errorf("payment %s: %w", payment.Reference, repository.ErrConflict)
	}
	now := time.Now()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	cp := *payment
	s.payments[payment.Reference] = &cp
	return nil
}

func (s *Store) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[reference]
	if !ok {
		return nil, notFound("payment", reference)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SettlePayment(ctx context.Context, reference string, status models.PaymentStatus, gatewayStatus string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[reference]
	if !ok || p.Status != models.PaymentPending {
		return false, nil
	}
	p.Status = status
	p.GatewayStatus = gatewayStatus
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) ListPendingPayments(ctx context.Context, createdBefore time.Time) ([]*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Payment
	for _, p := range s.payments {
		if p.Status == models.PaymentPending && p.CreatedAt.Before(createdBefore) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == "" {
		log.ID = models.NewID()
	}
	log.CreatedAt = time.Now()
	cp := *log
	s.auditLogs = append(s.auditLogs, &cp)
	return nil
}

func (s *Store) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*models.AuditLog, error) {
	return s.auditTrail(entityID, limit), nil
}

// AuditLogs returns the recorded entries for entityID, newest first.
func (s *Store) AuditLogs(entityID string) []*models.AuditLog {
	return s.auditTrail(entityID, 0)
}

func (s *Store) auditTrail(entityID string, limit int64) []*models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.AuditLog{}
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		if limit > 0 && int64(len(out)) == limit {
			break
		}
		if s.auditLogs[i].EntityID == entityID {
			cp := *s.auditLogs[i]
			out = append(out, &cp)
		}
	}
	return out
}
