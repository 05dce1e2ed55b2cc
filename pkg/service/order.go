package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/mailer"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderItemInput is one line of the client's order. Name, price and image
// are looked up in the catalog; a client-supplied price is ignored.
type OrderItemInput struct {
	ProductID string  `json:"_id"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price,omitempty"`
}

type PlaceOrderInput struct {
	AccountID      string
	Items          []OrderItemInput
	Amount         float64
	Address        models.Address
	IdempotencyKey string
}

type OrderService struct {
	accounts  repository.AccountStore
	catalog   Catalog
	orders    repository.OrderStore
	audit     repository.AuditLogger
	tx        repository.Transactor
	reminders Reminders
	notifier  Notifier
	composer  *mailer.Composer
	fee       decimal.Decimal
	logger    *zap.Logger
}

type OrderDeps struct {
	Accounts  repository.AccountStore
	Catalog   Catalog
	Orders    repository.OrderStore
	Audit     repository.AuditLogger
	Tx        repository.Transactor
	Reminders Reminders
	Notifier  Notifier
	Composer  *mailer.Composer
}

func NewOrderService(deps OrderDeps, deliveryFee float64, logger *zap.Logger) *OrderService {
	return &OrderService{
		accounts:  deps.Accounts,
		catalog:   deps.Catalog,
		orders:    deps.Orders,
		audit:     deps.Audit,
		tx:        deps.Tx,
		reminders: deps.Reminders,
		notifier:  deps.Notifier,
		composer:  deps.Composer,
		fee:       decimal.NewFromFloat(deliveryFee),
		logger:    logger,
	}
}

// PlaceOrder records a cash on delivery order and empties the account's
// cart. With an idempotency key, a repeated call returns the order created
// by the first one and writes nothing.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	const op = "order.PlaceOrder"

	if err := requireAccount(op, input.AccountID); err != nil {
		return nil, err
	}
	if existing, err := s.findReplay(ctx, op, input); existing != nil || err != nil {
		return existing, err
	}

	account, order, err := s.prepare(ctx, op, input, models.PaymentCOD)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.orders.CreateOrder(ctx, order); err != nil {
			return err
		}
		return s.accounts.ReplaceCart(ctx, account.ID, models.Cart{})
	})
	if errors.Is(err, repository.ErrConflict) && input.IdempotencyKey != "" {
		// A concurrent call with the same key won the insert.
		return s.findReplay(ctx, op, input)
	}
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("account_id", account.ID),
		zap.Float64("amount", order.Amount),
		zap.Int("items", len(order.Items)))

	s.afterCheckout(ctx, account, order)
	s.record(ctx, "order_placed", order.ID, map[string]any{
		"account_id":     account.ID,
		"amount":         order.Amount,
		"payment_method": order.PaymentMethod,
	})
	return order, nil
}

// findReplay returns the order already stored under input's idempotency
// key, or nil when there is none.
func (s *OrderService) findReplay(ctx context.Context, op string, input PlaceOrderInput) (*models.Order, error) {
	if input.IdempotencyKey == "" {
		return nil, nil
	}
	existing, err := s.orders.FindOrderByIdempotencyKey(ctx, input.AccountID, input.IdempotencyKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	s.logger.Info("Order replayed for idempotency key",
		zap.String("order_id", existing.ID),
		zap.String("account_id", input.AccountID))
	return existing, nil
}

// prepare validates input and builds the order from catalog data.
func (s *OrderService) prepare(ctx context.Context, op string, input PlaceOrderInput, method models.PaymentMethod) (*models.Account, *models.Order, error) {
	if len(input.Items) == 0 {
		return nil, nil, apperr.Validation(op, "order has no items")
	}
	if input.Amount <= 0 {
		return nil, nil, apperr.Validation(op, "amount must be positive")
	}
	if err := validate.Struct(input.Address); err != nil {
		return nil, nil, validationError(op, err)
	}

	account, err := s.accounts.GetAccount(ctx, input.AccountID)
	if err != nil {
		return nil, nil, apperr.Wrap(op, err)
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	total := decimal.Zero
	for i, in := range input.Items {
		if in.ProductID == "" || in.Size == "" {
			return nil, nil, apperr.Validation(op, fmt.Sprintf("item %d: id and size are required", i))
		}
		if in.Quantity < 1 {
			return nil, nil, apperr.Validation(op, fmt.Sprintf("item %d: quantity must be at least 1", i))
		}

		product, err := s.catalog.GetProduct(ctx, in.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.NotFound(op, fmt.Sprintf("product %s not found", in.ProductID))
		}
		if err != nil {
			return nil, nil, apperr.Wrap(op, err)
		}
		if len(product.Sizes) > 0 && !product.HasSize(in.Size) {
			return nil, nil, apperr.Validation(op, fmt.Sprintf("size %s is not available for %s", in.Size, product.Name))
		}

		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  in.Quantity,
			Price:     product.Price,
			Size:      in.Size,
			Image:     product.Thumbnail(),
		})
		total = total.Add(decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(in.Quantity))))
	}

	expected := total.Add(s.fee).Round(2)
	if !decimal.NewFromFloat(input.Amount).Round(2).Equal(expected) {
		return nil, nil, apperr.Validation(op, fmt.Sprintf("amount %.2f does not match order total %s", input.Amount, expected.StringFixed(2)))
	}

	order := &models.Order{
		ID:             models.NewID(),
		UserID:         account.ID,
		Items:          items,
		Amount:         input.Amount,
		Address:        input.Address,
		PaymentMethod:  method,
		Payment:        false,
		PaymentStatus:  models.PaymentPending,
		Status:         models.StatusPacking,
		IdempotencyKey: input.IdempotencyKey,
	}
	return account, order, nil
}

// afterCheckout runs once the cart has been emptied for order.
func (s *OrderService) afterCheckout(ctx context.Context, account *models.Account, order *models.Order) {
	if err := s.reminders.Disarm(ctx, account.ID); err != nil {
		s.logger.Warn("Failed to cancel cart reminder", zap.String("account_id", account.ID), zap.Error(err))
	}

	msg, err := s.composer.OrderConfirmation(account.Email, order)
	if err != nil {
		s.logger.Error("Order confirmation render failed", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	s.notifier.Enqueue(msg)
}

func (s *OrderService) record(ctx context.Context, action, orderID string, data map[string]any) {
	err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		Service:  "order",
		Action:   action,
		EntityID: orderID,
		Data:     data,
	})
	if err != nil {
		s.logger.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}

func (s *OrderService) ListOrdersForAccount(ctx context.Context, accountID string) ([]*models.Order, error) {
	const op = "order.ListOrdersForAccount"

	if err := requireAccount(op, accountID); err != nil {
		return nil, err
	}
	orders, err := s.orders.ListOrdersByUser(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return orders, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context) ([]*models.Order, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, apperr.Wrap("order.ListAllOrders", err)
	}
	return orders, nil
}

// UpdateStatus sets the fulfillment status. Any listed status may follow
// any other.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	const op = "order.UpdateStatus"

	if orderID == "" {
		return apperr.Validation(op, "order id is required")
	}
	if !status.Valid() {
		return apperr.Validation(op, fmt.Sprintf("unknown status %q", status))
	}
	if err := s.orders.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return apperr.Wrap(op, err)
	}

	s.logger.Info("Order status updated", zap.String("order_id", orderID), zap.String("status", string(status)))
	s.record(ctx, "status_changed", orderID, map[string]any{"status": status})
	return nil
}

const historyLimit = 100

// History returns the audit trail of an order, newest first.
func (s *OrderService) History(ctx context.Context, orderID string) ([]*models.AuditLog, error) {
	const op = "order.History"

	if orderID == "" {
		return nil, apperr.Validation(op, "order id is required")
	}
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, apperr.Wrap(op, err)
	}
	logs, err := s.audit.GetAuditLogs(ctx, orderID, historyLimit)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return logs, nil
}
