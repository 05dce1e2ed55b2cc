package service

import (
	"context"
	"errors"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway statuses recorded for outcomes the gateway did not report.
const (
	gatewayStatusExpired  = "expired"
	gatewayStatusNoOrder  = "order_not_created"
	gatewayStatusMismatch = "amount_mismatch"
)

type GatewayCheckout struct {
	Order            *models.Order
	Reference        string
	AuthorizationURL string
}

// PaymentService places gateway-paid orders and settles them once the
// gateway reports an outcome.
type PaymentService struct {
	orders         *OrderService
	payments       repository.PaymentStore
	gateway        payment.Gateway
	currency       string
	pendingTimeout time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

func NewPaymentService(
	orders *OrderService,
	payments repository.PaymentStore,
	gateway payment.Gateway,
	currency string,
	pendingTimeout time.Duration,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		orders:         orders,
		payments:       payments,
		gateway:        gateway,
		currency:       currency,
		pendingTimeout: pendingTimeout,
		now:            time.Now,
		logger:         logger,
	}
}

// PlaceGatewayOrder creates an order awaiting payment and returns the URL
// the customer pays at. The cart is kept until the payment succeeds.
func (s *PaymentService) PlaceGatewayOrder(ctx context.Context, input PlaceOrderInput) (*GatewayCheckout, error) {
	const op = "payment.PlaceGatewayOrder"

	if err := requireAccount(op, input.AccountID); err != nil {
		return nil, err
	}
	existing, err := s.orders.findReplay(ctx, op, input)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.checkoutFor(ctx, op, existing)
	}

	account, order, err := s.orders.prepare(ctx, op, input, models.PaymentGateway)
	if err != nil {
		return nil, err
	}

	reference := uuid.NewString()
	auth, err := s.gateway.Initialize(ctx, payment.InitializeRequest{
		Reference: reference,
		Email:     account.Email,
		Amount:    order.Amount,
		Currency:  s.currency,
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	order.PaymentReference = reference
	pending := &models.Payment{
		Reference:        reference,
		OrderID:          order.ID,
		AccountID:        account.ID,
		Amount:           order.Amount,
		Currency:         s.currency,
		Status:           models.PaymentPending,
		AuthorizationURL: auth.AuthorizationURL,
	}
	// Reconcile only scans the ledger; the row must exist before the order.
	if err := s.payments.CreatePayment(ctx, pending); err != nil {
		return nil, apperr.Wrap(op, err)
	}

	if err := s.orders.orders.CreateOrder(ctx, order); err != nil {
		s.abandon(ctx, reference)
		if errors.Is(err, repository.ErrConflict) && input.IdempotencyKey != "" {
			if existing, ferr := s.orders.findReplay(ctx, op, input); ferr == nil && existing != nil {
				return s.checkoutFor(ctx, op, existing)
			}
		}
		return nil, apperr.Wrap(op, err)
	}

	s.logger.Info("Gateway order created",
		zap.String("order_id", order.ID),
		zap.String("reference", reference),
		zap.Float64("amount", order.Amount))
	s.orders.record(ctx, "order_placed", order.ID, map[string]any{
		"account_id":     account.ID,
		"amount":         order.Amount,
		"payment_method": order.PaymentMethod,
		"reference":      reference,
	})

	return &GatewayCheckout{
		Order:            order,
		Reference:        reference,
		AuthorizationURL: auth.AuthorizationURL,
	}, nil
}

// abandon fails a ledger row whose order was never stored.
func (s *PaymentService) abandon(ctx context.Context, reference string) {
	if _, err := s.payments.SettlePayment(ctx, reference, models.PaymentFailed, gatewayStatusNoOrder); err != nil {
		s.logger.Error("Failed to abandon payment without order", zap.String("reference", reference), zap.Error(err))
	}
}

func (s *PaymentService) checkoutFor(ctx context.Context, op string, order *models.Order) (*GatewayCheckout, error) {
	if order.PaymentMethod != models.PaymentGateway {
		return nil, apperr.Conflict(op, "idempotency key already used for another order")
	}
	p, err := s.payments.GetPayment(ctx, order.PaymentReference)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return &GatewayCheckout{
		Order:            order,
		Reference:        p.Reference,
		AuthorizationURL: p.AuthorizationURL,
	}, nil
}

// Verify asks the gateway for the outcome of reference and settles the
// payment. A payment that is already settled is returned as stored. A
// reference belonging to another account is reported as not found.
func (s *PaymentService) Verify(ctx context.Context, accountID, reference string) (*models.Payment, error) {
	const op = "payment.Verify"

	if err := requireAccount(op, accountID); err != nil {
		return nil, err
	}
	if reference == "" {
		return nil, apperr.Validation(op, "reference is required")
	}
	p, err := s.payments.GetPayment(ctx, reference)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	if p.AccountID != accountID {
		return nil, apperr.NotFound(op, "payment not found")
	}
	if p.Settled() {
		return p, nil
	}

	v, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	status := v.Outcome()
	gatewayStatus := v.Status
	if status == models.PaymentCompleted && !sameAmount(v.Amount, p.Amount) {
		s.logger.Warn("Gateway amount does not match ledger",
			zap.String("reference", reference),
			zap.Float64("ledger", p.Amount),
			zap.Float64("gateway", v.Amount))
		status, gatewayStatus = models.PaymentFailed, gatewayStatusMismatch
	}
	if status == models.PaymentPending {
		return p, nil
	}

	return s.settle(ctx, op, p, status, gatewayStatus)
}

// settle moves p out of pending and applies the result to its order. Only
// the caller whose conditional update wins applies side effects.
func (s *PaymentService) settle(ctx context.Context, op string, p *models.Payment, status models.PaymentStatus, gatewayStatus string) (*models.Payment, error) {
	won, err := s.payments.SettlePayment(ctx, p.Reference, status, gatewayStatus)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	if !won {
		stored, err := s.payments.GetPayment(ctx, p.Reference)
		if err != nil {
			return nil, apperr.Wrap(op, err)
		}
		return stored, nil
	}

	update := repository.PaymentUpdate{PaymentStatus: status}
	if status == models.PaymentCompleted {
		update.Paid = true
	} else {
		update.Status = models.StatusCancelled
	}
	if err := s.orders.orders.UpdateOrderPayment(ctx, p.OrderID, update); err != nil {
		return nil, apperr.Wrap(op, err)
	}

	s.logger.Info("Payment settled",
		zap.String("reference", p.Reference),
		zap.String("order_id", p.OrderID),
		zap.String("status", string(status)),
		zap.String("gateway_status", gatewayStatus))
	s.orders.record(ctx, "payment_settled", p.OrderID, map[string]any{
		"reference":      p.Reference,
		"status":         status,
		"gateway_status": gatewayStatus,
	})

	if status == models.PaymentCompleted {
		s.completeCheckout(ctx, p)
	}

	p.Status = status
	p.GatewayStatus = gatewayStatus
	return p, nil
}

// completeCheckout empties the cart and sends the confirmation once a
// gateway order is paid. The payment is already settled, so failures are
// logged only.
func (s *PaymentService) completeCheckout(ctx context.Context, p *models.Payment) {
	logger := s.logger.With(zap.String("order_id", p.OrderID), zap.String("account_id", p.AccountID))

	if err := s.orders.accounts.ReplaceCart(ctx, p.AccountID, models.Cart{}); err != nil {
		logger.Error("Failed to clear cart after payment", zap.Error(err))
	}
	account, err := s.orders.accounts.GetAccount(ctx, p.AccountID)
	if err != nil {
		logger.Error("Failed to load account after payment", zap.Error(err))
		return
	}
	order, err := s.orders.orders.GetOrder(ctx, p.OrderID)
	if err != nil {
		logger.Error("Failed to load order after payment", zap.Error(err))
		return
	}
	s.orders.afterCheckout(ctx, account, order)
}

// Reconcile verifies payments pending longer than the pending timeout.
// Payments the gateway still reports as unfinished are expired; payments
// the gateway could not be asked about stay pending for the next run. It
// returns the number of payments settled.
func (s *PaymentService) Reconcile(ctx context.Context) (int, error) {
	const op = "payment.Reconcile"

	stale, err := s.payments.ListPendingPayments(ctx, s.now().Add(-s.pendingTimeout))
	if err != nil {
		return 0, apperr.Wrap(op, err)
	}

	settled := 0
	for _, p := range stale {
		if err := ctx.Err(); err != nil {
			return settled, err
		}

		v, err := s.gateway.Verify(ctx, p.Reference)
		if err != nil {
			s.logger.Warn("Reconcile verify failed, keeping payment pending",
				zap.String("reference", p.Reference), zap.Error(err))
			continue
		}

		status, gatewayStatus := models.PaymentFailed, gatewayStatusExpired
		switch v.Outcome() {
		case models.PaymentCompleted:
			if sameAmount(v.Amount, p.Amount) {
				status, gatewayStatus = models.PaymentCompleted, v.Status
			} else {
				gatewayStatus = gatewayStatusMismatch
			}
		case models.PaymentFailed:
			gatewayStatus = v.Status
		}

		result, err := s.settle(ctx, op, p, status, gatewayStatus)
		if err != nil {
			s.logger.Error("Reconcile settle failed", zap.String("reference", p.Reference), zap.Error(err))
			continue
		}
		if result.Status == status {
			settled++
		}
	}

	if settled > 0 {
		s.logger.Info("Payments reconciled", zap.Int("settled", settled), zap.Int("stale", len(stale)))
	}
	return settled, nil
}

// Run reconciles every interval until ctx is done.
func (s *PaymentService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Reconcile(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Payment reconciliation failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func sameAmount(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}
