// Package reminder e-mails account holders who leave items in their cart.
package reminder

import (
	"context"
	"sort"
	"time"

	"github.com/example/storefront/pkg/mailer"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/scheduler"
	"go.uber.org/zap"
)

// Service keeps at most one pending reminder per account. Every cart change
// re-arms it, so the reminder fires delay after the last change.
type Service struct {
	scheduler scheduler.Scheduler
	accounts  repository.AccountStore
	products  repository.ProductStore
	mail      mailer.Sender
	composer  *mailer.Composer
	delay     time.Duration
	logger    *zap.Logger
}

func New(
	sched scheduler.Scheduler,
	accounts repository.AccountStore,
	products repository.ProductStore,
	mail mailer.Sender,
	composer *mailer.Composer,
	delay time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		scheduler: sched,
		accounts:  accounts,
		products:  products,
		mail:      mail,
		composer:  composer,
		delay:     delay,
		logger:    logger,
	}
}

// Arm replaces any pending reminder for accountID with a new one due after
// the configured delay.
func (s *Service) Arm(ctx context.Context, accountID string) error {
	return s.scheduler.Schedule(ctx, accountID, s.delay)
}

func (s *Service) Disarm(ctx context.Context, accountID string) error {
	return s.scheduler.Cancel(ctx, accountID)
}

// Fire sends the reminder if the cart still has items. It is the scheduler
// handler: failures are logged and dropped.
func (s *Service) Fire(ctx context.Context, accountID string) {
	logger := s.logger.With(zap.String("account_id", accountID))

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		logger.Error("Cart reminder skipped, account lookup failed", zap.Error(err))
		return
	}
	if account.CartData.IsEmpty() {
		logger.Debug("Cart reminder skipped, cart is empty")
		return
	}

	msg, err := s.composer.CartReminder(account, s.lines(ctx, account.CartData))
	if err != nil {
		logger.Error("Cart reminder render failed", zap.Error(err))
		return
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		logger.Error("Cart reminder not delivered", zap.Error(err))
		return
	}
	logger.Info("Cart reminder sent", zap.Int("items", account.CartData.Items()))
}

// lines resolves product names for the e-mail. Products that can no longer
// be found are left out; the item count still includes them.
func (s *Service) lines(ctx context.Context, cart models.Cart) []mailer.CartLine {
	var lines []mailer.CartLine
	for productID, sizes := range cart {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			continue
		}
		for size, qty := range sizes {
			lines = append(lines, mailer.CartLine{
				Name:     product.Name,
				Size:     size,
				Quantity: qty,
				Price:    product.Price,
			})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Name != lines[j].Name {
			return lines[i].Name < lines[j].Name
		}
		return lines[i].Size < lines[j].Size
	})
	return lines
}
