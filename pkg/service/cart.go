package service

import (
	"context"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

type CartService struct {
	accounts  repository.AccountStore
	reminders Reminders
	logger    *zap.Logger
}

func NewCartService(accounts repository.AccountStore, reminders Reminders, logger *zap.Logger) *CartService {
	return &CartService{
		accounts:  accounts,
		reminders: reminders,
		logger:    logger,
	}
}

// AddItem increments the quantity of productID in size by one and re-arms
// the cart reminder.
func (s *CartService) AddItem(ctx context.Context, accountID, productID, size string) (models.Cart, error) {
	const op = "cart.AddItem"

	if err := requireAccount(op, accountID); err != nil {
		return nil, err
	}
	if err := checkItem(op, productID, size); err != nil {
		return nil, err
	}

	cart, err := s.accounts.AddCartItem(ctx, accountID, productID, size, 1)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	s.arm(ctx, accountID)
	return cart, nil
}

// SetItemQuantity stores quantity for productID/size; zero or less removes
// the entry. The reminder is re-armed while the cart has items and cancelled
// once it is empty.
func (s *CartService) SetItemQuantity(ctx context.Context, accountID, productID, size string, quantity int) (models.Cart, error) {
	const op = "cart.SetItemQuantity"

	if err := requireAccount(op, accountID); err != nil {
		return nil, err
	}
	if err := checkItem(op, productID, size); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	cart := account.CartData.Clone()
	cart.Set(productID, size, quantity)
	if err := s.accounts.ReplaceCart(ctx, accountID, cart); err != nil {
		return nil, apperr.Wrap(op, err)
	}

	if cart.IsEmpty() {
		s.disarm(ctx, accountID)
	} else {
		s.arm(ctx, accountID)
	}
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, accountID string) (models.Cart, error) {
	const op = "cart.GetCart"

	if err := requireAccount(op, accountID); err != nil {
		return nil, err
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	if account.CartData == nil {
		return models.Cart{}, nil
	}
	return account.CartData, nil
}

func checkItem(op, productID, size string) error {
	if productID == "" || size == "" {
		return apperr.Validation(op, "item id and size are required")
	}
	if !validKey(productID) || !validKey(size) {
		return apperr.Validation(op, "invalid item id or size")
	}
	return nil
}

// The cart write has already succeeded when these run, so a scheduler
// failure only costs the reminder.
func (s *CartService) arm(ctx context.Context, accountID string) {
	if err := s.reminders.Arm(ctx, accountID); err != nil {
		s.logger.Warn("Failed to arm cart reminder", zap.String("account_id", accountID), zap.Error(err))
	}
}

func (s *CartService) disarm(ctx context.Context, accountID string) {
	if err := s.reminders.Disarm(ctx, accountID); err != nil {
		s.logger.Warn("Failed to cancel cart reminder", zap.String("account_id", accountID), zap.Error(err))
	}
}
