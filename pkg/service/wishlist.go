package service

import (
	"context"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/repository"
)

type WishlistService struct {
	accounts repository.AccountStore
}

func NewWishlistService(accounts repository.AccountStore) *WishlistService {
	return &WishlistService{accounts: accounts}
}

// Add puts productID on the wishlist once; adding it again is a no-op.
func (s *WishlistService) Add(ctx context.Context, accountID, productID string) ([]string, error) {
	const op = "wishlist.Add"

	if err := checkWishlistItem(op, accountID, productID); err != nil {
		return nil, err
	}
	list, err := s.accounts.AddToWishlist(ctx, accountID, productID)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return list, nil
}

func (s *WishlistService) Remove(ctx context.Context, accountID, productID string) ([]string, error) {
	const op = "wishlist.Remove"

	if err := checkWishlistItem(op, accountID, productID); err != nil {
		return nil, err
	}
	list, err := s.accounts.RemoveFromWishlist(ctx, accountID, productID)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return list, nil
}

func (s *WishlistService) Get(ctx context.Context, accountID string) ([]string, error) {
	const op = "wishlist.Get"

	if err := requireAccount(op, accountID); err != nil {
		return nil, err
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	if account.WishlistData == nil {
		return []string{}, nil
	}
	return account.WishlistData, nil
}

func checkWishlistItem(op, accountID, productID string) error {
	if err := requireAccount(op, accountID); err != nil {
		return err
	}
	if !validKey(productID) {
		return apperr.Validation(op, "item id is required")
	}
	return nil
}
