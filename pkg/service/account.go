package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/mailer"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

// adminAccountID is the subject of admin tokens; the admin has no stored
// account.
const adminAccountID = "admin"

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type AccountService struct {
	accounts   repository.AccountStore
	tokens     *auth.Tokens
	notifier   Notifier
	composer   *mailer.Composer
	adminEmail string
	adminPass  string
	logger     *zap.Logger
}

func NewAccountService(
	accounts repository.AccountStore,
	tokens *auth.Tokens,
	notifier Notifier,
	composer *mailer.Composer,
	cfg *config.AuthConfig,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts:   accounts,
		tokens:     tokens,
		notifier:   notifier,
		composer:   composer,
		adminEmail: cfg.AdminEmail,
		adminPass:  cfg.AdminPassword,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a customer account and returns a session token.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (string, error) {
	const op = "account.Register"

	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return "", validationError(op, err)
	}

	_, err := s.accounts.GetAccountByEmail(ctx, input.Email)
	if err == nil {
		return "", apperr.Conflict(op, "User already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", apperr.Wrap(op, err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return "", apperr.Internal(op, err)
	}

	account := &models.Account{
		Name:         input.Name,
		Email:        input.Email,
		Password:     hash,
		CartData:     models.Cart{},
		WishlistData: []string{},
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return "", apperr.Conflict(op, "User already exists")
		}
		return "", apperr.Wrap(op, err)
	}

	token, err := s.tokens.Issue(account.ID, models.RoleCustomer)
	if err != nil {
		return "", apperr.Internal(op, err)
	}

	s.logger.Info("Account registered", zap.String("account_id", account.ID))
	if msg, err := s.composer.Welcome(account); err != nil {
		s.logger.Error("Welcome e-mail render failed", zap.Error(err))
	} else {
		s.notifier.Enqueue(msg)
	}
	return token, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "account.Login"

	account, err := s.accounts.GetAccountByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.Unauthorized(op, "Invalid credentials")
	}
	if err != nil {
		return "", apperr.Wrap(op, err)
	}
	if !auth.CheckPassword(account.Password, password) {
		return "", apperr.Unauthorized(op, "Invalid credentials")
	}

	token, err := s.tokens.Issue(account.ID, models.RoleCustomer)
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	return token, nil
}

// AdminLogin checks the configured admin credentials.
func (s *AccountService) AdminLogin(ctx context.Context, email, password string) (string, error) {
	const op = "account.AdminLogin"

	if s.adminEmail == "" || s.adminPass == "" {
		return "", apperr.Unauthorized(op, "Invalid credentials")
	}
	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(normalizeEmail(s.adminEmail))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPass)) == 1
	if !emailOK || !passOK {
		return "", apperr.Unauthorized(op, "Invalid credentials")
	}

	token, err := s.tokens.Issue(adminAccountID, models.RoleAdmin)
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	return token, nil
}

// ForgotPassword e-mails a reset link. Unknown addresses succeed silently so
// the endpoint does not reveal which e-mails have accounts.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	const op = "account.ForgotPassword"

	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return apperr.Validation(op, "email must be a valid email")
	}

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Debug("Password reset for unknown email")
		return nil
	}
	if err != nil {
		return apperr.Wrap(op, err)
	}

	token, err := s.tokens.IssueReset(account.ID)
	if err != nil {
		return apperr.Internal(op, err)
	}
	msg, err := s.composer.PasswordReset(account.Email, token, s.tokens.ResetTTL())
	if err != nil {
		return apperr.Internal(op, err)
	}
	s.notifier.Enqueue(msg)
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	const op = "account.ResetPassword"

	claims, err := s.tokens.VerifyReset(token)
	if err != nil {
		return apperr.Unauthorized(op, "Reset link is invalid or has expired")
	}
	if err := validate.Var(password, "min=8"); err != nil {
		return apperr.Validation(op, "password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if err := s.accounts.UpdatePassword(ctx, claims.AccountID, hash); err != nil {
		return apperr.Wrap(op, err)
	}
	s.logger.Info("Password reset", zap.String("account_id", claims.AccountID))
	return nil
}
