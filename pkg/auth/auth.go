// Package auth issues and verifies signed session tokens and hashes
// passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	PurposeSession = "session"
	PurposeReset   = "reset"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongPurpose = errors.New("token issued for another purpose")
)

type Claims struct {
	AccountID string `json:"id"`
	Role      string `json:"role"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

type Tokens struct {
	key      []byte
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func NewTokens(cfg *config.AuthConfig) *Tokens {
	return &Tokens{
		key:      []byte(cfg.JWTSecret),
		ttl:      cfg.TokenTTL,
		resetTTL: cfg.ResetTokenTTL,
		now:      time.Now,
	}
}

// ResetTTL is how long a password reset token stays valid.
func (t *Tokens) ResetTTL() time.Duration {
	return t.resetTTL
}

func (t *Tokens) Issue(accountID, role string) (string, error) {
	return t.sign(accountID, role, PurposeSession, t.ttl)
}

func (t *Tokens) IssueReset(accountID string) (string, error) {
	return t.sign(accountID, "", PurposeReset, t.resetTTL)
}

func (t *Tokens) sign(accountID, role, purpose string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := &Claims{
		AccountID: accountID,
		Role:      role,
		Purpose:   purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token.
func (t *Tokens) Verify(token string) (*Claims, error) {
	return t.verify(token, PurposeSession)
}

func (t *Tokens) VerifyReset(token string) (*Claims, error) {
	return t.verify(token, PurposeReset)
}

func (t *Tokens) verify(token, purpose string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	if claims.AccountID == "" {
		return nil, fmt.Errorf("%w: missing account id", ErrInvalidToken)
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
