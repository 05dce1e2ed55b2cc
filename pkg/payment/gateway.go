// Package payment talks to the card payment gateway.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrGateway = errors.New("payment gateway error")

// Gateway status values reported by Verify.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
	StatusReversed  = "reversed"
	StatusOngoing   = "ongoing"
	StatusPending   = "pending"
)

type InitializeRequest struct {
	Reference string
	Email     string
	Amount    float64
	Currency  string
}

type Authorization struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

type Verification struct {
	Reference string
	Status    string
	Amount    float64
	Currency  string
}

// Outcome maps the gateway status onto the ledger. Anything the gateway has
// not finished with stays pending.
func (v *Verification) Outcome() models.PaymentStatus {
	switch v.Status {
	case StatusSuccess:
		return models.PaymentCompleted
	case StatusFailed, StatusAbandoned, StatusReversed:
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}

type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*Authorization, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}

// Client is a Paystack style REST client. Amounts travel in minor units.
type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

var _ Gateway = (*Client)(nil)

func NewClient(cfg *config.PaymentConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func toMinor(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromMinor(amount int64) float64 {
	return decimal.New(amount, -2).InexactFloat64()
}

func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	body := map[string]any{
		"reference": req.Reference,
		"email":     req.Email,
		"amount":    toMinor(req.Amount),
		"currency":  req.Currency,
	}
	if c.callbackURL != "" {
		body["callback_url"] = c.callbackURL
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize returned no authorization url", ErrGateway)
	}

	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &Authorization{
		Reference:        ref,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

func (c *Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	var data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	}
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		return nil, err
	}
	return &Verification{
		Reference: reference,
		Status:    data.Status,
		Amount:    fromMinor(data.Amount),
		Currency:  data.Currency,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrGateway, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Gateway call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: %s %s: status %d: %v", ErrGateway, method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !env.Status {
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrGateway, method, path, resp.StatusCode, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrGateway, path, err)
		}
	}
	return nil
}
