// Package mailer delivers transactional e-mail with validation and retry.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/config"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrDeliveryFailed is returned once every attempt has failed.
var ErrDeliveryFailed = errors.New("mail delivery failed")

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport hands a single message to the mail provider.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Sender is implemented by *Mailer.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Mailer struct {
	transport Transport
	validate  *validator.Validate
	logger    *zap.Logger
	attempts  int
	backoff   time.Duration
}

func New(transport Transport, cfg *config.MailConfig, logger *zap.Logger) *Mailer {
	attempts := cfg.Retries
	if attempts < 1 {
		attempts = 1
	}
	return &Mailer{
		transport: transport,
		validate:  validator.New(),
		logger:    logger,
		attempts:  attempts,
		backoff:   cfg.Backoff,
	}
}

// Send validates the recipient and delivers msg, retrying transport failures
// with exponential backoff. An invalid recipient never reaches the transport.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	const op = "mailer.Send"

	if err := m.validate.Var(msg.To, "required,email"); err != nil {
		return apperr.Validation(op, fmt.Sprintf("invalid recipient %q", msg.To))
	}

	delay := m.backoff
	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		err := m.transport.Send(ctx, msg)
		if err == nil {
			if attempt > 1 {
				m.logger.Info("Mail delivered after retry",
					zap.String("to", msg.To),
					zap.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err
		m.logger.Warn("Mail attempt failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == m.attempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
		delay *= 2
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrDeliveryFailed, m.attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
