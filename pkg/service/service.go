// Package service holds the storefront use cases: carts, wishlists, orders,
// gateway payments, the catalog and accounts.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/mailer"
	"github.com/example/storefront/pkg/models"
	"github.com/go-playground/validator/v10"
)

// Reminders arms and disarms the abandoned cart reminder.
type Reminders interface {
	Arm(ctx context.Context, accountID string) error
	Disarm(ctx context.Context, accountID string) error
}

// Notifier queues an e-mail for asynchronous delivery.
type Notifier interface {
	Enqueue(msg mailer.Message)
}

// Catalog resolves products by id. Both the product store and the cached
// ProductService satisfy it.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validationError turns validator output into a client-facing message.
func validationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(op, err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return apperr.Validation(op, strings.Join(msgs, "; "))
}

// validKey rejects ids that cannot be used as document field names.
func validKey(s string) bool {
	return s != "" && !strings.Contains(s, ".") && !strings.HasPrefix(s, "$")
}

func requireAccount(op, accountID string) error {
	if accountID == "" {
		return apperr.Unauthorized(op, "Not Authorized Login Again")
	}
	return nil
}
