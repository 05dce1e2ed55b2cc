package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/mailer"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository/memory"
	"github.com/example/storefront/pkg/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeReminders struct {
	mu      sync.Mutex
	pending map[string]bool
	arms    int
}

func newFakeReminders() *fakeReminders {
	return &fakeReminders{pending: make(map[string]bool)}
}

func (f *fakeReminders) Arm(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[accountID] = true
	f.arms++
	return nil
}

func (f *fakeReminders) Disarm(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, accountID)
	return nil
}

func (f *fakeReminders) Pending(accountID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[accountID]
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []mailer.Message
}

func (f *fakeNotifier) Enqueue(msg mailer.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeNotifier) Messages() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.msgs...)
}

type fakeGateway struct {
	mu          sync.Mutex
	status      map[string]string
	amount      map[string]float64
	verifyCalls int
	initErr     error
	verifyErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{status: make(map[string]string), amount: make(map[string]float64)}
}

func (f *fakeGateway) Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return nil, f.initErr
	}
	f.status[req.Reference] = payment.StatusOngoing
	f.amount[req.Reference] = req.Amount
	return &payment.Authorization{
		Reference:        req.Reference,
		AuthorizationURL: "https://checkout.example/" + req.Reference,
	}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*payment.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &payment.Verification{
		Reference: reference,
		Status:    f.status[reference],
		Amount:    f.amount[reference],
	}, nil
}

func (f *fakeGateway) set(reference, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[reference] = status
}

func (f *fakeGateway) VerifyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

type testEnv struct {
	store     *memory.Store
	reminders *fakeReminders
	notifier  *fakeNotifier
	gateway   *fakeGateway
	images    *storage.Memory
	tokens    *auth.Tokens
	composer  *mailer.Composer

	carts    *CartService
	wishlist *WishlistService
	orders   *OrderService
	payments *PaymentService
	products *ProductService
	accounts *AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	env := &testEnv{
		store:     memory.New(),
		reminders: newFakeReminders(),
		notifier:  &fakeNotifier{},
		gateway:   newFakeGateway(),
		images:    storage.NewMemory("http://cdn.example"),
	}
	authCfg := &config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		ResetTokenTTL: 15 * time.Minute,
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin-pass",
	}
	env.tokens = auth.NewTokens(authCfg)
	composer := mailer.NewComposer("https://shop.example.com", "GHS")
	env.composer = composer

	env.carts = NewCartService(env.store, env.reminders, logger)
	env.wishlist = NewWishlistService(env.store)
	env.products = NewProductService(env.store, nil, env.images, logger)
	env.orders = NewOrderService(OrderDeps{
		Accounts:  env.store,
		Catalog:   env.products,
		Orders:    env.store,
		Audit:     env.store,
		Tx:        env.store,
		Reminders: env.reminders,
		Notifier:  env.notifier,
		Composer:  composer,
	}, 0, logger)
	env.payments = NewPaymentService(env.orders, env.store, env.gateway, "GHS", 30*time.Minute, logger)
	env.accounts = NewAccountService(env.store, env.tokens, env.notifier, composer, authCfg, logger)
	return env
}

func (e *testEnv) account(t *testing.T, cart models.Cart) *models.Account {
	t.Helper()
	acc := &models.Account{
		Name:     "Ama Mensah",
		Email:    "ama" + models.NewID() + "@example.com",
		CartData: cart,
	}
	require.NoError(t, e.store.CreateAccount(context.Background(), acc))
	return acc
}

func (e *testEnv) product(t *testing.T, id string, price float64, sizes ...string) *models.Product {
	t.Helper()
	p := &models.Product{ID: id, Name: "Product " + id, Price: price, Sizes: sizes, Images: []string{"http://cdn.example/" + id + ".jpg"}}
	require.NoError(t, e.store.CreateProduct(context.Background(), p))
	return p
}

func validAddress() models.Address {
	return models.Address{
		FirstName: "Ama",
		LastName:  "Mensah",
		City:      "Accra",
		Country:   "Ghana",
		Phone:     "+233200000000",
	}
}
