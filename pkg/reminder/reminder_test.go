package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/pkg/mailer"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository/memory"
	"github.com/example/storefront/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type stubSender struct {
	mu   sync.Mutex
	err  error
	sent []mailer.Message
}

func (s *stubSender) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubSender) Sent() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.sent...)
}

func seed(t *testing.T, store *memory.Store, cart models.Cart) *models.Account {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateProduct(ctx, &models.Product{ID: "p1", Name: "Linen Shirt", Price: 50, Sizes: []string{"M"}}))
	acc := &models.Account{Name: "Ama", Email: "ama@example.com", CartData: cart}
	require.NoError(t, store.CreateAccount(ctx, acc))
	return acc
}

func newService(store *memory.Store, sched scheduler.Scheduler, sender mailer.Sender, logger *zap.Logger, delay time.Duration) *Service {
	return New(sched, store, store, sender, mailer.NewComposer("https://shop.example.com", "GHS"), delay, logger)
}

func TestFire_SendsWhenCartNonEmpty(t *testing.T) {
	store := memory.New()
	acc := seed(t, store, models.Cart{"p1": {"M": 2}, "gone": {"S": 1}})
	sender := &stubSender{}
	sched := scheduler.NewMemory(func(context.Context, string) {}, zaptest.NewLogger(t))
	defer sched.Close()

	svc := newService(store, sched, sender, zaptest.NewLogger(t), time.Hour)
	svc.Fire(context.Background(), acc.ID)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ama@example.com", sent[0].To)
	assert.Contains(t, sent[0].Text, "3 item(s)")
	assert.Contains(t, sent[0].Text, "Linen Shirt (M) x2")
}

func TestFire_EmptyCartSendsNothing(t *testing.T) {
	store := memory.New()
	acc := seed(t, store, models.Cart{})
	sender := &stubSender{}
	sched := scheduler.NewMemory(func(context.Context, string) {}, zaptest.NewLogger(t))
	defer sched.Close()

	newService(store, sched, sender, zaptest.NewLogger(t), time.Hour).Fire(context.Background(), acc.ID)
	assert.Empty(t, sender.Sent())
}

func TestFire_FailuresAreLoggedAndSwallowed(t *testing.T) {
	store := memory.New()
	acc := seed(t, store, models.Cart{"p1": {"M": 1}})
	sender := &stubSender{err: errors.New("smtp down")}
	core, logs := observer.New(zap.ErrorLevel)
	sched := scheduler.NewMemory(func(context.Context, string) {}, zaptest.NewLogger(t))
	defer sched.Close()

	svc := newService(store, sched, sender, zap.New(core), time.Hour)
	svc.Fire(context.Background(), acc.ID)
	svc.Fire(context.Background(), "missing-account")

	assert.Equal(t, 1, logs.FilterMessage("Cart reminder not delivered").Len())
	assert.Equal(t, 1, logs.FilterMessage("Cart reminder skipped, account lookup failed").Len())
}

func TestArm_FiresOnceAfterDelay(t *testing.T) {
	store := memory.New()
	acc := seed(t, store, models.Cart{"p1": {"M": 1}})
	sender := &stubSender{}

	var svc *Service
	sched := scheduler.NewMemory(func(ctx context.Context, key string) { svc.Fire(ctx, key) }, zaptest.NewLogger(t))
	svc = newService(store, sched, sender, zaptest.NewLogger(t), 20*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, svc.Arm(ctx, acc.ID))
	require.NoError(t, svc.Arm(ctx, acc.ID))
	assert.Equal(t, 1, sched.Len())

	assert.Eventually(t, func() bool { return len(sender.Sent()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	sched.Close()
	assert.Len(t, sender.Sent(), 1)
}

func TestDisarm(t *testing.T) {
	store := memory.New()
	acc := seed(t, store, models.Cart{"p1": {"M": 1}})
	sender := &stubSender{}
	sched := scheduler.NewMemory(func(context.Context, string) {}, zaptest.NewLogger(t))
	defer sched.Close()

	svc := newService(store, sched, sender, zaptest.NewLogger(t), time.Hour)
	ctx := context.Background()
	require.NoError(t, svc.Arm(ctx, acc.ID))
	require.NoError(t, svc.Disarm(ctx, acc.ID))

	pending, err := sched.Pending(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, pending)
}
