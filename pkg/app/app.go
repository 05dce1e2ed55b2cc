// Package app assembles the storefront from configuration. Both binaries
// build an App; the API serves its services and the worker runs its
// background loops.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/mailer"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/reminder"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/repository/memory"
	"github.com/example/storefront/pkg/scheduler"
	"github.com/example/storefront/pkg/service"
	"github.com/example/storefront/pkg/storage"
	"go.uber.org/zap"
)

// stores groups the persistence ports so both drivers fill the same shape.
type stores struct {
	accounts repository.AccountStore
	products repository.ProductStore
	orders   repository.OrderStore
	payments repository.PaymentStore
	audit    repository.AuditLogger
	tx       repository.Transactor
	cache    repository.ProductCache
}

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tokens   *auth.Tokens
	Services gateway.Services
	Checks   map[string]gateway.HealthCheck

	redis     *repository.RedisRepository
	scheduler scheduler.Scheduler
	poller    *scheduler.Redis

	mu      sync.Mutex
	closers []func(ctx context.Context) error
}

// New connects to every configured backend. On error, whatever was already
// opened is closed again.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Tokens: auth.NewTokens(&cfg.Auth),
		Checks: make(map[string]gateway.HealthCheck),
	}
	if err := a.build(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	st, err := a.openStores(ctx)
	if err != nil {
		return err
	}

	sender := mailer.New(a.transport(), &cfg.Mail, logger.Named("mailer"))
	outbox, err := mailer.NewOutbox(sender, 30*time.Second, logger.Named("outbox"))
	if err != nil {
		return err
	}
	a.onClose(func(context.Context) error { return outbox.Close() })

	composer := mailer.NewComposer(cfg.Mail.StorefrontURL, cfg.Order.Currency)

	var reminders *reminder.Service
	fire := func(ctx context.Context, accountID string) { reminders.Fire(ctx, accountID) }
	if err := a.openScheduler(fire); err != nil {
		return err
	}
	reminders = reminder.New(a.scheduler, st.accounts, st.products, sender, composer, cfg.Reminder.Delay, logger.Named("reminder"))

	images, err := a.imageStore(ctx)
	if err != nil {
		return err
	}

	products := service.NewProductService(st.products, st.cache, images, logger.Named("product"))
	orders := service.NewOrderService(service.OrderDeps{
		Accounts:  st.accounts,
		Catalog:   products,
		Orders:    st.orders,
		Audit:     st.audit,
		Tx:        st.tx,
		Reminders: reminders,
		Notifier:  outbox,
		Composer:  composer,
	}, cfg.Order.DeliveryFee, logger.Named("order"))

	gatewayClient := payment.NewClient(&cfg.Payment, logger.Named("paystack"))
	payments := service.NewPaymentService(orders, st.payments, gatewayClient,
		cfg.Order.Currency, cfg.Payment.PendingTimeout, logger.Named("payment"))

	a.Services = gateway.Services{
		Carts:    service.NewCartService(st.accounts, reminders, logger.Named("cart")),
		Wishlist: service.NewWishlistService(st.accounts),
		Orders:   orders,
		Payments: payments,
		Products: products,
		Accounts: service.NewAccountService(st.accounts, a.Tokens, outbox, composer, &cfg.Auth, logger.Named("account")),
	}
	return nil
}

func (a *App) onClose(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	cfg := a.Config
	if cfg.Storage.Driver == "memory" {
		a.Logger.Warn("Using in-memory storage, data is lost on restart")
		mem := memory.New()
		return &stores{
			accounts: mem, products: mem, orders: mem, payments: mem, audit: mem, tx: mem,
		}, nil
	}

	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.onClose(mongoRepo.Close)
	a.Checks["mongo"] = mongoRepo.Ping

	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	payments, err := repository.NewPaymentRepository(&cfg.MySQL)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return payments.Close() })
	a.Checks["mysql"] = payments.Ping

	return &stores{
		accounts: mongoRepo,
		products: mongoRepo,
		orders:   mongoRepo,
		payments: payments,
		audit:    mongoRepo,
		tx:       mongoRepo,
		cache:    a.redisRepo(),
	}, nil
}

// redisRepo opens the shared Redis connection on first use.
func (a *App) redisRepo() *repository.RedisRepository {
	if a.redis == nil {
		a.redis = repository.NewRedisRepository(&a.Config.Redis)
		a.onClose(func(context.Context) error { return a.redis.Close() })
		a.Checks["redis"] = a.redis.Ping
	}
	return a.redis
}

func (a *App) openScheduler(fire scheduler.Handler) error {
	logger := a.Logger.Named("scheduler")
	switch a.Config.Reminder.Backend {
	case "redis":
		a.poller = scheduler.NewRedis(a.redisRepo().Client(), a.Config.Reminder.Key, fire, logger)
		a.scheduler = a.poller
	case "memory":
		mem := scheduler.NewMemory(fire, logger)
		a.onClose(func(context.Context) error { mem.Close(); return nil })
		a.scheduler = mem
	default:
		return fmt.Errorf("invalid reminder.backend %q", a.Config.Reminder.Backend)
	}
	return nil
}

func (a *App) transport() mailer.Transport {
	if a.Config.Mail.Host == "" {
		a.Logger.Warn("mail.host is empty, e-mails are only logged")
		return mailer.NewLogTransport(a.Logger.Named("mail"))
	}
	return mailer.NewSMTPTransport(&a.Config.Mail)
}

func (a *App) imageStore(ctx context.Context) (storage.ImageStore, error) {
	cfg := &a.Config.Images
	if cfg.Bucket == "" {
		a.Logger.Warn("images.bucket is empty, uploads are kept in memory")
		return storage.NewMemory("http://localhost/images"), nil
	}
	return storage.NewS3Store(ctx, cfg)
}

// RunBackground runs the reminder poller (Redis backend only) and the
// payment reconciler until ctx is cancelled, returning the first failure.
func (a *App) RunBackground(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	run := func(name string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Logger.Info("Background loop started", zap.String("loop", name))
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	if a.poller != nil {
		run("reminders", func(ctx context.Context) error {
			return a.poller.Run(ctx, a.Config.Reminder.PollInterval)
		})
	}
	run("payments", func(ctx context.Context) error {
		return a.Services.Payments.Run(ctx, a.Config.Payment.ReconcileInterval)
	})

	wg.Wait()
	close(errCh)
	return <-errCh
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
