package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// PaymentRepository keeps the gateway payment ledger in MySQL.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(cfg *config.MySQLConfig) (*PaymentRepository, error) {
	// Connect to MySQL
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	return NewPaymentRepositoryWithDB(db)
}

func NewPaymentRepositoryWithDB(db *gorm.DB) (*PaymentRepository, error) {
	// Auto migrate
	if err := db.AutoMigrate(&models.Payment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &PaymentRepository{db: db}, nil
}

func (r *PaymentRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *PaymentRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *PaymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	err := r.db.WithContext(ctx).Create(payment).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("payment %s: %w", payment.Reference, ErrConflict)
	}
	return err
}

func (r *PaymentRepository) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("payment %s: %w", reference, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) SettlePayment(ctx context.Context, reference string, status models.PaymentStatus, gatewayStatus string) (bool, error) {
	updates := map[string]interface{}{
		"status":         status,
		"gateway_status": gatewayStatus,
		"updated_at":     time.Now(),
	}

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ? AND status = ?", reference, models.PaymentPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentRepository) ListPendingPayments(ctx context.Context, createdBefore time.Time) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentPending, createdBefore).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
