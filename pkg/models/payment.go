package models

import (
	"time"
)

// Payment is a gateway transaction in the payment ledger.
type Payment struct {
	Reference        string        `gorm:"primaryKey;type:varchar(64)" json:"reference"`
	OrderID          string        `gorm:"type:varchar(36);not null;index" json:"orderId"`
	AccountID        string        `gorm:"type:varchar(36);not null;index" json:"accountId"`
	Amount           float64       `gorm:"type:decimal(12,2)" json:"amount"`
	Currency         string        `gorm:"type:varchar(8)" json:"currency"`
	Status           PaymentStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	GatewayStatus    string        `gorm:"type:varchar(32)" json:"gatewayStatus"`
	AuthorizationURL string        `gorm:"type:varchar(512)" json:"authorizationUrl"`
	CreatedAt        time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) Settled() bool {
	return p.Status == PaymentCompleted || p.Status == PaymentFailed
}
