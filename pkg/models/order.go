package models

import (
	"time"
)

type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentGateway PaymentMethod = "Gateway"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	StatusPacking        OrderStatus = "Packing"
	StatusShipped        OrderStatus = "Shipped"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCancelled      OrderStatus = "Cancelled"
)

var orderStatuses = []OrderStatus{
	StatusPacking, StatusShipped, StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

func OrderStatuses() []OrderStatus {
	return append([]OrderStatus(nil), orderStatuses...)
}

func (s OrderStatus) Valid() bool {
	for _, v := range orderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Order struct {
	ID               string        `bson:"_id" json:"_id"`
	UserID           string        `bson:"userId" json:"userId"`
	Items            []OrderItem   `bson:"items" json:"items"`
	Amount           float64       `bson:"amount" json:"amount"`
	Address          Address       `bson:"address" json:"address"`
	PaymentMethod    PaymentMethod `bson:"paymentMethod" json:"paymentMethod"`
	Payment          bool          `bson:"payment" json:"payment"`
	PaymentStatus    PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	Status           OrderStatus   `bson:"status" json:"status"`
	IdempotencyKey   string        `bson:"idempotencyKey,omitempty" json:"idempotencyKey,omitempty"`
	PaymentReference string        `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`
	CreatedAt        time.Time     `bson:"date" json:"date"`
}

// OrderItem is a snapshot of a catalog product taken when the order is placed.
type OrderItem struct {
	ProductID string  `bson:"productId" json:"_id"`
	Name      string  `bson:"name" json:"name"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
	Size      string  `bson:"size" json:"size"`
	Image     string  `bson:"image" json:"image"`
}

type Address struct {
	FirstName      string `bson:"firstName" json:"firstName" validate:"required"`
	LastName       string `bson:"lastName" json:"lastName" validate:"required"`
	Email          string `bson:"email,omitempty" json:"email,omitempty" validate:"omitempty,email"`
	Street         string `bson:"street,omitempty" json:"street,omitempty"`
	City           string `bson:"city" json:"city" validate:"required"`
	State          string `bson:"state,omitempty" json:"state,omitempty"`
	Country        string `bson:"country" json:"country" validate:"required"`
	DigitalAddress string `bson:"digitalAddress,omitempty" json:"digitalAddress,omitempty"`
	Phone          string `bson:"phone" json:"phone" validate:"required"`
}
