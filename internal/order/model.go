package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// next lists the forward transitions. Cancellation is allowed from any
// state except cancelled and is handled in CanTransition.
var next = map[Status]Status{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// CanTransition reports whether an order in status from may move to to.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	if to == StatusCancelled {
		return from != StatusCancelled
	}
	return next[from] == to
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

const (
	DefaultCurrency  = "GHS"
	DefaultListLimit = 10
	MaxListLimit     = 50
)

type ShippingAddress struct {
	FullName string `json:"fullName" validate:"notblank,max=100"`
	Phone    string `json:"phone" validate:"notblank,max=20"`
	Address  string `json:"address" validate:"notblank,max=500"`
	City     string `json:"city" validate:"notblank,max=100"`
	Region   string `json:"region" validate:"notblank,max=100"`
}

// Item is a snapshot of a product at checkout time. It does not change
// when the catalog does.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID               string          `json:"id"`
	OrderNumber      string          `json:"orderNumber"`
	UserID           uint            `json:"userId"`
	Items            []Item          `json:"items"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Currency         string          `json:"currency"`
	Status           Status          `json:"status"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	ShippingAddress  ShippingAddress `json:"shippingAddress"`
	PaymentReference *string         `json:"paymentReference,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type CreateOrderInput struct {
	ShippingAddress  ShippingAddress `json:"shippingAddress"`
	PaymentReference *string         `json:"paymentReference" validate:"omitempty,max=100"`
	Notes            *string         `json:"notes" validate:"omitempty,max=1000"`
}

type ListOptions struct {
	Page   int
	Limit  int
	Status *Status
}

type Stats struct {
	TotalOrders     int             `json:"totalOrders"`
	TotalSpent      decimal.Decimal `json:"totalSpent"`
	PendingOrders   int             `json:"pendingOrders"`
	CompletedOrders int             `json:"completedOrders"`
}

// PaymentOutcome is the result of a provider verification applied to the
// order carrying the same reference.
type PaymentOutcome string

const (
	OutcomePaid   PaymentOutcome = "paid"
	OutcomeFailed PaymentOutcome = "failed"
)
