package payment

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const ProviderPaystack = "paystack"

type CheckoutType string

const (
	CheckoutCart    CheckoutType = "cart"
	CheckoutProduct CheckoutType = "product"
	CheckoutOrder   CheckoutType = "order"
)

// Status mirrors the provider's transaction status, plus the local
// initialized state before the customer acts.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
	StatusAbandoned   Status = "abandoned"
	StatusReversed    Status = "reversed"
)

// Terminal reports whether a status settles the payment one way or the other.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusAbandoned, StatusReversed:
		return true
	}
	return false
}

type Payment struct {
	ID               int64
	Reference        string
	UserID           *uint
	OrderID          *string
	Email            string
	Amount           decimal.Decimal
	Currency         string
	CheckoutType     CheckoutType
	Status           Status
	AuthorizationURL string
	AccessCode       string
	Metadata         map[string]any
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CartItemInput struct {
	ID       string          `json:"id" validate:"notblank"`
	Name     string          `json:"name" validate:"notblank"`
	Quantity int             `json:"quantity" validate:"gte=1"`
	Price    decimal.Decimal `json:"price" validate:"gt=0"`
}

type InitializeInput struct {
	Email        string          `json:"email" validate:"required,email"`
	Amount       decimal.Decimal `json:"amount" validate:"gte=0"`
	Currency     string          `json:"currency" validate:"omitempty,oneof=GHS USD EUR"`
	ProductID    string          `json:"productId"`
	CartItems    []CartItemInput `json:"cartItems" validate:"omitempty,dive"`
	CustomerName string          `json:"customerName" validate:"notblank,min=2,max=100"`
	Phone        string          `json:"phone" validate:"notblank,max=20"`
	Reference    string          `json:"reference" validate:"omitempty,max=100"`
	CallbackURL  string          `json:"callbackUrl" validate:"omitempty,http_url"`
	OrderID      string          `json:"orderId" validate:"omitempty,uuid"`
	Metadata     map[string]any  `json:"metadata"`
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

// Verification is the provider's view of a transaction.
type Verification struct {
	Reference       string          `json:"reference"`
	Status          Status          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel,omitempty"`
	GatewayResponse string          `json:"gatewayResponse,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	CustomerEmail   string          `json:"customerEmail,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// WebhookEvent is a provider notification as received, before processing.
type WebhookEvent struct {
	Type           string
	EventID        string
	Reference      string
	Payload        json.RawMessage
	SignatureValid bool
}
