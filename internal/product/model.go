package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategorySmartphones Category = "smartphones"
	CategoryLaptops     Category = "laptops"
	CategoryAudio       Category = "audio"
	CategoryTablets     Category = "tablets"
	CategoryWearables   Category = "wearables"
)

func (c Category) Valid() bool {
	switch c {
	case CategorySmartphones, CategoryLaptops, CategoryAudio, CategoryTablets, CategoryWearables:
		return true
	}
	return false
}

type Currency string

const (
	CurrencyGHS Currency = "GHS"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

type Rating struct {
	Average decimal.Decimal `json:"average"`
	Count   int             `json:"count"`
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Currency      Currency        `json:"currency"`
	Category      Category        `json:"category"`
	ImageURL      string          `json:"image"`
	Specs         []string        `json:"specs"`
	StockQuantity int             `json:"stockQuantity"`
	InStock       bool            `json:"inStock"`
	Featured      bool            `json:"featured"`
	Ratings       Rating          `json:"ratings"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Sort keys accepted by List.
const (
	SortCreatedAt = "createdAt"
	SortPrice     = "price"
	SortName      = "name"
	SortRating    = "rating"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 50
)

type ListOptions struct {
	Category *Category
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  *bool
	Featured *bool
	Search   string
	Sort     string
	Desc     bool
	Page     int
	Limit    int
}

type ProductInput struct {
	Name          string          `json:"name" validate:"notblank,min=2,max=200"`
	Description   string          `json:"description" validate:"notblank,min=10,max=1000"`
	Price         decimal.Decimal `json:"price" validate:"gt=0"`
	Currency      Currency        `json:"currency" validate:"omitempty,oneof=GHS USD EUR"`
	Category      Category        `json:"category" validate:"required,oneof=smartphones laptops audio tablets wearables"`
	ImageURL      string          `json:"image" validate:"required,http_url"`
	Specs         []string        `json:"specs" validate:"omitempty,dive,max=200"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	Featured      bool            `json:"featured"`
	Ratings       *RatingInput    `json:"ratings"`
}

type RatingInput struct {
	Average decimal.Decimal `json:"average" validate:"gte=0,lte=5"`
	Count   int             `json:"count" validate:"gte=0"`
}

// UpdateProductInput carries only the fields being changed.
type UpdateProductInput struct {
	Name          *string          `json:"name" validate:"omitempty,notblank,min=2,max=200"`
	Description   *string          `json:"description" validate:"omitempty,notblank,min=10,max=1000"`
	Price         *decimal.Decimal `json:"price" validate:"omitempty,gt=0"`
	Currency      *Currency        `json:"currency" validate:"omitempty,oneof=GHS USD EUR"`
	Category      *Category        `json:"category" validate:"omitempty,oneof=smartphones laptops audio tablets wearables"`
	ImageURL      *string          `json:"image" validate:"omitempty,http_url"`
	Specs         []string         `json:"specs" validate:"omitempty,dive,max=200"`
	StockQuantity *int             `json:"stockQuantity" validate:"omitempty,gte=0"`
	Featured      *bool            `json:"featured"`
	Ratings       *RatingInput     `json:"ratings"`
}

func (in UpdateProductInput) Empty() bool {
	return in.Name == nil && in.Description == nil && in.Price == nil &&
		in.Currency == nil && in.Category == nil && in.ImageURL == nil &&
		in.Specs == nil && in.StockQuantity == nil && in.Featured == nil && in.Ratings == nil
}
