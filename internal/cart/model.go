package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

const MaxQuantityPerLine = 10

// Line is one product in a cart. Name, Image, StockQuantity and Available
// are resolved from the catalog at read time; UnitPrice is the snapshot
// taken when the line was added or last merged.
type Line struct {
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	Image         string          `json:"image"`
	StockQuantity int             `json:"stockQuantity"`
	Available     bool            `json:"available"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	AddedAt       time.Time       `json:"addedAt"`
}

type Cart struct {
	ID          int64           `json:"id,omitempty"`
	UserID      uint            `json:"userId"`
	Items       []Line          `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalItems  int             `json:"totalItems"`
	Version     int64           `json:"version"`
	UpdatedAt   time.Time       `json:"updatedAt,omitempty"`
}

func emptyCart(userID uint) *Cart {
	return &Cart{UserID: userID, Items: []Line{}, TotalAmount: decimal.Zero}
}

// Recalculate derives line subtotals and cart totals from the lines.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	items := 0
	for i := range c.Items {
		sub := c.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(c.Items[i].Quantity)))
		c.Items[i].Subtotal = sub
		total = total.Add(sub)
		items += c.Items[i].Quantity
	}
	if c.Items == nil {
		c.Items = []Line{}
	}
	c.TotalAmount = total
	c.TotalItems = items
}

// Find returns the index of the line for productID.
func (c *Cart) Find(productID string) (int, bool) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

func (c *Cart) Remove(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// MergeDuplicates folds lines sharing a product into the first occurrence,
// which keeps its price and added time. Merged quantities are capped at
// MaxQuantityPerLine. Order of first occurrences is preserved.
func MergeDuplicates(lines []Line) []Line {
	merged := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))

	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			if merged[i].Quantity > MaxQuantityPerLine {
				merged[i].Quantity = MaxQuantityPerLine
			}
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}
