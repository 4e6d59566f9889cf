package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// cartLine is the part of a cart line checkout reads.
type cartLine struct {
	ProductID string
	Quantity  int
}

// stockRow is a product row locked for checkout.
type stockRow struct {
	ID            string
	Name          string
	Image         string
	Price         decimal.Decimal
	StockQuantity int
	InStock       bool
}

// buildItems validates every cart line against the locked catalog rows and
// snapshots current name, image and price. Any failing line rejects the
// whole checkout.
func buildItems(lines []cartLine, products map[string]stockRow) ([]Item, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, ErrCartEmpty
	}

	items := make([]Item, 0, len(lines))
	total := decimal.Zero

	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, decimal.Zero, productUnavailable(l.ProductID)
		}
		if !p.InStock || p.StockQuantity < l.Quantity {
			return nil, decimal.Zero, productOutOfStock(p.Name)
		}

		item := Item{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
		}
		items = append(items, item)
		total = total.Add(item.Subtotal())
	}

	return items, total, nil
}

// initialStatus derives the starting status pair. Only a reference backed by
// a verified payment starts the order as paid; anything else waits for
// verification to promote it.
func initialStatus(settled bool) (Status, PaymentStatus) {
	if settled {
		return StatusProcessing, PaymentPaid
	}
	return StatusPending, PaymentPending
}

// paymentCovers reports whether a recorded payment settles an order total.
func paymentCovers(status string, amount, total decimal.Decimal) bool {
	return status == "success" && amount.GreaterThanOrEqual(total)
}

func formatOrderNumber(seq int64) string {
	return fmt.Sprintf("ORD-%06d", seq)
}
