package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vuonxanh/plantstore/validate"
)

const (
	MinQuantity = 1
	MaxQuantity = 99

	// Orders at or above the threshold ship for free.
	FreeShippingThreshold = 500_000
	ShippingFee           = 30_000
)

// taxRate is the VAT applied to the subtotal. The rounded amount uses
// half-away-from-zero so totals are reproducible across clients.
var taxRate = decimal.New(1, -1)

type Item struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice int       `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// Cart is an ordered list of line items. The operations below are reducers:
// they return a new value and never mutate the receiver, so a handler can
// persist the snapshot it derives without aliasing surprises.
type Cart struct {
	Items []Item `json:"items"`
}

type Totals struct {
	Subtotal       int `json:"subtotal"`
	Shipping       int `json:"shipping"`
	Tax            int `json:"tax"`
	Total          int `json:"total"`
	TotalItemCount int `json:"totalItemCount"`
}

func clampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// Add appends a line item for the product, or bumps the quantity of the
// existing line item for the same product. Quantities are clamped to
// [MinQuantity, MaxQuantity] rather than rejected.
func (c Cart) Add(productID string, name string, unitPrice int, quantity int, now time.Time) Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)

	for i, it := range items {
		if it.ProductID == productID {
			items[i].Quantity = clampQuantity(it.Quantity + clampQuantity(quantity))
			return Cart{Items: items}
		}
	}

	items = append(items, Item{
		ID:        validate.GenerateID(),
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  clampQuantity(quantity),
		AddedAt:   now,
	})

	return Cart{Items: items}
}

// Remove drops the line item. A missing ID is a silent no-op.
func (c Cart) Remove(itemID string) Cart {
	items := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ID != itemID {
			items = append(items, it)
		}
	}
	return Cart{Items: items}
}

// SetQuantity replaces the quantity of the line item, clamped to the valid
// range. A missing ID is a silent no-op.
func (c Cart) SetQuantity(itemID string, quantity int) Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)

	for i, it := range items {
		if it.ID == itemID {
			items[i].Quantity = clampQuantity(quantity)
			break
		}
	}

	return Cart{Items: items}
}

func (c Cart) Clear() Cart {
	return Cart{Items: []Item{}}
}

// Totals derives the payable breakdown from the line items. Item order is
// irrelevant to the result.
func (c Cart) Totals() Totals {
	var t Totals
	for _, it := range c.Items {
		t.Subtotal += it.UnitPrice * it.Quantity
		t.TotalItemCount += it.Quantity
	}

	// An empty cart has no shipping fee; totals reset to zero on clear.
	if len(c.Items) > 0 && t.Subtotal < FreeShippingThreshold {
		t.Shipping = ShippingFee
	}

	tax := decimal.NewFromInt(int64(t.Subtotal)).Mul(taxRate).Round(0)
	t.Tax = int(tax.IntPart())

	t.Total = t.Subtotal + t.Shipping + t.Tax
	return t
}
