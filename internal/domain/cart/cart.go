// Package cart defines the transient shopping cart model consumed by the
// discount engine. Carts are built per request from caller-supplied data and
// are never persisted.
package cart

import "github.com/shopspring/decimal"

// Item represents a single line item in a cart. DiscountedPrice is the unit
// price after a coupon has been applied; before application it is either zero
// or equal to Price.
type Item struct {
	ProductID       string
	Price           decimal.Decimal
	Quantity        int
	DiscountedPrice decimal.Decimal
}

// Cart holds an ordered sequence of line items and the cart's total amount.
type Cart struct {
	ID          string
	Items       []Item
	TotalAmount decimal.Decimal
}

// TotalOf returns the sum of price * quantity across all items. It is used to
// derive a cart's total when the caller does not supply one.
func TotalOf(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// Clone returns a deep copy of the cart. The discount engine only ever
// mutates clones, never the caller's original.
func (c Cart) Clone() Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)

	return Cart{
		ID:          c.ID,
		Items:       items,
		TotalAmount: c.TotalAmount,
	}
}
