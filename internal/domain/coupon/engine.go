package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

// Applicability reasons returned by ComputeDiscount.
const (
	ReasonApplicable         = "applicable"
	ReasonCartBelowMinimum   = "cart total below minimum"
	ReasonNoMatchingProducts = "no applicable products in cart"
	ReasonBuyConditionNotMet = "buy conditions not met"
	ReasonNoRewardProducts   = "no reward products in cart"
	ReasonNoDiscountMode     = "no discount mode configured"
	ReasonUnknownType        = "unknown coupon type"
)

var hundred = decimal.NewFromInt(100)

// ComputeDiscount calculates the discount amount the coupon would yield for
// the given cart, together with a human-readable applicability reason. The
// coupon is considered applicable when the amount is strictly positive.
//
// Date-window and active filtering is the store's concern (FindActive); the
// engine performs no such checks. A malformed rule with no discount mode set
// yields zero rather than an error.
func ComputeDiscount(c *Coupon, crt cart.Cart) (decimal.Decimal, string) {
	switch c.Type {
	case TypeCartWise:
		if c.CartWise == nil {
			return decimal.Zero, ReasonNoDiscountMode
		}
		return computeCartWise(c.CartWise, crt)
	case TypeProductWise:
		if c.ProductWise == nil {
			return decimal.Zero, ReasonNoDiscountMode
		}
		return computeProductWise(c.ProductWise, crt)
	case TypeBxGy:
		if c.BxGy == nil {
			return decimal.Zero, ReasonNoDiscountMode
		}
		return computeBxGy(c.BxGy, crt)
	default:
		return decimal.Zero, ReasonUnknownType
	}
}

func computeCartWise(r *CartWiseRule, crt cart.Cart) (decimal.Decimal, string) {
	if crt.TotalAmount.LessThan(r.MinCartAmount) {
		return decimal.Zero, ReasonCartBelowMinimum
	}

	switch {
	case r.DiscountPercentage != nil:
		return crt.TotalAmount.Mul(*r.DiscountPercentage).Div(hundred), ReasonApplicable
	case r.FixedDiscount != nil:
		return decimal.Min(*r.FixedDiscount, crt.TotalAmount), ReasonApplicable
	default:
		return decimal.Zero, ReasonNoDiscountMode
	}
}

func computeProductWise(r *ProductWiseRule, crt cart.Cart) (decimal.Decimal, string) {
	applicable := productSet(r.ApplicableProducts)

	matched := false
	total := decimal.Zero
	for _, item := range crt.Items {
		if !applicable[item.ProductID] {
			continue
		}
		matched = true
		qty := decimal.NewFromInt(int64(item.Quantity))

		switch {
		case r.DiscountPercentage != nil:
			total = total.Add(item.Price.Mul(qty).Mul(*r.DiscountPercentage).Div(hundred))
		case r.FixedDiscount != nil:
			total = total.Add(r.FixedDiscount.Mul(qty))
		}
	}

	if !matched {
		return decimal.Zero, ReasonNoMatchingProducts
	}
	return total, ReasonApplicable
}

// computeBxGy estimates the free-item value as applicableTimes * getQuantity
// units priced at the quantity-weighted average of the reward products in the
// cart, capped at their total undiscounted value. The per-item application
// walk (applyBxGy) selects items directly and may discount different items
// when reward prices are heterogeneous; that divergence is deliberate.
func computeBxGy(r *BxGyRule, crt cart.Cart) (decimal.Decimal, string) {
	times := bxgyApplicableTimes(r, crt)
	if times <= 0 {
		return decimal.Zero, ReasonBuyConditionNotMet
	}

	getSet := productSet(r.GetProducts)
	getCount := int64(0)
	getValue := decimal.Zero
	for _, item := range crt.Items {
		if !getSet[item.ProductID] {
			continue
		}
		getCount += int64(item.Quantity)
		getValue = getValue.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if getCount == 0 {
		return decimal.Zero, ReasonNoRewardProducts
	}

	freeUnits := decimal.NewFromInt(int64(times * r.GetQuantity))
	avgPrice := getValue.Div(decimal.NewFromInt(getCount))

	return decimal.Min(freeUnits.Mul(avgPrice), getValue), ReasonApplicable
}

// bxgyApplicableTimes returns min(floor(buyCount/buyQuantity), repetitionLimit).
func bxgyApplicableTimes(r *BxGyRule, crt cart.Cart) int {
	if r.BuyQuantity <= 0 {
		return 0
	}

	buySet := productSet(r.BuyProducts)
	buyCount := 0
	for _, item := range crt.Items {
		if buySet[item.ProductID] {
			buyCount += item.Quantity
		}
	}

	times := buyCount / r.BuyQuantity
	if times > r.RepetitionLimit {
		times = r.RepetitionLimit
	}
	return times
}

// Apply produces a copy of the cart with per-item discounted prices set and
// the total amount recomputed for the given coupon. The caller's cart is
// never mutated. Applying a coupon with zero computed discount leaves all
// discounted prices equal to the unit price.
func Apply(c *Coupon, crt cart.Cart) cart.Cart {
	updated := crt.Clone()

	switch c.Type {
	case TypeCartWise:
		if c.CartWise != nil {
			applyCartWise(c.CartWise, &updated)
			return updated
		}
	case TypeProductWise:
		if c.ProductWise != nil {
			applyProductWise(c.ProductWise, &updated)
			return updated
		}
	case TypeBxGy:
		if c.BxGy != nil {
			applyBxGy(c.BxGy, &updated)
			return updated
		}
	}

	resetDiscountedPrices(&updated)
	return updated
}

// applyCartWise distributes the cart-level discount across items
// proportionally to their line value, so each item's discounted unit price is
// price * (1 - discount/total).
func applyCartWise(r *CartWiseRule, crt *cart.Cart) {
	discount, _ := computeCartWise(r, *crt)
	if !discount.IsPositive() || !crt.TotalAmount.IsPositive() {
		resetDiscountedPrices(crt)
		return
	}

	perItemRate := discount.Div(crt.TotalAmount)
	for i := range crt.Items {
		item := &crt.Items[i]
		qty := decimal.NewFromInt(int64(item.Quantity))
		itemDiscount := item.Price.Mul(qty).Mul(perItemRate)
		item.DiscountedPrice = item.Price.Sub(itemDiscount.Div(qty))
	}
	crt.TotalAmount = crt.TotalAmount.Sub(discount)
}

func applyProductWise(r *ProductWiseRule, crt *cart.Cart) {
	applicable := productSet(r.ApplicableProducts)

	for i := range crt.Items {
		item := &crt.Items[i]
		if !applicable[item.ProductID] {
			item.DiscountedPrice = item.Price
			continue
		}

		switch {
		case r.DiscountPercentage != nil:
			item.DiscountedPrice = item.Price.Sub(item.Price.Mul(*r.DiscountPercentage).Div(hundred))
		case r.FixedDiscount != nil:
			item.DiscountedPrice = decimal.Max(decimal.Zero, item.Price.Sub(*r.FixedDiscount))
		default:
			item.DiscountedPrice = item.Price
		}
	}
	crt.TotalAmount = discountedTotal(crt.Items)
}

// applyBxGy walks reward items in cart order, freeing units until the budget
// of applicableTimes * getQuantity is exhausted. The budget is decremented
// per freed unit, not per repetition.
func applyBxGy(r *BxGyRule, crt *cart.Cart) {
	times := bxgyApplicableTimes(r, *crt)
	if times <= 0 {
		resetDiscountedPrices(crt)
		return
	}

	getSet := productSet(r.GetProducts)
	remaining := times * r.GetQuantity

	for i := range crt.Items {
		item := &crt.Items[i]
		if !getSet[item.ProductID] {
			item.DiscountedPrice = item.Price
			continue
		}

		free := item.Quantity
		if free > remaining {
			free = remaining
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		freed := item.Price.Mul(decimal.NewFromInt(int64(free)))
		item.DiscountedPrice = item.Price.Mul(qty).Sub(freed).Div(qty)
		remaining -= free
	}
	crt.TotalAmount = discountedTotal(crt.Items)
}

// resetDiscountedPrices marks every item as undiscounted and leaves the total
// as the plain sum of line values.
func resetDiscountedPrices(crt *cart.Cart) {
	for i := range crt.Items {
		crt.Items[i].DiscountedPrice = crt.Items[i].Price
	}
	crt.TotalAmount = discountedTotal(crt.Items)
}

func discountedTotal(items []cart.Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.DiscountedPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

func productSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
