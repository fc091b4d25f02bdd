package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// CouponJSON is the wire representation of a coupon in both requests and
// responses. Variant-specific fields are populated according to the type tag;
// monetary values travel as floats.
type CouponJSON struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Code        string     `json:"code"`
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	ValidFrom   *time.Time `json:"validFrom,omitempty"`
	ValidTo     *time.Time `json:"validTo,omitempty"`
	Active      *bool      `json:"active,omitempty"`

	// CART_WISE / PRODUCT_WISE
	MinCartAmount      *float64 `json:"minCartAmount,omitempty"`
	DiscountPercentage *float64 `json:"discountPercentage,omitempty"`
	FixedDiscount      *float64 `json:"fixedDiscount,omitempty"`
	ApplicableProducts []string `json:"applicableProducts,omitempty"`

	// BXGY
	BuyProducts     []string `json:"buyProducts,omitempty"`
	BuyQuantity     *int     `json:"buyQuantity,omitempty"`
	GetProducts     []string `json:"getProducts,omitempty"`
	GetQuantity     *int     `json:"getQuantity,omitempty"`
	RepetitionLimit *int     `json:"repetitionLimit,omitempty"`
}

// UpdateCouponJSON carries the mutable coupon metadata for PUT requests.
type UpdateCouponJSON struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ValidFrom   *time.Time `json:"validFrom,omitempty"`
	ValidTo     *time.Time `json:"validTo,omitempty"`
	Active      *bool      `json:"active,omitempty"`
}

// CartItemJSON is the wire representation of a cart line item.
type CartItemJSON struct {
	ProductID       string  `json:"productId"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	DiscountedPrice float64 `json:"discountedPrice,omitempty"`
}

// CartJSON is the wire representation of a cart. TotalAmount may be omitted;
// it is then derived from the items.
type CartJSON struct {
	ID          string         `json:"id,omitempty"`
	Items       []CartItemJSON `json:"items"`
	TotalAmount float64        `json:"totalAmount,omitempty"`
}

// ApplyCouponJSON is the request body for applying a single coupon; the cart
// total is always derived server-side.
type ApplyCouponJSON struct {
	CartID string         `json:"cartId,omitempty"`
	Items  []CartItemJSON `json:"items"`
}

// ApplicableCouponJSON pairs a coupon with its computed discount in the
// applicability report.
type ApplicableCouponJSON struct {
	Coupon   CouponJSON `json:"coupon"`
	Discount float64    `json:"discount"`
	Message  string     `json:"message"`
}

// toDomainCoupon converts a create request body to the domain model. The
// active flag defaults to true when omitted; repetitionLimit defaults to 1.
func (j *CouponJSON) toDomainCoupon() *coupon.Coupon {
	c := &coupon.Coupon{
		Name:        j.Name,
		Code:        j.Code,
		Type:        coupon.Type(j.Type),
		Description: j.Description,
		ValidFrom:   j.ValidFrom,
		ValidTo:     j.ValidTo,
		Active:      true,
	}
	if j.Active != nil {
		c.Active = *j.Active
	}

	switch c.Type {
	case coupon.TypeCartWise:
		rule := &coupon.CartWiseRule{
			DiscountPercentage: toDecimalPtr(j.DiscountPercentage),
			FixedDiscount:      toDecimalPtr(j.FixedDiscount),
		}
		if j.MinCartAmount != nil {
			rule.MinCartAmount = decimal.NewFromFloat(*j.MinCartAmount)
		}
		c.CartWise = rule
	case coupon.TypeProductWise:
		c.ProductWise = &coupon.ProductWiseRule{
			ApplicableProducts: j.ApplicableProducts,
			DiscountPercentage: toDecimalPtr(j.DiscountPercentage),
			FixedDiscount:      toDecimalPtr(j.FixedDiscount),
		}
	case coupon.TypeBxGy:
		rule := &coupon.BxGyRule{
			BuyProducts:     j.BuyProducts,
			GetProducts:     j.GetProducts,
			RepetitionLimit: 1,
		}
		if j.BuyQuantity != nil {
			rule.BuyQuantity = *j.BuyQuantity
		}
		if j.GetQuantity != nil {
			rule.GetQuantity = *j.GetQuantity
		}
		if j.RepetitionLimit != nil {
			rule.RepetitionLimit = *j.RepetitionLimit
		}
		c.BxGy = rule
	}
	return c
}

func domainToCouponJSON(c *coupon.Coupon) CouponJSON {
	active := c.Active
	j := CouponJSON{
		ID:          c.ID,
		Name:        c.Name,
		Code:        c.Code,
		Type:        string(c.Type),
		Description: c.Description,
		ValidFrom:   c.ValidFrom,
		ValidTo:     c.ValidTo,
		Active:      &active,
	}

	switch {
	case c.CartWise != nil:
		min := c.CartWise.MinCartAmount.InexactFloat64()
		j.MinCartAmount = &min
		j.DiscountPercentage = toFloatPtr(c.CartWise.DiscountPercentage)
		j.FixedDiscount = toFloatPtr(c.CartWise.FixedDiscount)
	case c.ProductWise != nil:
		j.ApplicableProducts = c.ProductWise.ApplicableProducts
		j.DiscountPercentage = toFloatPtr(c.ProductWise.DiscountPercentage)
		j.FixedDiscount = toFloatPtr(c.ProductWise.FixedDiscount)
	case c.BxGy != nil:
		j.BuyProducts = c.BxGy.BuyProducts
		j.GetProducts = c.BxGy.GetProducts
		buyQty, getQty, repLimit := c.BxGy.BuyQuantity, c.BxGy.GetQuantity, c.BxGy.RepetitionLimit
		j.BuyQuantity = &buyQty
		j.GetQuantity = &getQty
		j.RepetitionLimit = &repLimit
	}
	return j
}

// toDomainCart builds a cart from the wire form. When totalAmount is omitted
// or zero it is derived as sum(price * quantity).
func (j *CartJSON) toDomainCart() cart.Cart {
	items := toDomainItems(j.Items)

	total := decimal.NewFromFloat(j.TotalAmount)
	if total.IsZero() {
		total = cart.TotalOf(items)
	}

	return cart.Cart{
		ID:          j.ID,
		Items:       items,
		TotalAmount: total,
	}
}

func toDomainItems(items []CartItemJSON) []cart.Item {
	out := make([]cart.Item, len(items))
	for i, item := range items {
		out[i] = cart.Item{
			ProductID: item.ProductID,
			Price:     decimal.NewFromFloat(item.Price),
			Quantity:  item.Quantity,
		}
	}
	return out
}

func domainToCartJSON(c cart.Cart) CartJSON {
	items := make([]CartItemJSON, len(c.Items))
	for i, item := range c.Items {
		items[i] = CartItemJSON{
			ProductID:       item.ProductID,
			Price:           item.Price.InexactFloat64(),
			Quantity:        item.Quantity,
			DiscountedPrice: item.DiscountedPrice.Round(2).InexactFloat64(),
		}
	}
	return CartJSON{
		ID:          c.ID,
		Items:       items,
		TotalAmount: c.TotalAmount.Round(2).InexactFloat64(),
	}
}

func toDecimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

func toFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
