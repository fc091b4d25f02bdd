// Package coupon defines the coupon model, the discount engine, and the
// service orchestrating coupon CRUD and cart evaluation.
package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type discriminates the supported coupon variants.
type Type string

const (
	// TypeCartWise discounts the cart's aggregate total.
	TypeCartWise Type = "CART_WISE"
	// TypeProductWise discounts specific product line items.
	TypeProductWise Type = "PRODUCT_WISE"
	// TypeBxGy grants free units of a reward set when enough trigger
	// products are bought ("buy X get Y").
	TypeBxGy Type = "BXGY"
)

var (
	// ErrNotFound is returned when a coupon id does not resolve.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeExists is returned when creating a coupon whose code is
	// already taken.
	ErrCodeExists = errors.New("coupon code already exists")
)

// NotApplicableError indicates a coupon resolved but its computed discount is
// zero for the given cart. Reason carries the human-readable applicability
// message from the engine.
type NotApplicableError struct {
	Reason string
}

func (e *NotApplicableError) Error() string {
	return fmt.Sprintf("coupon not applicable: %s", e.Reason)
}

// Coupon is a tagged-variant coupon definition. Exactly one of the variant
// payloads (CartWise, ProductWise, BxGy) is non-nil and must match Type.
type Coupon struct {
	ID          string
	Name        string
	Code        string
	Type        Type
	Description string
	ValidFrom   *time.Time
	ValidTo     *time.Time
	Active      bool

	CartWise    *CartWiseRule
	ProductWise *ProductWiseRule
	BxGy        *BxGyRule

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartWiseRule discounts the cart total once it reaches a minimum amount.
// When both discount modes are set, the percentage wins.
type CartWiseRule struct {
	MinCartAmount      decimal.Decimal
	DiscountPercentage *decimal.Decimal
	FixedDiscount      *decimal.Decimal
}

// ProductWiseRule discounts line items whose product id is in
// ApplicableProducts. FixedDiscount applies per unit of a matching item.
type ProductWiseRule struct {
	ApplicableProducts []string
	DiscountPercentage *decimal.Decimal
	FixedDiscount      *decimal.Decimal
}

// BxGyRule grants GetQuantity free units of GetProducts for every BuyQuantity
// units of BuyProducts in the cart, at most RepetitionLimit times.
type BxGyRule struct {
	BuyProducts     []string
	BuyQuantity     int
	GetProducts     []string
	GetQuantity     int
	RepetitionLimit int
}

// Repository defines persistence operations for coupon definitions.
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	GetByID(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error

	// FindActive returns coupons with active = TRUE whose validity window
	// contains now, or whose valid_from is unset.
	FindActive(ctx context.Context, now time.Time) ([]Coupon, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}
