package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidDefinition is wrapped by all coupon definition validation errors.
var ErrInvalidDefinition = errors.New("invalid coupon definition")

// Validate checks a coupon definition before it is persisted. Variant-payload
// validation is a store-boundary precondition; the engine itself treats
// malformed rules as zero discount.
func (c *Coupon) Validate() error {
	if c.Name == "" {
		return errors.Wrap(ErrInvalidDefinition, "name is required")
	}
	if c.Code == "" {
		return errors.Wrap(ErrInvalidDefinition, "code is required")
	}
	if c.ValidFrom != nil && c.ValidTo != nil && c.ValidTo.Before(*c.ValidFrom) {
		return errors.Wrap(ErrInvalidDefinition, "validTo precedes validFrom")
	}

	switch c.Type {
	case TypeCartWise:
		if c.CartWise == nil {
			return errors.Wrap(ErrInvalidDefinition, "cart-wise payload is required")
		}
		return c.CartWise.validate()
	case TypeProductWise:
		if c.ProductWise == nil {
			return errors.Wrap(ErrInvalidDefinition, "product-wise payload is required")
		}
		return c.ProductWise.validate()
	case TypeBxGy:
		if c.BxGy == nil {
			return errors.Wrap(ErrInvalidDefinition, "bxgy payload is required")
		}
		return c.BxGy.validate()
	default:
		return errors.Wrapf(ErrInvalidDefinition, "unknown coupon type %q", c.Type)
	}
}

func (r *CartWiseRule) validate() error {
	if r.MinCartAmount.IsNegative() {
		return errors.Wrap(ErrInvalidDefinition, "minCartAmount must be >= 0")
	}
	return validateDiscountModes(r.DiscountPercentage, r.FixedDiscount)
}

func (r *ProductWiseRule) validate() error {
	if len(r.ApplicableProducts) == 0 {
		return errors.Wrap(ErrInvalidDefinition, "applicableProducts must not be empty")
	}
	return validateDiscountModes(r.DiscountPercentage, r.FixedDiscount)
}

func (r *BxGyRule) validate() error {
	if len(r.BuyProducts) == 0 {
		return errors.Wrap(ErrInvalidDefinition, "buyProducts must not be empty")
	}
	if len(r.GetProducts) == 0 {
		return errors.Wrap(ErrInvalidDefinition, "getProducts must not be empty")
	}
	if r.BuyQuantity < 1 {
		return errors.Wrap(ErrInvalidDefinition, "buyQuantity must be >= 1")
	}
	if r.GetQuantity < 1 {
		return errors.Wrap(ErrInvalidDefinition, "getQuantity must be >= 1")
	}
	if r.RepetitionLimit < 1 {
		return errors.Wrap(ErrInvalidDefinition, "repetitionLimit must be >= 1")
	}
	return nil
}

func validateDiscountModes(pct, fixed *decimal.Decimal) error {
	if pct == nil && fixed == nil {
		return errors.Wrap(ErrInvalidDefinition, "either discountPercentage or fixedDiscount is required")
	}
	if pct != nil && (pct.IsNegative() || pct.GreaterThan(hundred)) {
		return errors.Wrap(ErrInvalidDefinition, "discountPercentage must be between 0 and 100")
	}
	if fixed != nil && fixed.IsNegative() {
		return errors.Wrap(ErrInvalidDefinition, "fixedDiscount must be >= 0")
	}
	return nil
}
