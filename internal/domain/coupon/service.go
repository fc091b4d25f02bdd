package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

// ApplicableCoupon pairs a coupon with its computed discount for a given cart.
type ApplicableCoupon struct {
	Coupon   Coupon
	Discount decimal.Decimal
	Message  string
}

// Service orchestrates coupon CRUD and cart discount evaluation over a
// Repository. Evaluation is stateless; each call is independent.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create validates the definition, rejects duplicate codes, assigns an id,
// and persists the coupon. It returns the stored coupon.
func (s *Service) Create(ctx context.Context, c *Coupon) (*Coupon, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, c.Code)
	if err != nil {
		return nil, errors.Wrap(err, "check coupon code")
	}
	if exists {
		return nil, ErrCodeExists
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create coupon")
	}
	return c, nil
}

// Get returns the coupon with the given id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Coupon, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all coupon definitions.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.repo.List(ctx)
}

// ListActive returns coupons that are active and within their validity window.
func (s *Service) ListActive(ctx context.Context) ([]Coupon, error) {
	return s.repo.FindActive(ctx, s.now())
}

// UpdateParams holds the mutable coupon metadata. Variant-specific rule
// fields are immutable once created.
type UpdateParams struct {
	Name        string
	Description string
	ValidFrom   *time.Time
	ValidTo     *time.Time
	Active      bool
}

// Update replaces the coupon's mutable metadata and persists the result.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*Coupon, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = p.Name
	c.Description = p.Description
	c.ValidFrom = p.ValidFrom
	c.ValidTo = p.ValidTo
	c.Active = p.Active

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update coupon")
	}
	return c, nil
}

// Delete removes the coupon with the given id, or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ListApplicable evaluates every currently-active coupon against the cart and
// returns those with a strictly positive discount, preserving the store's
// retrieval order. Discounts in the report are rounded to 2 decimal places.
func (s *Service) ListApplicable(ctx context.Context, crt cart.Cart) ([]ApplicableCoupon, error) {
	active, err := s.repo.FindActive(ctx, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "find active coupons")
	}

	applicable := make([]ApplicableCoupon, 0, len(active))
	for i := range active {
		amount, reason := ComputeDiscount(&active[i], crt)
		if !amount.IsPositive() {
			continue
		}
		applicable = append(applicable, ApplicableCoupon{
			Coupon:   active[i],
			Discount: amount.Round(2),
			Message:  reason,
		})
	}
	return applicable, nil
}

// ApplyByID applies the coupon with the given id to the cart. It returns
// ErrNotFound when the id does not resolve and a NotApplicableError carrying
// the engine's reason when the computed discount is zero.
func (s *Service) ApplyByID(ctx context.Context, id string, crt cart.Cart) (cart.Cart, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return cart.Cart{}, err
	}

	amount, reason := ComputeDiscount(c, crt)
	if !amount.IsPositive() {
		return cart.Cart{}, &NotApplicableError{Reason: reason}
	}

	return Apply(c, crt), nil
}
