package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

const (
	couponColumns = `id, name, code, coupon_type, description, valid_from, valid_to, active,
		min_cart_amount, discount_percentage, fixed_discount, applicable_products,
		buy_products, buy_quantity, get_products, get_quantity, repetition_limit,
		created_at, updated_at`

	createCouponSQL = `INSERT INTO coupons (id, name, code, coupon_type, description,
		valid_from, valid_to, active, min_cart_amount, discount_percentage, fixed_discount,
		applicable_products, buy_products, buy_quantity, get_products, get_quantity, repetition_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at, id`

	// Mirrors the active-coupon selection the service relies on: active flag
	// set and now within [valid_from, valid_to], or valid_from unset.
	findActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE active = TRUE AND (($1 BETWEEN valid_from AND valid_to) OR valid_from IS NULL)
		ORDER BY created_at, id`

	updateCouponSQL = `UPDATE coupons SET name = $2, description = $3, valid_from = $4,
		valid_to = $5, active = $6, updated_at = now() WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	existsByCodeSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE UPPER(code) = UPPER($1))`
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Create persists a new coupon definition. A concurrent insert with the same
// code surfaces as coupon.ErrCodeExists via the unique constraint.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	var (
		minCart  *decimal.Decimal
		pct      *decimal.Decimal
		fixed    *decimal.Decimal
		products []string
		buy      []string
		buyQty   *int32
		get      []string
		getQty   *int32
		repLimit *int32
	)

	switch c.Type {
	case coupon.TypeCartWise:
		m := c.CartWise.MinCartAmount
		minCart = &m
		pct = c.CartWise.DiscountPercentage
		fixed = c.CartWise.FixedDiscount
	case coupon.TypeProductWise:
		products = c.ProductWise.ApplicableProducts
		pct = c.ProductWise.DiscountPercentage
		fixed = c.ProductWise.FixedDiscount
	case coupon.TypeBxGy:
		buy = c.BxGy.BuyProducts
		get = c.BxGy.GetProducts
		buyQty = int32Ptr(c.BxGy.BuyQuantity)
		getQty = int32Ptr(c.BxGy.GetQuantity)
		repLimit = int32Ptr(c.BxGy.RepetitionLimit)
	}

	_, err := r.pool.Exec(ctx, createCouponSQL,
		c.ID, c.Name, c.Code, string(c.Type), c.Description,
		c.ValidFrom, c.ValidTo, c.Active,
		minCart, pct, fixed, products,
		buy, buyQty, get, getQty, repLimit,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// GetByID returns the coupon with the given id, or coupon.ErrNotFound.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	return &c, nil
}

// List returns all coupon definitions ordered by creation time.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// FindActive returns active coupons whose validity window contains now, or
// whose valid_from is unset.
func (r *CouponRepository) FindActive(ctx context.Context, now time.Time) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findActiveCouponsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("finding active coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Update persists the coupon's mutable metadata. Variant rule columns are
// never touched after creation.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Name, c.Description, c.ValidFrom, c.ValidTo, c.Active,
	)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes the coupon with the given id, or returns coupon.ErrNotFound.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// ExistsByCode reports whether a coupon with the given code exists
// (case-insensitive).
func (r *CouponRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, existsByCodeSQL, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking coupon code %q: %w", code, err)
	}
	return exists, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c          coupon.Coupon
		couponType string
		minCart    decimal.NullDecimal
		pct        decimal.NullDecimal
		fixed      decimal.NullDecimal
		products   []string
		buy        []string
		buyQty     *int32
		get        []string
		getQty     *int32
		repLimit   *int32
	)

	err := row.Scan(
		&c.ID, &c.Name, &c.Code, &couponType, &c.Description,
		&c.ValidFrom, &c.ValidTo, &c.Active,
		&minCart, &pct, &fixed, &products,
		&buy, &buyQty, &get, &getQty, &repLimit,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return coupon.Coupon{}, err
	}

	c.Type = coupon.Type(couponType)
	switch c.Type {
	case coupon.TypeCartWise:
		c.CartWise = &coupon.CartWiseRule{
			MinCartAmount:      minCart.Decimal,
			DiscountPercentage: decimalPtr(pct),
			FixedDiscount:      decimalPtr(fixed),
		}
	case coupon.TypeProductWise:
		c.ProductWise = &coupon.ProductWiseRule{
			ApplicableProducts: products,
			DiscountPercentage: decimalPtr(pct),
			FixedDiscount:      decimalPtr(fixed),
		}
	case coupon.TypeBxGy:
		c.BxGy = &coupon.BxGyRule{
			BuyProducts:     buy,
			BuyQuantity:     intValue(buyQty),
			GetProducts:     get,
			GetQuantity:     intValue(getQty),
			RepetitionLimit: intValue(repLimit),
		}
	}
	return c, nil
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func int32Ptr(v int) *int32 {
	i := int32(v)
	return &i
}

func intValue(p *int32) int {
	if p == nil {
		return 0
	}
	return int(*p)
}
