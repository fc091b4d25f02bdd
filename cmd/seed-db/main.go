// Command seed-db populates the database with sample coupons of all three
// variants and, optionally, an API key for the mutating endpoints.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/repository"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or COUPON_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or COUPON_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("COUPON_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("COUPON_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
	slog.Info("seed complete")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	svc := coupon.NewService(repository.NewCouponRepository(pool))
	for _, c := range sampleCoupons() {
		_, err := svc.Create(ctx, c)
		if errors.Is(err, coupon.ErrCodeExists) {
			slog.Info("coupon already seeded", "code", c.Code)
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "seed coupon %s", c.Code)
		}
		slog.Info("seeded coupon", "code", c.Code, "type", string(c.Type))
	}

	if apiKey != "" && pepper != "" {
		if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
		slog.Info("seeded api key")
	}
	return nil
}

func sampleCoupons() []*coupon.Coupon {
	tenPct := decimal.NewFromInt(10)
	fiveOff := decimal.NewFromInt(5)

	return []*coupon.Coupon{
		{
			Name:        "10% off orders over 100",
			Code:        "SAVE10",
			Type:        coupon.TypeCartWise,
			Description: "10% off the whole cart once it reaches 100",
			Active:      true,
			CartWise: &coupon.CartWiseRule{
				MinCartAmount:      decimal.NewFromInt(100),
				DiscountPercentage: &tenPct,
			},
		},
		{
			Name:        "5 off selected products",
			Code:        "PRODUCT5",
			Type:        coupon.TypeProductWise,
			Description: "5 off per unit of selected products",
			Active:      true,
			ProductWise: &coupon.ProductWiseRule{
				ApplicableProducts: []string{"P001", "P002"},
				FixedDiscount:      &fiveOff,
			},
		},
		{
			Name:        "Buy 2 get 1 free",
			Code:        "B2G1",
			Type:        coupon.TypeBxGy,
			Description: "Buy two trigger products, get one reward product free",
			Active:      true,
			BxGy: &coupon.BxGyRule{
				BuyProducts:     []string{"P001"},
				BuyQuantity:     2,
				GetProducts:     []string{"P002"},
				GetQuantity:     1,
				RepetitionLimit: 3,
			},
		},
	}
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, key, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	hash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx,
		`INSERT INTO api_keys (id, key_hash, name, scopes) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key_hash) DO NOTHING`,
		uuid.New().String(), hash, "seed", []string{"coupons:write"},
	)
	return err
}
