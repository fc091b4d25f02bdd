// Command coupon-import bulk-loads promo codes from gzipped text files (one
// code per line) and registers each unique valid code as a cart-wise
// percentage coupon. Files are scanned in parallel; a bloom filter screens
// duplicate codes across files before hitting the database.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	minCodeLen    = 8
	maxCodeLen    = 10
	progressEvery = 100_000
)

func main() {
	var (
		dataDir     string
		databaseURL string
		campaign    string
		percentage  int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing gzipped promo code files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&campaign, "campaign", "Promo code", "campaign name recorded on imported coupons")
	flag.IntVar(&percentage, "percentage", 10, "cart-wise percentage discount for imported codes")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, campaign, percentage); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir, databaseURL, campaign string, percentage int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list code files")
	}
	if len(files) == 0 {
		return errors.Errorf("no .gz files found in %s", dataDir)
	}

	// Phase 1: scan all files in parallel, collecting valid codes per file.
	results := make([][]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(files))
	for i, file := range files {
		g.Go(func() error {
			codes, err := scanFile(gctx, file)
			if err != nil {
				return errors.Wrapf(err, "scan %s", file)
			}
			results[i] = codes
			slog.Info("scanned file", "file", file, "codes", len(codes))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	repo := repository.NewCouponRepository(pool)

	// Phase 2: merge sequentially; the bloom filter drops codes already seen
	// in this run, and the unique constraint catches anything it lets through.
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	pct := decimal.NewFromInt(int64(percentage))

	imported, skipped := 0, 0
	for _, codes := range results {
		for _, code := range codes {
			if filter.TestAndAddString(code) {
				skipped++
				continue
			}

			err := repo.Create(ctx, &coupon.Coupon{
				ID:          uuid.New().String(),
				Name:        campaign,
				Code:        code,
				Type:        coupon.TypeCartWise,
				Description: campaign,
				Active:      true,
				CartWise: &coupon.CartWiseRule{
					MinCartAmount:      decimal.Zero,
					DiscountPercentage: &pct,
				},
			})
			if errors.Is(err, coupon.ErrCodeExists) {
				skipped++
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "import code %s", code)
			}

			imported++
			if imported%progressEvery == 0 {
				slog.Info("progress", "imported", imported, "skipped", skipped)
			}
		}
	}

	slog.Info("import complete", "imported", imported, "skipped", skipped)
	return nil
}

// scanFile reads a gzipped code file and returns all valid codes in order.
func scanFile(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip reader")
	}
	defer gz.Close()

	var codes []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if code := scanner.Text(); validCode(code) {
			codes = append(codes, code)
		}
	}
	return codes, scanner.Err()
}

// validCode reports whether a code is 8-10 uppercase alphanumeric characters.
func validCode(code string) bool {
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return false
	}
	for i := range len(code) {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
