// Command voucher-ingest seeds the voucher rule store from gzipped code
// dumps. A code is considered valid when it appears in at least two dump
// files; bloom filters keep the cross-file membership checks cheap.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/peakcart/discount-service/internal/codefilter"
	"github.com/peakcart/discount-service/internal/postgres"
)

const (
	bloomCapacity  = 10_000_000
	bloomFPR       = 0.001
	minOccurrences = 2
)

const upsertVoucherSQL = `INSERT INTO vouchers (code, percentage, description, active)
	VALUES ($1, $2, $3, TRUE)
	ON CONFLICT (code) DO NOTHING`

func main() {
	var (
		databaseURL string
		percentage  string
		description string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&percentage, "percentage", "10", "discount percentage assigned to ingested codes")
	flag.StringVar(&description, "description", "Valid promo code", "description assigned to ingested codes")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	files := flag.Args()
	if len(files) < minOccurrences {
		slog.Error("need at least two gzipped code dump files")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, databaseURL, percentage, description); err != nil {
		slog.Error("voucher ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("voucher ingest completed successfully")
}

func run(ctx context.Context, files []string, databaseURL, percentage, description string) error {
	// Pass 1: one bloom filter per file, built concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: rescan and keep codes present in enough other files.
	slog.Info("pass 2: finding valid codes")
	codes, err := findValidCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find valid codes")
	}
	slog.Info("valid codes found", slog.Int("count", len(codes)))

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return insertCodes(ctx, pool, codes, percentage, description)
}

func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			bf := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			if err := scanCodes(ctx, path, func(code string) {
				bf.AddString(code)
			}); err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			filters[i] = bf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findValidCodes returns codes that appear in at least minOccurrences files.
// Bloom membership narrows the candidates; the per-code set confirms them.
func findValidCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	seen := make(map[string]struct{})
	for i, path := range files {
		err := scanCodes(ctx, path, func(code string) {
			if _, ok := seen[code]; ok {
				return
			}
			hits := 1
			for j, bf := range filters {
				if j == i {
					continue
				}
				if bf.TestString(code) {
					hits++
				}
			}
			if hits >= minOccurrences {
				seen[code] = struct{}{}
			}
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", path)
		}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	return codes, nil
}

func scanCodes(ctx context.Context, path string, fn func(code string)) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	gz, err := pgzip.NewReader(file)
	if err != nil {
		return errors.Wrap(err, "gzip reader")
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if len(code) < codefilter.MinCodeLen || len(code) > codefilter.MaxCodeLen {
			continue
		}
		fn(code)
	}
	return scanner.Err()
}

func insertCodes(ctx context.Context, pool *pgxpool.Pool, codes []string, percentage, description string) error {
	for _, code := range codes {
		if _, err := pool.Exec(ctx, upsertVoucherSQL, code, percentage, description); err != nil {
			return errors.Wrapf(err, "insert code %s", code)
		}
	}
	slog.Info("codes inserted", slog.Int("count", len(codes)))
	return nil
}
