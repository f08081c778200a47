// Package codefilter provides an in-memory membership set for voucher codes,
// backed by a bloom filter. It answers "can this code possibly be valid?"
// cheaply before any store lookup; false positives are possible, false
// negatives are not.
package codefilter

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

// Code length bounds accepted by the loader. Anything outside is noise in
// the dump files, not a voucher code.
const (
	MinCodeLen = 4
	MaxCodeLen = 16
)

// Filter is a bloom-filter membership set over voucher codes. Codes are
// matched case-insensitively.
type Filter struct {
	bf *bloom.BloomFilter
}

// New creates a Filter sized for the expected number of codes and the given
// false-positive rate.
func New(capacity uint, fpr float64) *Filter {
	return &Filter{bf: bloom.NewWithEstimates(capacity, fpr)}
}

// Add inserts a code.
func (f *Filter) Add(code string) {
	f.bf.AddString(strings.ToUpper(code))
}

// MightContain reports whether the code may be in the set. A false result is
// definitive; a true result must be confirmed against the backing store.
func (f *Filter) MightContain(code string) bool {
	return f.bf.TestString(strings.ToUpper(code))
}

// LoadGzipped builds a Filter from gzipped newline-separated code dumps,
// scanning the files concurrently and merging the per-file filters.
func LoadGzipped(ctx context.Context, paths []string, capacity uint, fpr float64) (*Filter, error) {
	if len(paths) == 0 {
		return nil, errors.New("no code files given")
	}
	filters := make([]*bloom.BloomFilter, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := scanFile(ctx, path, capacity, fpr)
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			filters[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := filters[0]
	for _, f := range filters[1:] {
		if err := merged.Merge(f); err != nil {
			return nil, errors.Wrap(err, "merge filters")
		}
	}
	return &Filter{bf: merged}, nil
}

func scanFile(ctx context.Context, path string, capacity uint, fpr float64) (*bloom.BloomFilter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gz, err := pgzip.NewReader(file)
	if err != nil {
		return nil, errors.Wrap(err, "gzip reader")
	}
	defer gz.Close()

	bf := bloom.NewWithEstimates(capacity, fpr)
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		code := strings.TrimSpace(scanner.Text())
		if len(code) < MinCodeLen || len(code) > MaxCodeLen {
			continue
		}
		bf.AddString(strings.ToUpper(code))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan codes")
	}
	return bf, nil
}
