package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/orderflow/internal/domain/coupon"
)

var header = []string{
	"code", "type", "value", "min_purchase", "max_discount", "valid_from", "valid_to", "usage_limit",
}

// Upserter stores coupons. *postgres.Store implements it.
type Upserter interface {
	UpsertCoupon(ctx context.Context, c coupon.Coupon) error
}

// Ingester imports coupon definitions from a set of gzip'd CSV files. A code
// defined in more than one file is ambiguous and skipped.
type Ingester struct {
	Files    []string
	Capacity uint
	FPR      float64
	Progress uint64
}

// Report summarizes an ingest run.
type Report struct {
	Written   int
	Conflicts []string
	Invalid   int
}

// Run executes the three passes and writes the unambiguous coupons to dst.
func (in *Ingester) Run(ctx context.Context, dst Upserter) (*Report, error) {
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(in.Files)))
	filters, err := in.buildFilters(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: finding codes shared between files")
	conflicts, err := in.findConflicts(ctx, filters)
	if err != nil {
		return nil, errors.Wrap(err, "find conflicts")
	}
	for code := range conflicts {
		slog.Warn("conflicting coupon skipped", slog.String("code", code))
	}

	slog.Info("pass 3: writing coupons", slog.Int("conflicts", len(conflicts)))
	rep := &Report{}
	for code := range conflicts {
		rep.Conflicts = append(rep.Conflicts, code)
	}
	for i, path := range in.Files {
		malformed, err := streamRows(ctx, path, func(row []string) error {
			c, err := parseRow(row)
			if err != nil {
				rep.Invalid++
				slog.Warn("invalid coupon row", slog.Int("file", i+1), slog.String("error", err.Error()))
				return nil
			}
			if _, ok := conflicts[c.Code]; ok {
				return nil
			}
			if err := dst.UpsertCoupon(ctx, c); err != nil {
				return err
			}
			rep.Written++
			if in.Progress > 0 && uint64(rep.Written)%in.Progress == 0 {
				slog.Info("write progress", slog.Int("written", rep.Written))
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "write coupons from file %d", i+1)
		}
		if malformed > 0 {
			rep.Invalid += malformed
			slog.Warn("rows with wrong field count skipped", slog.Int("file", i+1), slog.Int("rows", malformed))
		}
	}
	return rep, nil
}

func (in *Ingester) buildFilters(ctx context.Context) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(in.Files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range in.Files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(in.Capacity, in.FPR)
			var count uint64
			_, err := streamRows(ctx, path, func(row []string) error {
				if code := normalizeCode(row[0]); code != "" {
					filter.AddString(code)
					count++
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}
			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findConflicts returns codes present in two or more files. Bloom filters
// only nominate candidates; the per-file bitmasks confirm them exactly.
func (in *Ingester) findConflicts(ctx context.Context, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	candidates := make([]map[string]uint, len(in.Files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range in.Files {
		g.Go(func() error {
			found := make(map[string]uint)
			bit := uint(1) << uint(i)
			_, err := streamRows(ctx, path, func(row []string) error {
				code := normalizeCode(row[0])
				if code == "" {
					return nil
				}
				for j, f := range filters {
					if j != i && f.TestString(code) {
						found[code] |= bit
						break
					}
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}
			slog.Info("pass 2 complete", slog.Int("file", i+1), slog.Int("candidates", len(found)))
			candidates[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, found := range candidates {
		for code, mask := range found {
			merged[code] |= mask
		}
	}
	conflicts := make(map[string]struct{})
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			conflicts[code] = struct{}{}
		}
	}
	return conflicts, nil
}

// streamRows calls fn for every well-formed data row of a gzip'd CSV file
// and returns how many rows were skipped for having the wrong field count.
func streamRows(ctx context.Context, path string, fn func(row []string) error) (malformed int, _ error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = len(header)
	r.ReuseRecord = true

	first, err := r.Read()
	if err != nil {
		return 0, errors.Wrapf(err, "read header of %s", path)
	}
	if !strings.EqualFold(strings.TrimSpace(first[0]), header[0]) {
		return 0, errors.Errorf("%s: unexpected header %q", path, strings.Join(first, ","))
	}

	for {
		if err := ctx.Err(); err != nil {
			return malformed, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return malformed, nil
		}
		if errors.Is(err, csv.ErrFieldCount) {
			malformed++
			continue
		}
		if err != nil {
			return malformed, errors.Wrapf(err, "read %s", path)
		}
		if err := fn(row); err != nil {
			return malformed, err
		}
	}
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// parseRow converts a CSV row into an active coupon.
func parseRow(row []string) (coupon.Coupon, error) {
	c := coupon.Coupon{
		ID:       uuid.NewString(),
		Code:     normalizeCode(row[0]),
		Type:     coupon.Type(strings.ToLower(strings.TrimSpace(row[1]))),
		IsActive: true,
	}
	if c.Code == "" {
		return c, errors.New("empty code")
	}
	if !c.Type.Valid() {
		return c, errors.Errorf("%s: unknown type %q", c.Code, row[1])
	}

	var err error
	if c.Value, err = decimal.NewFromString(strings.TrimSpace(row[2])); err != nil {
		return c, errors.Wrapf(err, "%s: value", c.Code)
	}
	if c.Value.IsNegative() {
		return c, errors.Errorf("%s: negative value", c.Code)
	}
	if c.MinPurchaseAmount, err = optionalDecimal(row[3]); err != nil {
		return c, errors.Wrapf(err, "%s: min_purchase", c.Code)
	}
	if c.MaxDiscountAmount, err = optionalDecimal(row[4]); err != nil {
		return c, errors.Wrapf(err, "%s: max_discount", c.Code)
	}
	if c.ValidFrom, err = parseTime(row[5]); err != nil {
		return c, errors.Wrapf(err, "%s: valid_from", c.Code)
	}
	if c.ValidTo, err = parseTime(row[6]); err != nil {
		return c, errors.Wrapf(err, "%s: valid_to", c.Code)
	}
	if c.ValidTo.Before(c.ValidFrom) {
		return c, errors.Errorf("%s: validity window ends before it starts", c.Code)
	}
	if s := strings.TrimSpace(row[7]); s != "" {
		if c.UsageLimit, err = strconv.Atoi(s); err != nil || c.UsageLimit < 0 {
			return c, errors.Errorf("%s: bad usage_limit %q", c.Code, s)
		}
	}
	return c, nil
}

func optionalDecimal(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}
