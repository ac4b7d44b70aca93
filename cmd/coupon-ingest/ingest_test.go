package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orderflow/internal/domain/coupon"
)

const csvHeader = "code,type,value,min_purchase,max_discount,valid_from,valid_to,usage_limit\n"

func writeGz(t *testing.T, dir, name string, rows ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(csvHeader + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

type recordingUpserter struct {
	coupons map[string]coupon.Coupon
}

func (r *recordingUpserter) UpsertCoupon(_ context.Context, c coupon.Coupon) error {
	r.coupons[c.Code] = c
	return nil
}

func TestIngester(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "coupons1.csv.gz",
			"SAVE10,flat,10,,,2025-01-01,2026-01-01,100",
			"shared,percentage,5,,,2025-01-01,2026-01-01,0",
			"BROKEN,bogus,1,,,2025-01-01,2026-01-01,0",
		),
		writeGz(t, dir, "coupons2.csv.gz",
			"HALFOFF,percentage,50,20,100,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,0",
			"SHARED,flat,3,,,2025-01-01,2026-01-01,0",
		),
		writeGz(t, dir, "coupons3.csv.gz",
			"ONLYHERE,flat,1,,,2025-01-01,2026-01-01,1",
		),
	}

	in := &Ingester{Files: files, Capacity: 1000, FPR: 0.001}
	dst := &recordingUpserter{coupons: map[string]coupon.Coupon{}}
	rep, err := in.Run(context.Background(), dst)
	require.NoError(t, err)

	assert.Equal(t, []string{"SHARED"}, rep.Conflicts)
	assert.Equal(t, 1, rep.Invalid)
	assert.Equal(t, 3, rep.Written)

	codes := make([]string, 0, len(dst.coupons))
	for code := range dst.coupons {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	assert.Equal(t, []string{"HALFOFF", "ONLYHERE", "SAVE10"}, codes)

	half := dst.coupons["HALFOFF"]
	assert.Equal(t, coupon.TypePercentage, half.Type)
	require.NotNil(t, half.MinPurchaseAmount)
	require.NotNil(t, half.MaxDiscountAmount)
	assert.Equal(t, "100", half.MaxDiscountAmount.String())
	assert.True(t, half.IsActive)
	assert.NotEmpty(t, half.ID)
}

func TestIngesterWrongFieldCount(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "coupons1.csv.gz",
			"SHORT,flat,1",
			"KEEP,flat,5,,,2025-01-01,2026-01-01,0",
			"LONG,flat,1,,,2025-01-01,2026-01-01,0,extra",
		),
		writeGz(t, dir, "coupons2.csv.gz",
			"SHORT,flat,2,,,2025-01-01,2026-01-01,0",
		),
	}

	in := &Ingester{Files: files, Capacity: 100, FPR: 0.001}
	dst := &recordingUpserter{coupons: map[string]coupon.Coupon{}}
	rep, err := in.Run(context.Background(), dst)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Invalid)
	assert.Empty(t, rep.Conflicts, "malformed rows must not claim codes")
	assert.Equal(t, 2, rep.Written)
	assert.Contains(t, dst.coupons, "KEEP")
	assert.Equal(t, "2", dst.coupons["SHORT"].Value.String())
}

func TestIngesterBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coupons1.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte("a,b,c,d,e,f,g,h\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	in := &Ingester{Files: []string{path}, Capacity: 10, FPR: 0.01}
	_, err = in.Run(context.Background(), &recordingUpserter{coupons: map[string]coupon.Coupon{}})
	require.ErrorContains(t, err, "unexpected header")
}

func TestParseRow(t *testing.T) {
	row := func(s string) []string { return strings.Split(s, ",") }

	c, err := parseRow(row(" save10 ,FLAT,10,50,,2025-01-01,2025-02-01, 7 "))
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", c.Code)
	assert.Equal(t, coupon.TypeFlat, c.Type)
	assert.Equal(t, "50", c.MinPurchaseAmount.String())
	assert.Nil(t, c.MaxDiscountAmount)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), c.ValidFrom)
	assert.Equal(t, 7, c.UsageLimit)

	sameDay, err := parseRow(row("ONEDAY,flat,1,,,2025-03-01,2025-03-01,0"))
	require.NoError(t, err, "a window may start and end at the same instant")
	assert.Equal(t, sameDay.ValidFrom, sameDay.ValidTo)

	for _, bad := range []string{
		",flat,1,,,2025-01-01,2025-02-01,0",
		"X,gift,1,,,2025-01-01,2025-02-01,0",
		"X,flat,abc,,,2025-01-01,2025-02-01,0",
		"X,flat,-1,,,2025-01-01,2025-02-01,0",
		"X,flat,1,zz,,2025-01-01,2025-02-01,0",
		"X,flat,1,,,tomorrow,2025-02-01,0",
		"X,flat,1,,,2025-02-01,2025-01-01,0",
		"X,flat,1,,,2025-01-01,2025-02-01,-3",
	} {
		_, err := parseRow(row(bad))
		assert.Error(t, err, bad)
	}
}
