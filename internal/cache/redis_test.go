package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orderflow/internal/domain/report"
)

type fakeClient struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestReportCache(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	c := NewReportCache(client, time.Minute)

	var got report.AdminReport
	ok, err := c.Get(ctx, "report:admin:x", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := report.AdminReport{
		TotalRevenue: decimal.RequireFromString("123.45"),
		TotalOrders:  3,
		ByStatus:     []report.StatusCount{{Status: "pending", Count: 3}},
	}
	require.NoError(t, c.Set(ctx, "report:admin:x", want))
	assert.Equal(t, time.Minute, client.ttls["report:admin:x"])

	ok, err = c.Get(ctx, "report:admin:x", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, want.TotalRevenue.Equal(got.TotalRevenue))
	assert.Equal(t, want.TotalOrders, got.TotalOrders)
	assert.Equal(t, want.ByStatus, got.ByStatus)
}

func TestReportCacheErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Backend", func(t *testing.T) {
		client := newFakeClient()
		client.getErr = errors.New("connection reset")
		c := NewReportCache(client, time.Minute)

		var dst report.SellerReport
		ok, err := c.Get(ctx, "k", &dst)
		require.ErrorContains(t, err, "connection reset")
		assert.False(t, ok)
	})
	t.Run("Corrupt", func(t *testing.T) {
		client := newFakeClient()
		client.data["k"] = []byte("{")
		c := NewReportCache(client, time.Minute)

		var dst report.SellerReport
		ok, err := c.Get(ctx, "k", &dst)
		require.Error(t, err)
		assert.False(t, ok)
	})
}
