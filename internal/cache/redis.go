// Package cache stores computed reports in Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/orderflow/internal/domain/report"
)

// Config configures the Redis connection.
type Config struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	ReportTTL time.Duration `default:"1m" yaml:"report_ttl"`
}

// Client is the subset of *redis.Client used by ReportCache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Connect opens a client and pings the server.
func Connect(ctx context.Context, cfg Config, lg *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}

	lg.Info("Redis connected", zap.String("addr", cfg.Addr))
	return rdb, nil
}

// ReportCache keeps JSON encoded reports for a fixed TTL.
type ReportCache struct {
	client Client
	ttl    time.Duration
}

var _ report.Cache = (*ReportCache)(nil)

// NewReportCache creates a ReportCache.
func NewReportCache(client Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// Get decodes the cached value into dst. A missing key is a miss, not an error.
func (c *ReportCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get %q", key)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "decode %q", key)
	}
	return true, nil
}

// Set stores v under key.
func (c *ReportCache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %q", key)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}
