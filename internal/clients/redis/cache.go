package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/seifer44/lexigraph/internal/platform/logger"
)

// QueryCache fronts the graph query surface with short-lived response
// caching. The pipeline writes eventually-consistent snapshots anyway, so a
// small TTL costs no correctness.
type QueryCache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewQueryCache connects using REDIS_ADDR. An empty address means caching is
// disabled for the deployment; that returns (nil, nil), not an error.
func NewQueryCache(log *logger.Logger) (*QueryCache, error) {
	if log == nil {
		return nil, fmt.Errorf("redis: logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	ttl := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("REDIS_QUERY_TTL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &QueryCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With("client", "QueryCache"),
	}, nil
}

func (c *QueryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (c *QueryCache) Set(ctx context.Context, key string, val []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, val, c.ttl).Err(); err != nil {
		c.log.Debug("Cache set failed", "key", key, "error", err)
	}
}

func (c *QueryCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
