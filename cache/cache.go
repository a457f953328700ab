// Package cache is a best-effort JSON cache on Redis. When Redis is disabled or
// unreachable every Get is a miss and writes are dropped.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/sirupsen/logrus"
)

const (
	DefaultURL  = "redis://localhost:6379"
	dialTimeout = 2 * time.Second
)

type Options struct {
	Enabled bool
	URL     string
}

type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

// New connects when opts.Enabled is set. Connection problems are logged and yield a
// disabled cache rather than an error.
func New(opts Options, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Cache{logger: logger}
	if !opts.Enabled {
		logger.Info("redis caching is disabled")
		return c
	}
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		logger.WithError(err).Error("invalid redis url, caching disabled")
		return c
	}
	redisOpts.DialTimeout = dialTimeout
	redisOpts.MaxRetries = 2

	client := redis.NewClient(redisOpts)
	if err := client.Ping().Err(); err != nil {
		logger.WithError(err).WithField("addr", redisOpts.Addr).Error("failed to initialize redis, caching disabled")
		_ = client.Close()
		return c
	}
	logger.WithField("addr", redisOpts.Addr).Info("redis cache initialized")
	c.client = client
	return c
}

// NewWithClient wraps an existing client; a nil client gives a disabled cache.
func NewWithClient(client *redis.Client, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Cache{client: client, logger: logger}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the value at key into dst. found is false on a miss or a disabled cache.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) (found bool, err error) {
	if !c.Enabled() {
		return false, nil
	}
	raw, err := c.client.WithContext(ctx).Get(key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache get failed")
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores v as JSON for ttl.
func (c *Cache) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.WithContext(ctx).Set(key, raw, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache set failed")
	}
	return nil
}

func (c *Cache) Del(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.WithContext(ctx).Del(keys...).Err(); err != nil {
		c.logger.WithError(err).WithField("keys", keys).Warn("cache delete failed")
	}
}

// Status is "enabled", "disabled" or "unreachable".
func (c *Cache) Status(ctx context.Context) string {
	if !c.Enabled() {
		return "disabled"
	}
	if err := c.client.WithContext(ctx).Ping().Err(); err != nil {
		return "unreachable"
	}
	return "enabled"
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
