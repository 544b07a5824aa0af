package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// cachedPrice is the JSON payload stored per symbol. FetchedAt is carried in
// the payload rather than relying on key expiry so that stale values stay
// retrievable for the fallback path.
type cachedPrice struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Keys live well past the TTL; freshness is decided from FetchedAt.
const redisKeyExpiry = 24 * time.Hour

// RedisCache is the Redis-backed PriceCache backend.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Entry
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisCache creates a Redis-backed price cache.
func NewRedisCache(cfg *config.RedisConfig, ttl time.Duration, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		logger: logger.WithField("component", "redis-cache"),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// NewRedisCacheFromClient wraps an existing client, used by tests.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger.WithField("component", "redis-cache"),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetNowFunc overrides the clock, used by tests.
func (c *RedisCache) SetNowFunc(now func() time.Time) {
	c.now = now
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Health checks Redis health
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func priceKey(symbol string) string {
	return fmt.Sprintf("price:%s", symbol)
}

func (c *RedisCache) load(ctx context.Context, symbol string) (*cachedPrice, bool) {
	data, err := c.client.Get(ctx, priceKey(symbol)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to read cached price")
		return nil, false
	}

	var entry cachedPrice
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to unmarshal cached price")
		return nil, false
	}

	return &entry, true
}

// Get returns a fresh entry for symbol, if any.
func (c *RedisCache) Get(ctx context.Context, symbol string) (float64, time.Duration, bool) {
	entry, ok := c.load(ctx, symbol)
	if !ok {
		return 0, 0, false
	}

	age := c.now().Sub(entry.FetchedAt)
	if age >= c.ttl {
		return 0, 0, false
	}

	return entry.Price, age, true
}

// GetAny returns the entry for symbol even when expired.
func (c *RedisCache) GetAny(ctx context.Context, symbol string) (float64, bool) {
	entry, ok := c.load(ctx, symbol)
	if !ok {
		return 0, false
	}
	return entry.Price, true
}

// Put overwrites the entry for symbol. Write failures are logged and
// swallowed; the cache is an optimization, not a source of truth.
func (c *RedisCache) Put(ctx context.Context, symbol string, price float64) {
	entry := cachedPrice{Symbol: symbol, Price: price, FetchedAt: c.now()}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to marshal price")
		return
	}

	if err := c.client.Set(ctx, priceKey(symbol), data, redisKeyExpiry).Err(); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to cache price")
	}
}
