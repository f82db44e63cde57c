package redisclient

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireRunLock takes the single-writer-per-day run lock. Returns false
// when another run already holds the day.
func (c *Client) AcquireRunLock(ctx context.Context, day string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("run:%s", day), "1", ttl).Result()
}

// ReleaseRunLock releases the day's run lock.
func (c *Client) ReleaseRunLock(ctx context.Context, day string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("run:%s", day)).Err()
}

// scoreKey hashes a normalized-name pair order-independently, so the cache
// hits for both argument orders.
func scoreKey(nameA, nameB string) string {
	if nameB < nameA {
		nameA, nameB = nameB, nameA
	}
	sum := md5.Sum([]byte(nameA + "|" + nameB))
	return "match:" + hex.EncodeToString(sum[:])
}

// CacheScore memoizes a high-confidence match score for a name pair.
func (c *Client) CacheScore(ctx context.Context, nameA, nameB string, score float64, ttl time.Duration) error {
	return c.rdb.Set(ctx, scoreKey(nameA, nameB), strconv.FormatFloat(score, 'f', 2, 64), ttl).Err()
}

// CachedScore returns a memoized score for a name pair; ok is false on a
// cache miss.
func (c *Client) CachedScore(ctx context.Context, nameA, nameB string) (float64, bool, error) {
	val, err := c.rdb.Get(ctx, scoreKey(nameA, nameB)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached score %q: %w", val, err)
	}
	return score, true, nil
}

// MarkDetected sets the fast-path idempotence key for one detection.
// Returns false when the (kind, product, site, day) was already marked,
// meaning the detector ran for this pair today.
func (c *Client) MarkDetected(ctx context.Context, kind string, productID int64, site, day string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("detect:%s:%d:%s:%s", kind, productID, site, day)
	return c.rdb.SetNX(ctx, key, "1", ttl).Result()
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
