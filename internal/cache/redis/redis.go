// Package redis implements audit.PageCache on top of go-redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/website-audit/internal/audit"
)

const keyPrefix = "siteaudit:page:"

// Client is the subset of redis.Cmdable the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cache stores extracted pages as JSON under hashed URL keys.
type Cache struct {
	client Client
	hasher audit.Hasher
	ttl    time.Duration
}

// New wraps a go-redis client.
func New(client Client, hasher audit.Hasher, ttl time.Duration) *Cache {
	return &Cache{client: client, hasher: hasher, ttl: ttl}
}

// NewClient dials a go-redis client for addr.
func NewClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
}

func (c *Cache) key(url string) (string, error) {
	digest, err := c.hasher.Hash([]byte(url))
	if err != nil {
		return "", fmt.Errorf("hash cache key: %w", err)
	}
	return keyPrefix + digest, nil
}

// Get implements audit.PageCache. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, url string) (audit.ExtractedPage, bool, error) {
	key, err := c.key(url)
	if err != nil {
		return audit.ExtractedPage{}, false, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return audit.ExtractedPage{}, false, nil
	}
	if err != nil {
		return audit.ExtractedPage{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var page audit.ExtractedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return audit.ExtractedPage{}, false, fmt.Errorf("decode cached page: %w", err)
	}
	return page, true, nil
}

// Set implements audit.PageCache.
func (c *Cache) Set(ctx context.Context, url string, page audit.ExtractedPage) error {
	key, err := c.key(url)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	if err := c.client.SetEx(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis setex %s: %w", key, err)
	}
	return nil
}
