package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claimer hands out one-time claims on a key. The first caller wins until the claim expires.
type Claimer interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisClaimer claims keys with SETNX so concurrent schedulers agree on a single winner
type RedisClaimer struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewRedisClaimer creates a Redis-backed claimer
func NewRedisClaimer(client *redis.Client, prefix string, defaultTTL time.Duration) *RedisClaimer {
	if prefix == "" {
		prefix = "claim"
	}
	if defaultTTL == 0 {
		defaultTTL = 24 * time.Hour
	}
	return &RedisClaimer{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

// Claim returns true if this call took the claim
func (c *RedisClaimer) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.makeKey(key), time.Now().Unix(), c.defaultTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release drops a claim so the key can be claimed again
func (c *RedisClaimer) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.makeKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisClaimer) makeKey(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

// MemoryClaimer is an in-process Claimer for single-binary runs and tests
type MemoryClaimer struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryClaimer creates an in-memory claimer
func NewMemoryClaimer(ttl time.Duration) *MemoryClaimer {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryClaimer{ttl: ttl, claims: make(map[string]time.Time), now: time.Now}
}

func (c *MemoryClaimer) Claim(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if expires, ok := c.claims[key]; ok && now.Before(expires) {
		return false, nil
	}
	c.claims[key] = now.Add(c.ttl)
	return true, nil
}

func (c *MemoryClaimer) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, key)
	return nil
}

var (
	_ Claimer = (*RedisClaimer)(nil)
	_ Claimer = (*MemoryClaimer)(nil)
)
