package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClaimer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	c := NewRedisClaimer(client, "alert", time.Hour)

	ok, err := c.Claim(ctx, "user:1:cycle")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Claim(ctx, "user:1:cycle")
	require.NoError(t, err)
	assert.False(t, ok, "second claim on the same key must lose")

	assert.True(t, mr.Exists("alert:user:1:cycle"))

	ok, err = c.Claim(ctx, "user:2:cycle")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = c.Claim(ctx, "user:1:cycle")
	require.NoError(t, err)
	assert.True(t, ok, "expired claim can be taken again")

	require.NoError(t, c.Release(ctx, "user:2:cycle"))
	ok, err = c.Claim(ctx, "user:2:cycle")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisClaimerError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err := NewRedisClaimer(client, "", 0).Claim(context.Background(), "k")
	assert.Error(t, err)
}

func TestMemoryClaimer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryClaimer(time.Hour)
	c.now = func() time.Time { return now }

	ok, _ := c.Claim(ctx, "k")
	assert.True(t, ok)
	ok, _ = c.Claim(ctx, "k")
	assert.False(t, ok)

	now = now.Add(61 * time.Minute)
	ok, _ = c.Claim(ctx, "k")
	assert.True(t, ok)

	require.NoError(t, c.Release(ctx, "k"))
	ok, _ = c.Claim(ctx, "k")
	assert.True(t, ok)
}
