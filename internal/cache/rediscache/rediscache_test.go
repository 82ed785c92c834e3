package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSet(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	b, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	_, ok, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_Counters(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()
	n, err := c.GetCounter(ctx, "event:1:attendance")
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = c.IncrCounter(ctx, "event:1:attendance")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = c.IncrCounter(ctx, "event:1:attendance")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = c.GetCounter(ctx, "event:1:attendance")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "rl:user:u1", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "rl:user:u1", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "rl:user:u1", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)
}
