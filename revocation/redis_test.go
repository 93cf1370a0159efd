package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisTest(t *testing.T, opts Options) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedis(rdb, "rv", opts), mr
}

func TestRedisRevokeVisibility(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisTest(t, Options{})

	ok, err := reg.IsRevoked(ctx, "j1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, reg.Revoke(ctx, "j1", time.Now().Add(time.Minute)))
	require.NoError(t, reg.Revoke(ctx, "j1", time.Now().Add(time.Minute)))

	ok, err = reg.IsRevoked(ctx, "j1")
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, mr.Exists("rv:j1"))
	require.Zero(t, mr.TTL("rv:j1"), "no TTL without eviction")
}

func TestRedisEvictExpiredSetsTTL(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisTest(t, Options{EvictExpired: true})

	require.NoError(t, reg.Revoke(ctx, "j1", time.Now().Add(10*time.Minute)))
	ttl := mr.TTL("rv:j1")
	require.Greater(t, ttl, 9*time.Minute)
	require.LessOrEqual(t, ttl, 10*time.Minute)

	mr.FastForward(11 * time.Minute)
	ok, err := reg.IsRevoked(ctx, "j1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisEvictExpiredAlreadyExpiredToken(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisTest(t, Options{EvictExpired: true})

	require.NoError(t, reg.Revoke(ctx, "old", time.Now().Add(-time.Minute)))
	require.Equal(t, time.Second, mr.TTL("rv:old"))
}

func TestRedisEvictExpiredAddsLeeway(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisTest(t, Options{EvictExpired: true, Leeway: 2 * time.Minute})

	require.NoError(t, reg.Revoke(ctx, "j1", time.Now().Add(time.Minute)))
	ttl := mr.TTL("rv:j1")
	require.Greater(t, ttl, 2*time.Minute)
	require.LessOrEqual(t, ttl, 3*time.Minute)

	mr.FastForward(90 * time.Second)
	ok, err := reg.IsRevoked(ctx, "j1")
	require.NoError(t, err)
	require.True(t, ok, "entry must outlive exp while the leeway still admits the token")
}

func TestRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisTest(t, Options{})
	mr.Close()

	err := reg.Revoke(ctx, "j1", time.Now().Add(time.Minute))
	require.True(t, errors.Is(err, ErrUnavailable))

	_, err = reg.IsRevoked(ctx, "j1")
	require.True(t, errors.Is(err, ErrUnavailable))

	_, err = reg.Ping(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
}
