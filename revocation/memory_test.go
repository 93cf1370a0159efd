package revocation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryRevokeVisibility(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	revoked, err := m.IsRevoked(ctx, "j1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, m.Revoke(ctx, "j1", time.Now().Add(time.Minute)))

	revoked, err = m.IsRevoked(ctx, "j1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = m.IsRevoked(ctx, "j2")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryRevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	exp := time.Now().Add(time.Minute)

	require.NoError(t, m.Revoke(ctx, "j1", exp))
	require.NoError(t, m.Revoke(ctx, "j1", exp))
	require.Equal(t, 1, m.Len())
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, m.Revoke(ctx, "expired", now.Add(-time.Second)))
	require.NoError(t, m.Revoke(ctx, "live", now.Add(time.Minute)))
	require.NoError(t, m.Revoke(ctx, "forever", time.Time{}))

	n, err := m.Sweep(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	for jti, want := range map[string]bool{"expired": false, "live": true, "forever": true} {
		got, err := m.IsRevoked(ctx, jti)
		require.NoError(t, err)
		require.Equal(t, want, got, jti)
	}
}

func TestMemoryRevokeKeepsLongestExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, m.Revoke(ctx, "j", now.Add(time.Minute)))
	require.NoError(t, m.Revoke(ctx, "j", now.Add(-time.Minute)))

	n, err := m.Sweep(ctx, now)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMemoryConcurrentRevokeAndCheck(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	exp := time.Now().Add(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jti := fmt.Sprintf("j-%d", i)
			if err := m.Revoke(ctx, jti, exp); err != nil {
				t.Errorf("revoke: %v", err)
				return
			}
			ok, err := m.IsRevoked(ctx, jti)
			if err != nil || !ok {
				t.Errorf("expected %s revoked, ok=%v err=%v", jti, ok, err)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 32, m.Len())
}

var (
	_ Registry = (*Memory)(nil)
	_ Sweeper  = (*Memory)(nil)
	_ Registry = (*Redis)(nil)
	_ Registry = (*Postgres)(nil)
	_ Sweeper  = (*Postgres)(nil)
)
