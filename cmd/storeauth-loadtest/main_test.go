package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(5), percentile(samples, 50))
	assert.Equal(t, time.Duration(10), percentile(samples, 100))
	assert.Zero(t, percentile(nil, 50))
}

func TestPhasesAgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := buildEngine(client, "lt")
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	ctx := context.Background()
	states, err := seed(ctx, engine, 6)
	require.NoError(t, err)

	first := runAuthorizePhase(ctx, engine, states, 60, 4)
	assert.Equal(t, 60, first.ops)
	assert.Zero(t, first.failures)

	logout := runLogoutPhase(ctx, engine, states, 4)
	assert.Equal(t, 3, logout.ops)
	assert.Zero(t, logout.failures)

	recheck := runAuthorizePhase(ctx, engine, states, 60, 4)
	assert.Zero(t, recheck.failures)
}
