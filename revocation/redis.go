package revocation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores revocations as keys under a prefix. When EvictExpired is set
// each key carries the token's remaining lifetime plus Options.Leeway as its
// TTL, so Redis does the sweeping itself.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	opts   Options
	now    func() time.Time
}

// NewRedis creates a Redis registry. An empty prefix selects "revoked".
func NewRedis(client redis.UniversalClient, prefix string, opts Options) *Redis {
	if prefix == "" {
		prefix = "revoked"
	}
	return &Redis{
		redis:  client,
		prefix: prefix,
		opts:   opts,
		now:    time.Now,
	}
}

func (r *Redis) key(jti string) string {
	return r.prefix + ":" + jti
}

// Revoke records jti with SET. An already-expired token is still recorded
// with a one second TTL so concurrent readers observe it.
func (r *Redis) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	var ttl time.Duration
	if r.opts.EvictExpired && !expiresAt.IsZero() {
		ttl = expiresAt.Add(r.opts.Leeway).Sub(r.now())
		if ttl < time.Second {
			ttl = time.Second
		}
	}

	value := "0"
	if !expiresAt.IsZero() {
		value = strconv.FormatInt(expiresAt.Unix(), 10)
	}

	if err := r.redis.Set(ctx, r.key(jti), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked checks key existence.
func (r *Redis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (r *Redis) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
