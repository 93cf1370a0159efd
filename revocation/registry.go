package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps every backend failure. Callers must treat it as
// "cannot decide" and fail closed.
var ErrUnavailable = errors.New("revocation store unavailable")

// Registry records revoked token identifiers.
//
// Revoke is idempotent. A Revoke that returned nil is visible to every later
// IsRevoked call on the same Registry.
type Registry interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Sweeper is implemented by backends that can evict entries whose token has
// already expired. Sweep returns the number of entries removed.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Options tune backend behavior shared across implementations.
type Options struct {
	// EvictExpired lets entries disappear once the referenced token can no
	// longer verify. When false, entries are kept forever.
	EvictExpired bool

	// Leeway extends every eviction horizon. It must match the verifier's
	// clock-skew allowance, or a revoked token outlives its entry.
	Leeway time.Duration
}
