package revocation

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Registry guarded by a RWMutex. Readers never
// block each other; Revoke takes the write lock for a single map write.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemory returns an empty Memory registry.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]time.Time)}
}

// Revoke records jti. A zero expiresAt means the entry never becomes
// eligible for sweeping. Re-revoking keeps the later expiry.
func (m *Memory) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	if prev, ok := m.entries[jti]; !ok || (!prev.IsZero() && (expiresAt.IsZero() || expiresAt.After(prev))) {
		m.entries[jti] = expiresAt
	}
	m.mu.Unlock()
	return nil
}

// IsRevoked reports whether jti was revoked.
func (m *Memory) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.RLock()
	_, ok := m.entries[jti]
	m.mu.RUnlock()
	return ok, nil
}

// Sweep drops entries whose expiry is before now.
func (m *Memory) Sweep(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for jti, exp := range m.entries {
		if !exp.IsZero() && exp.Before(now) {
			delete(m.entries, jti)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
