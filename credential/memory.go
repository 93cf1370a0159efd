package credential

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with sequential IDs.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]User
	byUsername map[string]int64
	now        func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[int64]User),
		byUsername: make(map[string]int64),
		now:        time.Now,
	}
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Insert assigns the next ID and stores u. The ID and CreatedAt fields of
// the argument are ignored.
func (s *MemoryStore) Insert(ctx context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[u.Username]; taken {
		return User{}, ErrDuplicateKey
	}

	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = s.now().UTC()
	s.byID[u.ID] = u
	s.byUsername[u.Username] = u.ID
	return u, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byUsername, u.Username)
	return nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	s.byID[id] = u
	return nil
}

// Len returns the number of stored users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
