package credential

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreInsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	alice, err := s.Insert(ctx, User{Username: "alice", PasswordHash: "h1"})
	require.NoError(t, err)
	require.Equal(t, int64(1), alice.ID)
	require.False(t, alice.CreatedAt.IsZero())

	bob, err := s.Insert(ctx, User{Username: "bob", PasswordHash: "h2"})
	require.NoError(t, err)
	require.Equal(t, int64(2), bob.ID)

	got, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice, got)

	got, err = s.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", got.Username)
}

func TestMemoryStoreUsernameIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Insert(ctx, User{Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, User{Username: "Alice", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = s.FindByUsername(ctx, "ALICE")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Insert(ctx, User{Username: "alice", PasswordHash: "h1"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, User{Username: "alice", PasswordHash: "h2"})
	require.ErrorIs(t, err, ErrDuplicateKey)
	require.Equal(t, 1, s.Len())

	got, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "h1", got.PasswordHash)
}

func TestMemoryStoreConcurrentDuplicateInsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Insert(ctx, User{Username: "race", PasswordHash: "h"}); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, 1, s.Len())
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u, err := s.Insert(ctx, User{Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, u.ID))
	require.ErrorIs(t, s.Delete(ctx, u.ID), ErrNotFound)

	_, err = s.FindByUsername(ctx, "alice")
	require.ErrorIs(t, err, ErrNotFound)

	again, err := s.Insert(ctx, User{Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	require.NotEqual(t, u.ID, again.ID)
}

func TestMemoryStoreUpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u, err := s.Insert(ctx, User{Username: "alice", PasswordHash: "old"})
	require.NoError(t, err)

	require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "new"))
	got, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "new", got.PasswordHash)

	require.ErrorIs(t, s.UpdatePasswordHash(ctx, 99, "x"), ErrNotFound)
}

var (
	_ Store           = (*MemoryStore)(nil)
	_ Store           = (*PostgresStore)(nil)
	_ PasswordUpdater = (*MemoryStore)(nil)
	_ PasswordUpdater = (*PostgresStore)(nil)
)
