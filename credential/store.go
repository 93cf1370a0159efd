package credential

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateKey is returned by Insert when the username is taken.
	ErrDuplicateKey = errors.New("username already exists")
	// ErrUnavailable wraps any other backend failure.
	ErrUnavailable = errors.New("credential store unavailable")
)

// User is a stored identity. PasswordHash is an opaque digest and is never
// the plaintext.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store persists users. Username comparison is exact and byte-wise.
//
// Insert must enforce username uniqueness atomically so that two concurrent
// inserts of the same name leave exactly one record.
type Store interface {
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	Insert(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64) error
}

// PasswordUpdater is implemented by stores that can replace a stored digest
// in place. The engine uses it to re-hash passwords with stronger parameters
// after a successful login.
type PasswordUpdater interface {
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}
