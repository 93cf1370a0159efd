package storeauth

import "time"

// TokenType is the scheme reported in LoginResult.TokenType.
const TokenType = "Bearer"

// Principal is the identity admitted by Authorize.
type Principal struct {
	UserID    int64
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	UserID      int64
	AccessToken string
	TokenType   string
	TokenID     string
	ExpiresAt   time.Time
}

// User is the public view of a stored identity. It never carries the
// password digest.
type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}
