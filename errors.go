package storeauth

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrAuthorizationRequired is returned when no token was presented.
	ErrAuthorizationRequired = errors.New("authorization required")
	// ErrInvalidToken covers bad signatures, wrong algorithms and malformed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for an authentic token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for an authentic, unexpired token that was logged out.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrInvalidCredentials is returned for an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUser is returned when registering a username that is taken.
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUserNotFound is returned by user lookup and deletion.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is returned when login throttling rejects an attempt.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrStorageUnavailable is returned when the credential store fails.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrRevocationUnavailable is returned when the revocation registry cannot
	// answer. Authorization fails closed on this error.
	ErrRevocationUnavailable = errors.New("revocation registry unavailable")
	// ErrInternal covers unexpected failures such as entropy or signing errors.
	ErrInternal = errors.New("internal error")
)

// Machine-readable rejection codes returned by Code.
const (
	CodeAuthorizationRequired = "authorization_required"
	CodeInvalidToken          = "invalid_token"
	CodeTokenExpired          = "token_expired"
	CodeTokenRevoked          = "token_revoked"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeDuplicateUser         = "duplicate_user"
	CodeValidationFailed      = "validation_failed"
	CodeUserNotFound          = "user_not_found"
	CodeLoginRateLimited      = "login_rate_limited"
	CodeStorageUnavailable    = "storage_unavailable"
	CodeRevocationUnavailable = "revocation_unavailable"
	CodeInternalError         = "internal_error"
)

// Code maps err to its rejection code. A nil error yields "". Errors that do
// not wrap any sentinel from this package map to CodeInternalError.
func Code(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAuthorizationRequired):
		return CodeAuthorizationRequired
	case errors.Is(err, ErrInvalidToken):
		return CodeInvalidToken
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return CodeTokenRevoked
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrDuplicateUser):
		return CodeDuplicateUser
	case errors.Is(err, ErrValidation):
		return CodeValidationFailed
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrLoginRateLimited):
		return CodeLoginRateLimited
	case errors.Is(err, ErrStorageUnavailable):
		return CodeStorageUnavailable
	case errors.Is(err, ErrRevocationUnavailable):
		return CodeRevocationUnavailable
	default:
		return CodeInternalError
	}
}

// ValidationError reports per-field input problems. It wraps ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	b.WriteString(": ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(" ")
		b.WriteString(e.Fields[k])
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Add records msg for field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e when it holds at least one field, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
