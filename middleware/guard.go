package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/storeauth"
)

// Authorizer admits or rejects a presented token. *storeauth.Engine
// implements it.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (storeauth.Principal, error)
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures Guard.
type Option func(*guardOptions)

type guardOptions struct {
	onError ErrorHandler
}

// WithErrorHandler replaces the default JSON rejection writer.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *guardOptions) {
		if h != nil {
			o.onError = h
		}
	}
}

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by Guard.
func PrincipalFromContext(ctx context.Context) (storeauth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(storeauth.Principal)
	return p, ok
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p storeauth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Guard runs the authorization gate before next. The token is read from
// "Authorization: Bearer <token>"; a missing header or an empty bearer value
// is rejected as authorization_required.
func Guard(authz Authorizer, opts ...Option) func(http.Handler) http.Handler {
	o := guardOptions{onError: WriteRejection}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authz == nil {
				o.onError(w, r, storeauth.ErrInternal)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				o.onError(w, r, storeauth.ErrAuthorizationRequired)
				return
			}

			p, err := authz.Authorize(r.Context(), token)
			if err != nil {
				o.onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// WriteRejection is the default ErrorHandler. It writes
// {"code": ..., "message": ...} with 401, or 503 when the revocation
// registry is unavailable.
func WriteRejection(w http.ResponseWriter, _ *http.Request, err error) {
	code := storeauth.Code(err)
	status := http.StatusUnauthorized
	switch code {
	case storeauth.CodeRevocationUnavailable:
		status = http.StatusServiceUnavailable
	case storeauth.CodeInternalError:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": strings.ReplaceAll(code, "_", " "),
	})
}

// BearerToken extracts the token from the "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	const bearer = "Bearer "
	value := r.Header.Get("Authorization")
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
