package flows

import (
	"context"
	"strconv"
	"time"

	"github.com/MrEthical07/storeauth/jwt"
)

// AuthorizedToken is the admitted identity extracted from a verified token.
type AuthorizedToken struct {
	UserID    int64
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthorizeMetrics carries metric IDs used by the authorization gate.
type AuthorizeMetrics struct {
	Admitted              int
	Missing               int
	Invalid               int
	Expired               int
	Revoked               int
	RevocationUnavailable int
}

// AuthorizeErrors carries host-level sentinel errors used by the gate.
type AuthorizeErrors struct {
	EngineNotReady        error
	AuthorizationRequired error
	InvalidToken          error
	TokenExpired          error
	TokenRevoked          error
	RevocationUnavailable error
}

// AuthorizeDeps captures authorization gate dependencies.
type AuthorizeDeps struct {
	Verify    func(string) jwt.Result
	IsRevoked func(context.Context, string) (bool, error)

	MetricInc      func(int)
	ObserveLatency func(time.Duration)
	Warn           WarnFunc

	Metrics AuthorizeMetrics
	Errors  AuthorizeErrors
}

// RunAuthorize admits or rejects a presented token. Signature, structure and
// expiry are settled by Verify before the revocation registry is consulted,
// and a registry failure rejects the request.
func RunAuthorize(ctx context.Context, token string, deps AuthorizeDeps) (AuthorizedToken, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Verify == nil || deps.IsRevoked == nil {
		return AuthorizedToken{}, deps.Errors.EngineNotReady
	}
	if deps.ObserveLatency != nil {
		start := time.Now()
		defer func() { deps.ObserveLatency(time.Since(start)) }()
	}

	if token == "" {
		deps.MetricInc(deps.Metrics.Missing)
		return AuthorizedToken{}, deps.Errors.AuthorizationRequired
	}

	res := deps.Verify(token)
	switch res.Status {
	case jwt.StatusValid:
	case jwt.StatusExpired:
		deps.MetricInc(deps.Metrics.Expired)
		return AuthorizedToken{}, deps.Errors.TokenExpired
	default:
		deps.MetricInc(deps.Metrics.Invalid)
		return AuthorizedToken{}, deps.Errors.InvalidToken
	}

	userID, err := strconv.ParseInt(res.Claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		deps.MetricInc(deps.Metrics.Invalid)
		return AuthorizedToken{}, deps.Errors.InvalidToken
	}

	revoked, err := deps.IsRevoked(ctx, res.Claims.TokenID)
	if err != nil {
		deps.Warn("authorize: revocation lookup failed", err)
		deps.MetricInc(deps.Metrics.RevocationUnavailable)
		return AuthorizedToken{}, deps.Errors.RevocationUnavailable
	}
	if revoked {
		deps.MetricInc(deps.Metrics.Revoked)
		return AuthorizedToken{}, deps.Errors.TokenRevoked
	}

	deps.MetricInc(deps.Metrics.Admitted)
	return AuthorizedToken{
		UserID:    userID,
		TokenID:   res.Claims.TokenID,
		IssuedAt:  res.Claims.IssuedAt,
		ExpiresAt: res.Claims.ExpiresAt,
	}, nil
}
