package flows

import (
	"context"
	"time"
)

// LogoutMetrics carries metric IDs used by the logout flow.
type LogoutMetrics struct {
	Logout                int
	RevocationUnavailable int
}

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	Logout string
}

// LogoutErrors carries host-level sentinel errors used by the logout flow.
type LogoutErrors struct {
	EngineNotReady        error
	RevocationUnavailable error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Authorize func(context.Context, string) (AuthorizedToken, error)
	Revoke    func(ctx context.Context, jti string, expiresAt time.Time) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      WarnFunc

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunLogout admits the token through the gate and then records its jti as
// revoked. Rejections from the gate are returned unchanged.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Authorize == nil || deps.Revoke == nil {
		return deps.Errors.EngineNotReady
	}

	tok, err := deps.Authorize(ctx, token)
	if err != nil {
		return err
	}

	if err := deps.Revoke(ctx, tok.TokenID, tok.ExpiresAt); err != nil {
		deps.Warn("logout: revoke failed", err)
		deps.MetricInc(deps.Metrics.RevocationUnavailable)
		deps.EmitAudit(ctx, deps.Events.Logout, false, tok.UserID, "", tok.TokenID, deps.Errors.RevocationUnavailable, nil)
		return deps.Errors.RevocationUnavailable
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, tok.UserID, "", tok.TokenID, nil, nil)
	return nil
}
