package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/storeauth/credential"
	"github.com/MrEthical07/storeauth/jwt"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	UserID    int64
	Token     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	PasswordUpgraded int
	Storage          int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	PasswordUpgraded string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	LoginRateLimited   error
	StorageUnavailable error
	Internal           error
}

// LoginDeps captures login dependencies.
//
// The rate functions are optional. They must return Errors.LoginRateLimited
// when the budget is spent; any other error is treated as a backend failure.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool
	// DummyHash is verified against when the username is unknown so that
	// both failure paths pay one password verification.
	DummyHash string

	ClientIPFromContext func(context.Context) string

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error

	FindByUsername     func(context.Context, string) (credential.User, error)
	UpdatePasswordHash func(context.Context, int64, string) error

	VerifyPassword       func(string, string) bool
	PasswordNeedsUpgrade func(string) bool
	HashPassword         func(string) (string, error)
	IssueToken           func(subject string) (jwt.Issued, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      WarnFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin authenticates username/password and issues a session token.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) (LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.FindByUsername == nil ||
		deps.VerifyPassword == nil ||
		deps.IssueToken == nil {
		return LoginResult{}, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)
	ipMeta := func(reason string) func() map[string]string {
		return func() map[string]string {
			m := map[string]string{"reason": reason}
			if ip != "" {
				m["ip"] = ip
			}
			return m
		}
	}

	rateLimited := func(userID int64) (LoginResult, error) {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
		deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, userID, username, "", deps.Errors.LoginRateLimited, ipMeta("rate_limited"))
		return LoginResult{}, deps.Errors.LoginRateLimited
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, username, ip); err != nil {
			if errors.Is(err, deps.Errors.LoginRateLimited) {
				return rateLimited(0)
			}
			deps.Warn("login: rate limiter check failed", err)
			deps.MetricInc(deps.Metrics.Storage)
			return LoginResult{}, deps.Errors.StorageUnavailable
		}
	}

	invalid := func(userID int64, reason string) (LoginResult, error) {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, username, ip); err != nil {
				if errors.Is(err, deps.Errors.LoginRateLimited) {
					return rateLimited(userID)
				}
				deps.Warn("login: rate limiter increment failed", err)
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, username, "", deps.Errors.InvalidCredentials, ipMeta(reason))
		return LoginResult{}, deps.Errors.InvalidCredentials
	}

	user, err := deps.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			deps.Warn("login: user lookup failed", err)
			deps.MetricInc(deps.Metrics.Storage)
			return LoginResult{}, deps.Errors.StorageUnavailable
		}
		if deps.DummyHash != "" {
			deps.VerifyPassword(password, deps.DummyHash)
		}
		return invalid(0, "user_not_found")
	}

	if !deps.VerifyPassword(password, user.PasswordHash) {
		return invalid(user.ID, "password_mismatch")
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, username, ip); err != nil {
			deps.Warn("login: rate limiter reset failed", err)
		}
	}

	if deps.PasswordUpgradeOnLogin &&
		deps.PasswordNeedsUpgrade != nil &&
		deps.HashPassword != nil &&
		deps.UpdatePasswordHash != nil &&
		deps.PasswordNeedsUpgrade(user.PasswordHash) {
		if upgraded, err := deps.HashPassword(password); err != nil {
			deps.Warn("login: password hash upgrade generation failed", err)
		} else if err := deps.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
			deps.Warn("login: password hash upgrade update failed", err)
		} else {
			deps.MetricInc(deps.Metrics.PasswordUpgraded)
			deps.EmitAudit(ctx, deps.Events.PasswordUpgraded, true, user.ID, username, "", nil, nil)
		}
	}

	issued, err := deps.IssueToken(strconv.FormatInt(user.ID, 10))
	if err != nil {
		deps.Warn("login: token issue failed", err)
		return LoginResult{}, deps.Errors.Internal
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, username, issued.TokenID, nil, ipMeta("ok"))

	return LoginResult{
		UserID:    user.ID,
		Token:     issued.Token,
		TokenID:   issued.TokenID,
		IssuedAt:  issued.IssuedAt,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}
