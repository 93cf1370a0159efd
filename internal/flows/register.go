package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/storeauth/credential"
)

// RegisterMetrics carries metric IDs used by the registration flow.
type RegisterMetrics struct {
	Success   int
	Duplicate int
	Invalid   int
	Storage   int
}

// RegisterEvents carries audit event names used by the registration flow.
type RegisterEvents struct {
	Success string
	Failure string
}

// RegisterErrors carries host-level sentinel errors used by the registration flow.
type RegisterErrors struct {
	EngineNotReady     error
	DuplicateUser      error
	StorageUnavailable error
	Internal           error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	Validate       func(username, password string) error
	FindByUsername func(context.Context, string) (credential.User, error)
	Insert         func(context.Context, credential.User) (credential.User, error)
	HashPassword   func(string) (string, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      WarnFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister validates input, rejects a taken username before paying for a
// hash, then stores the new user. A concurrent insert of the same username
// that wins the race surfaces as Errors.DuplicateUser.
func RunRegister(ctx context.Context, username, password string, deps RegisterDeps) (credential.User, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Validate == nil ||
		deps.FindByUsername == nil ||
		deps.Insert == nil ||
		deps.HashPassword == nil {
		return credential.User{}, deps.Errors.EngineNotReady
	}

	fail := func(metric int, err error, reason string) (credential.User, error) {
		deps.MetricInc(metric)
		deps.EmitAudit(ctx, deps.Events.Failure, false, 0, username, "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return credential.User{}, err
	}

	if err := deps.Validate(username, password); err != nil {
		return fail(deps.Metrics.Invalid, err, "validation")
	}

	_, err := deps.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return fail(deps.Metrics.Duplicate, deps.Errors.DuplicateUser, "duplicate")
	case !errors.Is(err, credential.ErrNotFound):
		deps.Warn("register: user lookup failed", err)
		return fail(deps.Metrics.Storage, deps.Errors.StorageUnavailable, "storage")
	}

	hash, err := deps.HashPassword(password)
	if err != nil {
		deps.Warn("register: password hashing failed", err)
		return credential.User{}, deps.Errors.Internal
	}

	user, err := deps.Insert(ctx, credential.User{Username: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, credential.ErrDuplicateKey) {
			return fail(deps.Metrics.Duplicate, deps.Errors.DuplicateUser, "duplicate")
		}
		deps.Warn("register: user insert failed", err)
		return fail(deps.Metrics.Storage, deps.Errors.StorageUnavailable, "storage")
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.ID, user.Username, "", nil, nil)
	return user, nil
}
