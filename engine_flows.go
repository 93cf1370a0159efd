package storeauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/storeauth/credential"
	"github.com/MrEthical07/storeauth/internal/flows"
	"github.com/MrEthical07/storeauth/internal/rate"
)

func (e *Engine) buildFlows(dummyHash string) flows.Service {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	emitAudit := func(ctx context.Context, event string, success bool, userID int64, username, tokenID string, err error, metadata func() map[string]string) {
		e.emitAudit(ctx, event, success, userID, username, tokenID, err, metadata)
	}

	login := flows.LoginDeps{
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		DummyHash:              dummyHash,
		ClientIPFromContext:    clientIPFromContext,
		FindByUsername:         e.store.FindByUsername,
		VerifyPassword:         e.passwordHash.Verify,
		PasswordNeedsUpgrade:   e.passwordHash.NeedsUpgrade,
		HashPassword:           e.passwordHash.Hash,
		IssueToken:             e.jwtManager.Issue,
		MetricInc:              metricInc,
		EmitAudit:              emitAudit,
		Warn:                   e.warn,
		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginRateLimited: int(MetricLoginRateLimited),
			PasswordUpgraded: int(MetricPasswordUpgraded),
			Storage:          int(MetricStorageUnavailable),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
			PasswordUpgraded: auditEventPasswordUpgraded,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrInternal,
			InvalidCredentials: ErrInvalidCredentials,
			LoginRateLimited:   ErrLoginRateLimited,
			StorageUnavailable: ErrStorageUnavailable,
			Internal:           ErrInternal,
		},
	}
	if updater, ok := e.store.(credential.PasswordUpdater); ok {
		login.UpdatePasswordHash = updater.UpdatePasswordHash
	}
	if e.rateLimiter != nil {
		login.CheckLoginRate = func(ctx context.Context, username, ip string) error {
			return mapRateError(e.rateLimiter.CheckLogin(ctx, username, ip))
		}
		login.IncrementLoginRate = func(ctx context.Context, username, ip string) error {
			return mapRateError(e.rateLimiter.IncrementLogin(ctx, username, ip))
		}
		login.ResetLoginRate = e.rateLimiter.ResetLogin
	}

	authorize := flows.AuthorizeDeps{
		Verify:    e.jwtManager.Verify,
		IsRevoked: e.registry.IsRevoked,
		MetricInc: metricInc,
		Warn:      e.warn,
		Metrics: flows.AuthorizeMetrics{
			Admitted:              int(MetricAuthorizeAdmitted),
			Missing:               int(MetricAuthorizeMissing),
			Invalid:               int(MetricAuthorizeInvalid),
			Expired:               int(MetricAuthorizeExpired),
			Revoked:               int(MetricAuthorizeRevoked),
			RevocationUnavailable: int(MetricRevocationUnavailable),
		},
		Errors: flows.AuthorizeErrors{
			EngineNotReady:        ErrInternal,
			AuthorizationRequired: ErrAuthorizationRequired,
			InvalidToken:          ErrInvalidToken,
			TokenExpired:          ErrTokenExpired,
			TokenRevoked:          ErrTokenRevoked,
			RevocationUnavailable: ErrRevocationUnavailable,
		},
	}
	if e.metrics.LatencyEnabled() {
		authorize.ObserveLatency = func(d time.Duration) {
			e.metrics.Observe(MetricAuthorizeLatency, d)
		}
	}

	return flows.New(flows.Deps{
		Register: flows.RegisterDeps{
			Validate:       e.validateRegistration,
			FindByUsername: e.store.FindByUsername,
			Insert:         e.store.Insert,
			HashPassword:   e.passwordHash.Hash,
			MetricInc:      metricInc,
			EmitAudit:      emitAudit,
			Warn:           e.warn,
			Metrics: flows.RegisterMetrics{
				Success:   int(MetricRegisterSuccess),
				Duplicate: int(MetricRegisterDuplicate),
				Invalid:   int(MetricRegisterInvalid),
				Storage:   int(MetricStorageUnavailable),
			},
			Events: flows.RegisterEvents{
				Success: auditEventRegisterSuccess,
				Failure: auditEventRegisterFailure,
			},
			Errors: flows.RegisterErrors{
				EngineNotReady:     ErrInternal,
				DuplicateUser:      ErrDuplicateUser,
				StorageUnavailable: ErrStorageUnavailable,
				Internal:           ErrInternal,
			},
		},
		Login:     login,
		Authorize: authorize,
		Logout: flows.LogoutDeps{
			Authorize: func(ctx context.Context, token string) (flows.AuthorizedToken, error) {
				return flows.RunAuthorize(ctx, token, authorize)
			},
			Revoke:    e.registry.Revoke,
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Warn:      e.warn,
			Metrics: flows.LogoutMetrics{
				Logout:                int(MetricLogout),
				RevocationUnavailable: int(MetricRevocationUnavailable),
			},
			Events: flows.LogoutEvents{
				Logout: auditEventLogout,
			},
			Errors: flows.LogoutErrors{
				EngineNotReady:        ErrInternal,
				RevocationUnavailable: ErrRevocationUnavailable,
			},
		},
	})
}

func mapRateError(err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrLoginRateLimited
	}
	return err
}
