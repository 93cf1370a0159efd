package storeauth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/MrEthical07/storeauth/credential"
	"github.com/MrEthical07/storeauth/internal/flows"
	"github.com/MrEthical07/storeauth/internal/rate"
	"github.com/MrEthical07/storeauth/jwt"
	"github.com/MrEthical07/storeauth/password"
	"github.com/MrEthical07/storeauth/revocation"
	"go.uber.org/zap"
)

// Engine is the authentication core. Build one with Builder.
//
// Engine methods are safe for concurrent use.
type Engine struct {
	config       Config
	logger       *zap.Logger
	store        credential.Store
	registry     revocation.Registry
	rateLimiter  *rate.Limiter
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
	audit        *auditDispatcher
	metrics      *Metrics
	flows        flows.Service

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Close stops the revocation janitor and flushes pending audit events.
// It does not close injected clients or databases.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.stop != nil {
			close(e.stop)
		}
		e.wg.Wait()
		e.audit.Close()
	})
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// TokenLifetime returns the configured session token lifetime.
func (e *Engine) TokenLifetime() time.Duration {
	return e.config.Token.Lifetime
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, err error) {
	e.logger.Warn(msg, zap.Error(err))
}

// Register creates a user. The username is rejected with ErrDuplicateUser
// when taken, and input problems are reported as *ValidationError.
func (e *Engine) Register(ctx context.Context, username, password string) (User, error) {
	u, err := e.flows.Register(ctx, username, password)
	if err != nil {
		return User{}, err
	}
	return publicUser(u), nil
}

// Login verifies credentials and issues a session token. An unknown username
// and a wrong password both yield ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var verr ValidationError
	if username == "" {
		verr.Add("username", "is required")
	}
	if password == "" {
		verr.Add("password", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return LoginResult{}, err
	}

	res, err := e.flows.Login(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		UserID:      res.UserID,
		AccessToken: res.Token,
		TokenType:   TokenType,
		TokenID:     res.TokenID,
		ExpiresAt:   res.ExpiresAt,
	}, nil
}

// Authorize admits or rejects a presented token. An empty token yields
// ErrAuthorizationRequired. A registry failure yields
// ErrRevocationUnavailable and the request is not admitted.
func (e *Engine) Authorize(ctx context.Context, token string) (Principal, error) {
	tok, err := e.flows.Authorize(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	return Principal(tok), nil
}

// Logout authorizes token and then revokes it. Logging out a token that was
// already revoked yields ErrTokenRevoked.
func (e *Engine) Logout(ctx context.Context, token string) error {
	return e.flows.Logout(ctx, token)
}

// GetUser returns the user with id or ErrUserNotFound.
func (e *Engine) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := e.store.FindByID(ctx, id)
	if err != nil {
		return User{}, e.mapStoreError("get user: lookup failed", err)
	}
	return publicUser(u), nil
}

// DeleteUser removes the user with id. Outstanding tokens for the user stay
// valid until they expire or are logged out.
func (e *Engine) DeleteUser(ctx context.Context, id int64) error {
	if err := e.store.Delete(ctx, id); err != nil {
		return e.mapStoreError("delete user: delete failed", err)
	}
	e.metricInc(MetricUserDeleted)
	e.emitAudit(ctx, auditEventUserDeleted, true, id, "", "", nil, nil)
	return nil
}

func (e *Engine) mapStoreError(msg string, err error) error {
	if errors.Is(err, credential.ErrNotFound) {
		return ErrUserNotFound
	}
	e.warn(msg, err)
	e.metricInc(MetricStorageUnavailable)
	return ErrStorageUnavailable
}

func publicUser(u credential.User) User {
	return User{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

func (e *Engine) validateRegistration(username, password string) error {
	var verr ValidationError

	switch {
	case username == "":
		verr.Add("username", "is required")
	case len(username) > e.config.Security.MaxUsernameLength:
		verr.Add("username", "is too long")
	case !utf8.ValidString(username):
		verr.Add("username", "must be valid UTF-8")
	case strings.TrimSpace(username) != username:
		verr.Add("username", "must not start or end with whitespace")
	case strings.IndexFunc(username, unicode.IsControl) >= 0:
		verr.Add("username", "must not contain control characters")
	}

	switch {
	case password == "":
		verr.Add("password", "is required")
	case len(password) < e.config.Password.MinLength:
		verr.Add("password", "is too short")
	case len(password) > e.config.Password.MaxLength:
		verr.Add("password", "is too long")
	}

	return verr.OrNil()
}

func (e *Engine) startJanitor(sweeper revocation.Sweeper, interval time.Duration) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-e.stop:
				return
			case now := <-ticker.C:
				e.sweep(sweeper, now)
			}
		}
	}()
}

// sweep evicts entries only once their token also fails Verify, which
// accepts tokens until expiry plus leeway.
func (e *Engine) sweep(sweeper revocation.Sweeper, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := sweeper.Sweep(ctx, now.Add(-e.config.Token.Leeway))
	if err != nil {
		e.warn("revocation sweep failed", err)
		return
	}
	if n > 0 {
		e.metrics.Add(MetricRevocationSwept, uint64(n))
		e.logger.Debug("revocation sweep", zap.Int("evicted", n))
	}
}
