package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/storeauth/credential"
	"github.com/MrEthical07/storeauth/jwt"
	"github.com/stretchr/testify/require"
)

var (
	errNotReady    = errors.New("not ready")
	errDuplicate   = errors.New("duplicate")
	errStorage     = errors.New("storage")
	errInternal    = errors.New("internal")
	errInvalidCred = errors.New("invalid credentials")
	errRateLimited = errors.New("rate limited")
	errRequired    = errors.New("required")
	errInvalidTok  = errors.New("invalid token")
	errExpired     = errors.New("expired")
	errRevoked     = errors.New("revoked")
	errRevUnavail  = errors.New("revocation unavailable")
)

type counter map[int]int

func (c counter) inc(id int) { c[id]++ }

func fakeHash(pw string) (string, error) { return "h:" + pw, nil }

func fakeVerify(pw, digest string) bool { return digest == "h:"+pw }

func registerDeps(store *credential.MemoryStore, metrics counter) RegisterDeps {
	return RegisterDeps{
		Validate:       func(string, string) error { return nil },
		FindByUsername: store.FindByUsername,
		Insert:         store.Insert,
		HashPassword:   fakeHash,
		MetricInc:      metrics.inc,
		Metrics:        RegisterMetrics{Success: 1, Duplicate: 2, Invalid: 3, Storage: 4},
		Errors: RegisterErrors{
			EngineNotReady:     errNotReady,
			DuplicateUser:      errDuplicate,
			StorageUnavailable: errStorage,
			Internal:           errInternal,
		},
	}
}

func TestRunRegister(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	metrics := counter{}
	deps := registerDeps(store, metrics)

	u, err := RunRegister(ctx, "alice", "secret1", deps)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "h:secret1", u.PasswordHash)
	require.Equal(t, 1, metrics[1])

	_, err = RunRegister(ctx, "alice", "other", deps)
	require.ErrorIs(t, err, errDuplicate)
	require.Equal(t, 1, store.Len())
	require.Equal(t, 1, metrics[2])
}

func TestRunRegisterDuplicateSkipsHash(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	_, err := store.Insert(ctx, credential.User{Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)

	deps := registerDeps(store, counter{})
	deps.HashPassword = func(string) (string, error) {
		t.Fatal("hash must not run for a taken username")
		return "", nil
	}

	_, err = RunRegister(ctx, "alice", "secret1", deps)
	require.ErrorIs(t, err, errDuplicate)
}

func TestRunRegisterInsertRace(t *testing.T) {
	deps := registerDeps(credential.NewMemoryStore(), counter{})
	deps.Insert = func(context.Context, credential.User) (credential.User, error) {
		return credential.User{}, credential.ErrDuplicateKey
	}

	_, err := RunRegister(context.Background(), "alice", "secret1", deps)
	require.ErrorIs(t, err, errDuplicate)
}

func TestRunRegisterValidationAndStorage(t *testing.T) {
	ctx := context.Background()
	metrics := counter{}
	deps := registerDeps(credential.NewMemoryStore(), metrics)
	bad := errors.New("bad input")
	deps.Validate = func(string, string) error { return bad }

	_, err := RunRegister(ctx, "", "", deps)
	require.ErrorIs(t, err, bad)
	require.Equal(t, 1, metrics[3])

	var warned error
	deps = registerDeps(credential.NewMemoryStore(), metrics)
	deps.FindByUsername = func(context.Context, string) (credential.User, error) {
		return credential.User{}, credential.ErrUnavailable
	}
	deps.Warn = func(_ string, err error) { warned = err }

	_, err = RunRegister(ctx, "alice", "secret1", deps)
	require.ErrorIs(t, err, errStorage)
	require.ErrorIs(t, warned, credential.ErrUnavailable)

	_, err = RunRegister(ctx, "alice", "secret1", RegisterDeps{Errors: RegisterErrors{EngineNotReady: errNotReady}})
	require.ErrorIs(t, err, errNotReady)
}

func loginDeps(t *testing.T, store *credential.MemoryStore) LoginDeps {
	t.Helper()
	mgr, err := jwt.NewManager(jwt.Config{TTL: time.Minute, Secret: []byte("0123456789abcdef0123456789abcdef")})
	require.NoError(t, err)
	return LoginDeps{
		DummyHash:      "h:dummy",
		FindByUsername: store.FindByUsername,
		VerifyPassword: fakeVerify,
		HashPassword:   fakeHash,
		IssueToken:     mgr.Issue,
		Metrics:        LoginMetrics{LoginSuccess: 1, LoginFailure: 2, LoginRateLimited: 3, PasswordUpgraded: 4, Storage: 5},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			InvalidCredentials: errInvalidCred,
			LoginRateLimited:   errRateLimited,
			StorageUnavailable: errStorage,
			Internal:           errInternal,
		},
	}
}

func TestRunLogin(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	u, err := store.Insert(ctx, credential.User{Username: "alice", PasswordHash: "h:secret1"})
	require.NoError(t, err)

	deps := loginDeps(t, store)
	res, err := RunLogin(ctx, "alice", "secret1", deps)
	require.NoError(t, err)
	require.Equal(t, u.ID, res.UserID)
	require.NotEmpty(t, res.Token)
	require.NotEmpty(t, res.TokenID)
	require.True(t, res.ExpiresAt.After(res.IssuedAt))
}

func TestRunLoginFailuresAreIdentical(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	_, err := store.Insert(ctx, credential.User{Username: "alice", PasswordHash: "h:secret1"})
	require.NoError(t, err)

	var verified []string
	deps := loginDeps(t, store)
	deps.VerifyPassword = func(pw, digest string) bool {
		verified = append(verified, digest)
		return fakeVerify(pw, digest)
	}

	_, errWrong := RunLogin(ctx, "alice", "wrong", deps)
	_, errUnknown := RunLogin(ctx, "mallory", "secret1", deps)

	require.ErrorIs(t, errWrong, errInvalidCred)
	require.Equal(t, errWrong, errUnknown)
	require.Equal(t, []string{"h:secret1", "h:dummy"}, verified)
}

func TestRunLoginRateLimited(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	_, err := store.Insert(ctx, credential.User{Username: "alice", PasswordHash: "h:secret1"})
	require.NoError(t, err)

	failures := 0
	reset := false
	deps := loginDeps(t, store)
	deps.CheckLoginRate = func(context.Context, string, string) error {
		if failures >= 2 {
			return errRateLimited
		}
		return nil
	}
	deps.IncrementLoginRate = func(context.Context, string, string) error {
		failures++
		return nil
	}
	deps.ResetLoginRate = func(context.Context, string, string) error {
		reset = true
		failures = 0
		return nil
	}

	_, err = RunLogin(ctx, "alice", "secret1", deps)
	require.NoError(t, err)
	require.True(t, reset)

	for i := 0; i < 2; i++ {
		_, err = RunLogin(ctx, "alice", "wrong", deps)
		require.ErrorIs(t, err, errInvalidCred)
	}
	_, err = RunLogin(ctx, "alice", "secret1", deps)
	require.ErrorIs(t, err, errRateLimited)

	deps.CheckLoginRate = func(context.Context, string, string) error { return errors.New("redis down") }
	_, err = RunLogin(ctx, "alice", "secret1", deps)
	require.ErrorIs(t, err, errStorage)
}

func TestRunLoginUpgradesHash(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	u, err := store.Insert(ctx, credential.User{Username: "alice", PasswordHash: "h:secret1"})
	require.NoError(t, err)

	metrics := counter{}
	deps := loginDeps(t, store)
	deps.MetricInc = metrics.inc
	deps.PasswordUpgradeOnLogin = true
	deps.PasswordNeedsUpgrade = func(string) bool { return true }
	deps.HashPassword = func(pw string) (string, error) { return "h:" + pw, nil }
	deps.UpdatePasswordHash = func(ctx context.Context, id int64, hash string) error {
		require.Equal(t, u.ID, id)
		return store.UpdatePasswordHash(ctx, id, hash+"!")
	}

	_, err = RunLogin(ctx, "alice", "secret1", deps)
	require.NoError(t, err)
	require.Equal(t, 1, metrics[4])

	stored, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "h:secret1!", stored.PasswordHash)
}

func TestRunLoginStorageFailure(t *testing.T) {
	deps := loginDeps(t, credential.NewMemoryStore())
	deps.FindByUsername = func(context.Context, string) (credential.User, error) {
		return credential.User{}, credential.ErrUnavailable
	}

	_, err := RunLogin(context.Background(), "alice", "secret1", deps)
	require.ErrorIs(t, err, errStorage)
}

type revoked map[string]bool

func authorizeDeps(t *testing.T, mgr *jwt.Manager, reg revoked) AuthorizeDeps {
	t.Helper()
	return AuthorizeDeps{
		Verify: mgr.Verify,
		IsRevoked: func(_ context.Context, jti string) (bool, error) {
			return reg[jti], nil
		},
		Metrics: AuthorizeMetrics{Admitted: 1, Missing: 2, Invalid: 3, Expired: 4, Revoked: 5, RevocationUnavailable: 6},
		Errors: AuthorizeErrors{
			EngineNotReady:        errNotReady,
			AuthorizationRequired: errRequired,
			InvalidToken:          errInvalidTok,
			TokenExpired:          errExpired,
			TokenRevoked:          errRevoked,
			RevocationUnavailable: errRevUnavail,
		},
	}
}

func TestRunAuthorize(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	mgr, err := jwt.NewManager(jwt.Config{TTL: time.Minute, Secret: []byte("0123456789abcdef0123456789abcdef"), Now: clock})
	require.NoError(t, err)

	reg := revoked{}
	metrics := counter{}
	var latencies int
	deps := authorizeDeps(t, mgr, reg)
	deps.MetricInc = metrics.inc
	deps.ObserveLatency = func(time.Duration) { latencies++ }

	issued, err := mgr.Issue("7")
	require.NoError(t, err)

	tok, err := RunAuthorize(ctx, issued.Token, deps)
	require.NoError(t, err)
	require.Equal(t, int64(7), tok.UserID)
	require.Equal(t, issued.TokenID, tok.TokenID)

	_, err = RunAuthorize(ctx, "", deps)
	require.ErrorIs(t, err, errRequired)

	_, err = RunAuthorize(ctx, "garbage", deps)
	require.ErrorIs(t, err, errInvalidTok)

	reg[issued.TokenID] = true
	_, err = RunAuthorize(ctx, issued.Token, deps)
	require.ErrorIs(t, err, errRevoked)

	now = now.Add(2 * time.Minute)
	_, err = RunAuthorize(ctx, issued.Token, deps)
	require.ErrorIs(t, err, errExpired)

	require.Equal(t, 1, metrics[1])
	require.Equal(t, 1, metrics[2])
	require.Equal(t, 1, metrics[3])
	require.Equal(t, 1, metrics[4])
	require.Equal(t, 1, metrics[5])
	require.Equal(t, 5, latencies)
}

func TestRunAuthorizeNonNumericSubject(t *testing.T) {
	mgr, err := jwt.NewManager(jwt.Config{TTL: time.Minute, Secret: []byte("0123456789abcdef0123456789abcdef")})
	require.NoError(t, err)
	issued, err := mgr.Issue("alice")
	require.NoError(t, err)

	_, err = RunAuthorize(context.Background(), issued.Token, authorizeDeps(t, mgr, revoked{}))
	require.ErrorIs(t, err, errInvalidTok)
}

func TestRunAuthorizeFailsClosed(t *testing.T) {
	mgr, err := jwt.NewManager(jwt.Config{TTL: time.Minute, Secret: []byte("0123456789abcdef0123456789abcdef")})
	require.NoError(t, err)
	issued, err := mgr.Issue("1")
	require.NoError(t, err)

	deps := authorizeDeps(t, mgr, revoked{})
	deps.IsRevoked = func(context.Context, string) (bool, error) {
		return false, errors.New("registry down")
	}

	_, err = RunAuthorize(context.Background(), issued.Token, deps)
	require.ErrorIs(t, err, errRevUnavail)
}

func TestRunLogout(t *testing.T) {
	ctx := context.Background()
	mgr, err := jwt.NewManager(jwt.Config{TTL: time.Minute, Secret: []byte("0123456789abcdef0123456789abcdef")})
	require.NoError(t, err)
	reg := revoked{}
	authDeps := authorizeDeps(t, mgr, reg)

	var revokedExp time.Time
	deps := LogoutDeps{
		Authorize: func(ctx context.Context, token string) (AuthorizedToken, error) {
			return RunAuthorize(ctx, token, authDeps)
		},
		Revoke: func(_ context.Context, jti string, exp time.Time) error {
			reg[jti] = true
			revokedExp = exp
			return nil
		},
		Errors: LogoutErrors{EngineNotReady: errNotReady, RevocationUnavailable: errRevUnavail},
	}

	issued, err := mgr.Issue("1")
	require.NoError(t, err)

	require.NoError(t, RunLogout(ctx, issued.Token, deps))
	require.True(t, reg[issued.TokenID])
	require.True(t, revokedExp.Equal(issued.ExpiresAt))

	require.ErrorIs(t, RunLogout(ctx, issued.Token, deps), errRevoked)
	require.ErrorIs(t, RunLogout(ctx, "", deps), errRequired)

	other, err := mgr.Issue("1")
	require.NoError(t, err)
	deps.Revoke = func(context.Context, string, time.Time) error { return errors.New("down") }
	require.ErrorIs(t, RunLogout(ctx, other.Token, deps), errRevUnavail)
}

func TestServiceInitialized(t *testing.T) {
	require.False(t, New(Deps{}).Initialized())
	require.True(t, New(Deps{Authorize: AuthorizeDeps{Verify: func(string) jwt.Result { return jwt.Result{} }}}).Initialized())
}
