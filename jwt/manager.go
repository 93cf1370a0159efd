package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretBytes is the shortest HMAC secret NewManager accepts.
const MinSecretBytes = 32

// Status is the outcome of token verification.
type Status int

const (
	// StatusInvalid covers bad signatures, wrong algorithms, malformed
	// structure and missing or mismatched claims.
	StatusInvalid Status = iota
	// StatusValid means the token is authentic and unexpired.
	StatusValid
	// StatusExpired means the token is authentic but past its expiry.
	StatusExpired
)

// String returns a lowercase name for s.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Config configures a Manager.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	TTL      time.Duration
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration

	// MaxFutureIAT rejects tokens whose iat lies further ahead than this.
	// Zero selects 10 minutes.
	MaxFutureIAT time.Duration

	// KeyID is stamped into the kid header of issued tokens. VerifyKeys holds
	// retired secrets by kid so tokens signed before a rotation keep
	// verifying until they expire.
	KeyID      string
	VerifyKeys map[string][]byte

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Manager issues and verifies HS256 session tokens. It is immutable after
// construction and safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// Claims is the verified content of a session token.
type Claims struct {
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Result is the tagged outcome of Verify. Claims is populated for
// StatusValid and StatusExpired.
type Result struct {
	Status Status
	Claims Claims
}

// Valid reports whether r.Status is StatusValid.
func (r Result) Valid() bool { return r.Status == StatusValid }

// Issued is a freshly signed token and its metadata.
type Issued struct {
	Token     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", MinSecretBytes)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < MinSecretBytes {
			return nil, fmt.Errorf("verify key for kid %q is shorter than %d bytes", kid, MinSecretBytes)
		}
	}
	if len(cfg.VerifyKeys) > 0 {
		if cfg.KeyID == "" {
			return nil, errors.New("VerifyKeys requires KeyID")
		}
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; ok {
			return nil, errors.New("KeyID must not be present in VerifyKeys")
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{config: cfg, now: now}, nil
}

// TTL returns the configured token lifetime.
func (j *Manager) TTL() time.Duration { return j.config.TTL }

// Issue signs a new token for subject with a fresh random jti.
func (j *Manager) Issue(subject string) (Issued, error) {
	if subject == "" {
		return Issued{}, errors.New("subject must not be empty")
	}

	now := j.now()
	issued := Issued{
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(j.config.TTL),
	}

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        issued.TokenID,
		IssuedAt:  jwt.NewNumericDate(issued.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(issued.ExpiresAt),
		Issuer:    j.config.Issuer,
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signed, err := token.SignedString(j.config.Secret)
	if err != nil {
		return Issued{}, err
	}
	issued.Token = signed

	// NumericDate truncates to seconds; report what the token carries.
	issued.IssuedAt = claims.IssuedAt.Time
	issued.ExpiresAt = claims.ExpiresAt.Time

	return issued, nil
}

// Verify checks tokenStr and returns a tagged result. Signature, algorithm
// and structure are checked before any time-based claim, so a forged token
// is always StatusInvalid regardless of its exp.
func (j *Manager) Verify(tokenStr string) Result {
	if tokenStr == "" {
		return Result{Status: StatusInvalid}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, j.keyFunc)
	if err != nil || !token.Valid {
		return Result{Status: StatusInvalid}
	}

	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return Result{Status: StatusInvalid}
	}
	if j.config.Issuer != "" && claims.Issuer != j.config.Issuer {
		return Result{Status: StatusInvalid}
	}
	if j.config.Audience != "" && !hasAudience(claims.Audience, j.config.Audience) {
		return Result{Status: StatusInvalid}
	}

	now := j.now()
	out := Claims{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
		if out.IssuedAt.After(now.Add(j.config.MaxFutureIAT)) {
			return Result{Status: StatusInvalid}
		}
	}

	if now.After(out.ExpiresAt.Add(j.config.Leeway)) {
		return Result{Status: StatusExpired, Claims: out}
	}

	return Result{Status: StatusValid, Claims: out}
}

func (j *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if j.config.KeyID == "" {
		return j.config.Secret, nil
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}
	if kid == j.config.KeyID {
		return j.config.Secret, nil
	}
	if key, ok := j.config.VerifyKeys[kid]; ok {
		return key, nil
	}
	return nil, errors.New("unknown kid")
}

func hasAudience(have jwt.ClaimStrings, want string) bool {
	for _, aud := range have {
		if aud == want {
			return true
		}
	}
	return false
}
