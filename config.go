package storeauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/storeauth/jwt"
	"github.com/MrEthical07/storeauth/password"
)

// Revocation backend names accepted by RevocationConfig.Backend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds every Engine setting.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Token      TokenConfig
	Password   PasswordConfig
	Revocation RevocationConfig
	Security   SecurityConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures session token issuance.
type TokenConfig struct {
	Secret   []byte
	Lifetime time.Duration
	Issuer   string
	Audience string
	Leeway   time.Duration

	// KeyID and VerifyKeys support secret rotation; see jwt.Config.
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and the registration policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig selects and tunes the revocation registry.
type RevocationConfig struct {
	Backend     string
	RedisPrefix string

	// EvictExpired drops revocation entries once their token has expired.
	// Off by default: entries are then kept for the life of the registry.
	EvictExpired bool
	// SweepInterval is the janitor period for backends implementing
	// revocation.Sweeper. Zero disables the janitor.
	SweepInterval time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login throttling and username policy.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	RateLimitPrefix       string
	MaxUsernameLength     int
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Token.Secret is left
// empty and must be supplied.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		Token: TokenConfig{
			Lifetime: 30 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			MinLength:      6,
			MaxLength:      password.DefaultMaxPasswordBytes,
			UpgradeOnLogin: true,
		},
		Revocation: RevocationConfig{
			Backend:     BackendMemory,
			RedisPrefix: "revoked",
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			RateLimitPrefix:       "rl",
			MaxUsernameLength:     64,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	if cfg.Token.VerifyKeys != nil {
		out.Token.VerifyKeys = make(map[string][]byte, len(cfg.Token.VerifyKeys))
		for kid, key := range cfg.Token.VerifyKeys {
			out.Token.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	// Token
	if len(c.Token.Secret) == 0 {
		return errors.New("Token Secret is required")
	}
	if len(c.Token.Secret) < jwt.MinSecretBytes {
		return fmt.Errorf("Token Secret must be at least %d bytes", jwt.MinSecretBytes)
	}
	if c.Token.Lifetime <= 0 {
		return errors.New("Token Lifetime must be > 0")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// Revocation
	switch c.Revocation.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
		// valid
	default:
		return fmt.Errorf("unsupported Revocation Backend %q", c.Revocation.Backend)
	}
	if c.Revocation.SweepInterval < 0 {
		return errors.New("Revocation SweepInterval must be >= 0")
	}
	if c.Revocation.SweepInterval > 0 && !c.Revocation.EvictExpired {
		return errors.New("Revocation SweepInterval requires EvictExpired")
	}
	if c.Revocation.Backend == BackendRedis && strings.TrimSpace(c.Revocation.RedisPrefix) == "" {
		return errors.New("Revocation RedisPrefix is required for the redis backend")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0 when login throttle is enabled")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0 when login throttle is enabled")
		}
	}
	if c.Security.MaxUsernameLength <= 0 {
		return errors.New("MaxUsernameLength must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a non-fatal configuration concern.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the ordered list of warnings from Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but risky in production.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code, msg string) {
		out = append(out, LintWarning{Code: code, Message: msg})
	}

	if c.Token.Lifetime > time.Hour {
		add("token_lifetime_long", "token lifetime above 1h widens the window for stolen tokens")
	}
	if c.Token.Leeway > time.Minute {
		add("leeway_large", "token leeway above 1m")
	}
	if !c.Security.EnableLoginThrottle {
		add("login_throttle_disabled", "login attempts are not rate limited")
	}
	if c.Password.MinLength < 8 {
		add("password_min_length_short", "minimum password length below 8")
	}
	if c.Revocation.Backend == BackendMemory {
		add("revocation_memory_backend", "revocations are lost on restart and not shared across instances")
	}
	if !c.Revocation.EvictExpired && c.Revocation.Backend != BackendMemory {
		add("revocation_unbounded", "revocation entries are never evicted")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", "audit dispatch blocks requests when the buffer is full")
	}

	return out
}
