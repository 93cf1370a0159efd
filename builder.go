package storeauth

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/storeauth/credential"
	"github.com/MrEthical07/storeauth/internal/rate"
	"github.com/MrEthical07/storeauth/jwt"
	"github.com/MrEthical07/storeauth/password"
	"github.com/MrEthical07/storeauth/revocation"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder can be used for one Build call.
//
// Builder instances are intended to be configured during initialization and then treated as immutable.
type Builder struct {
	config Config
	logger *zap.Logger
	redis  redis.UniversalClient
	db     *sql.DB

	store     credential.Store
	registry  revocation.Registry
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithLogger sets the logger for backend failures and lifecycle events.
// The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithRedis provides the client used by the redis revocation backend and by
// login throttling.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDatabase provides a PostgreSQL handle. When set, users are stored in
// the database unless WithCredentialStore overrides it, and the postgres
// revocation backend becomes available. The schema must already be migrated.
func (b *Builder) WithDatabase(db *sql.DB) *Builder {
	b.db = db
	return b
}

// WithCredentialStore overrides the credential store selection.
func (b *Builder) WithCredentialStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithRevocationRegistry overrides the backend named by
// Config.Revocation.Backend.
func (b *Builder) WithRevocationRegistry(registry revocation.Registry) *Builder {
	b.registry = registry
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authorize latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, selects backends and returns a ready
// Engine. The caller owns the Engine and must Close it.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- CREDENTIAL STORE --------
	store := b.store
	if store == nil {
		if b.db != nil {
			store = credential.NewPostgresStore(b.db)
		} else {
			store = credential.NewMemoryStore()
		}
	}

	// -------- REVOCATION REGISTRY --------
	registry := b.registry
	if registry == nil {
		switch cfg.Revocation.Backend {
		case BackendMemory:
			registry = revocation.NewMemory()
		case BackendRedis:
			if b.redis == nil {
				return nil, errors.New("redis revocation backend requires redis client")
			}
			registry = revocation.NewRedis(b.redis, cfg.Revocation.RedisPrefix, revocation.Options{
				EvictExpired: cfg.Revocation.EvictExpired,
				Leeway:       cfg.Token.Leeway,
			})
		case BackendPostgres:
			if b.db == nil {
				return nil, errors.New("postgres revocation backend requires database")
			}
			registry = revocation.NewPostgres(b.db)
		default:
			return nil, fmt.Errorf("unsupported Revocation Backend %q", cfg.Revocation.Backend)
		}
	}

	// -------- PASSWORD HASHER --------
	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxLength,
	})
	if err != nil {
		return nil, err
	}
	dummyHash, err := ph.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	// -------- TOKEN MANAGER --------
	jm, err := jwt.NewManager(jwt.Config{
		TTL:        cfg.Token.Lifetime,
		Secret:     cloneBytes(cfg.Token.Secret),
		Issuer:     cfg.Token.Issuer,
		Audience:   cfg.Token.Audience,
		Leeway:     cfg.Token.Leeway,
		KeyID:      cfg.Token.KeyID,
		VerifyKeys: cfg.Token.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		logger:       logger,
		store:        store,
		registry:     registry,
		passwordHash: ph,
		jwtManager:   jm,
		metrics:      NewMetrics(cfg.Metrics),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink, logger),
		stop:         make(chan struct{}),
	}

	if cfg.Security.EnableLoginThrottle {
		if b.redis == nil {
			engine.audit.Close()
			return nil, errors.New("login throttle requires redis client")
		}
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Security.RateLimitPrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	engine.flows = engine.buildFlows(dummyHash)

	if sweeper, ok := registry.(revocation.Sweeper); ok && cfg.Revocation.SweepInterval > 0 {
		engine.startJanitor(sweeper, cfg.Revocation.SweepInterval)
	}

	b.built = true

	return engine, nil
}
