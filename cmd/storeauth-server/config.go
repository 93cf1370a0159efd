package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/storeauth"
)

const envPrefix = "STOREAUTH_"

// serverConfig is built from defaults, then an optional YAML file, then
// STOREAUTH_* environment variables, then command-line flags. Later layers
// win.
type serverConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
	DatabaseURL       string        `yaml:"database_url"`
	RedisAddr         string        `yaml:"redis_addr"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	Auth              authConfig    `yaml:"auth"`
}

type authConfig struct {
	TokenSecret            string        `yaml:"token_secret"`
	TokenLifetime          time.Duration `yaml:"token_lifetime"`
	TokenIssuer            string        `yaml:"token_issuer"`
	RevocationStoreBackend string        `yaml:"revocation_store_backend"`
	RevocationEvictExpired bool          `yaml:"revocation_evict_expired"`
	RevocationSweep        time.Duration `yaml:"revocation_sweep_interval"`
	LoginThrottle          bool          `yaml:"login_throttle"`
	MaxLoginAttempts       int           `yaml:"max_login_attempts"`
	LoginCooldown          time.Duration `yaml:"login_cooldown"`
	AuditEnabled           bool          `yaml:"audit_enabled"`
}

func defaultServerConfig() serverConfig {
	eng := storeauth.DefaultConfig()
	return serverConfig{
		ListenAddr:      ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 10 * time.Second,
		Auth: authConfig{
			TokenLifetime:          eng.Token.Lifetime,
			RevocationStoreBackend: eng.Revocation.Backend,
			MaxLoginAttempts:       eng.Security.MaxLoginAttempts,
			LoginCooldown:          eng.Security.LoginCooldownDuration,
		},
	}
}

func loadConfig(args []string, getenv func(string) string) (serverConfig, error) {
	cfg := defaultServerConfig()

	fs := pflag.NewFlagSet("storeauth-server", pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file (env STOREAUTH_CONFIG)")
	fs.String("listen", cfg.ListenAddr, "HTTP listen address")
	fs.String("log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.String("log-format", cfg.LogFormat, "json or console")
	fs.String("database-url", "", "PostgreSQL URL; empty keeps users and catalog in memory")
	fs.String("redis-addr", "", "Redis address for revocation and login throttling")
	fs.Bool("trust-proxy-headers", false, "take the client IP from X-Forwarded-For")
	fs.String("token-secret", "", "HS256 signing secret, at least 32 bytes")
	fs.Duration("token-lifetime", cfg.Auth.TokenLifetime, "session token lifetime")
	fs.String("revocation-store-backend", cfg.Auth.RevocationStoreBackend, "memory, redis or postgres")
	fs.Bool("login-throttle", false, "throttle failed logins (requires Redis)")
	if err := fs.Parse(args); err != nil {
		return serverConfig{}, err
	}

	path, _ := fs.GetString("config")
	if path == "" {
		path = getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return serverConfig{}, err
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return serverConfig{}, err
	}

	var flagErr error
	fs.Visit(func(f *pflag.Flag) {
		if flagErr == nil {
			flagErr = applyFlag(fs, f.Name, &cfg)
		}
	})
	if flagErr != nil {
		return serverConfig{}, flagErr
	}

	return cfg, nil
}

func loadYAML(path string, cfg *serverConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *serverConfig, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v := getenv(envPrefix + name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = b
		return nil
	}
	duration := func(name string, dst *time.Duration) error {
		v := getenv(envPrefix + name)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("LISTEN_ADDR", &cfg.ListenAddr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("TOKEN_SECRET", &cfg.Auth.TokenSecret)
	str("TOKEN_ISSUER", &cfg.Auth.TokenIssuer)
	str("REVOCATION_STORE_BACKEND", &cfg.Auth.RevocationStoreBackend)

	return errors.Join(
		boolean("TRUST_PROXY_HEADERS", &cfg.TrustProxyHeaders),
		boolean("LOGIN_THROTTLE", &cfg.Auth.LoginThrottle),
		boolean("AUDIT_ENABLED", &cfg.Auth.AuditEnabled),
		duration("TOKEN_LIFETIME", &cfg.Auth.TokenLifetime),
		duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout),
	)
}

func applyFlag(fs *pflag.FlagSet, name string, cfg *serverConfig) error {
	var err error
	switch name {
	case "listen":
		cfg.ListenAddr, err = fs.GetString(name)
	case "log-level":
		cfg.LogLevel, err = fs.GetString(name)
	case "log-format":
		cfg.LogFormat, err = fs.GetString(name)
	case "database-url":
		cfg.DatabaseURL, err = fs.GetString(name)
	case "redis-addr":
		cfg.RedisAddr, err = fs.GetString(name)
	case "trust-proxy-headers":
		cfg.TrustProxyHeaders, err = fs.GetBool(name)
	case "token-secret":
		cfg.Auth.TokenSecret, err = fs.GetString(name)
	case "token-lifetime":
		cfg.Auth.TokenLifetime, err = fs.GetDuration(name)
	case "revocation-store-backend":
		cfg.Auth.RevocationStoreBackend, err = fs.GetString(name)
	case "login-throttle":
		cfg.Auth.LoginThrottle, err = fs.GetBool(name)
	}
	return err
}

// engineConfig maps the server settings onto the engine configuration.
// Validation happens in Builder.Build.
func (c serverConfig) engineConfig() storeauth.Config {
	cfg := storeauth.DefaultConfig()
	cfg.Token.Secret = []byte(c.Auth.TokenSecret)
	cfg.Token.Lifetime = c.Auth.TokenLifetime
	cfg.Token.Issuer = c.Auth.TokenIssuer
	cfg.Revocation.Backend = c.Auth.RevocationStoreBackend
	cfg.Revocation.EvictExpired = c.Auth.RevocationEvictExpired
	cfg.Revocation.SweepInterval = c.Auth.RevocationSweep
	cfg.Security.EnableLoginThrottle = c.Auth.LoginThrottle
	cfg.Security.EnableIPThrottle = c.Auth.LoginThrottle
	cfg.Security.MaxLoginAttempts = c.Auth.MaxLoginAttempts
	cfg.Security.LoginCooldownDuration = c.Auth.LoginCooldown
	cfg.Audit.Enabled = c.Auth.AuditEnabled
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
