// Command storeauth-server serves the stores/items API with token
// authentication.
//
// Configuration comes from defaults, an optional YAML file (--config or
// STOREAUTH_CONFIG), STOREAUTH_* environment variables and flags, in that
// order. With no database URL the users and the catalog live in memory.
//
//	storeauth-server --token-secret "$(openssl rand -hex 32)"
//	storeauth-server --config /etc/storeauth.yaml --redis-addr localhost:6379 \
//	  --revocation-store-backend redis
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/MrEthical07/storeauth"
	"github.com/MrEthical07/storeauth/catalog"
	"github.com/MrEthical07/storeauth/internal/httpapi"
	"github.com/MrEthical07/storeauth/internal/migrations"
	otelexport "github.com/MrEthical07/storeauth/metrics/export/otel"
	"github.com/MrEthical07/storeauth/metrics/export/prometheus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, "storeauth-server:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string) error {
	cfg, err := loadConfig(args, getenv)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	builder := storeauth.New().
		WithConfig(cfg.engineConfig()).
		WithLogger(logger)
	if cfg.Auth.AuditEnabled {
		builder.WithAuditSink(storeauth.NewZapSink(logger.Named("audit")))
	}

	var repo catalog.Repository = catalog.NewMemoryRepository()
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		db := stdlib.OpenDBFromPool(pool)
		defer db.Close()

		if err := migrations.Run(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		builder.WithDatabase(db)
		repo = catalog.NewPostgresRepository(db)
		logger.Info("using postgres storage")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		builder.WithRedis(rdb)
		logger.Info("using redis", zap.String("addr", cfg.RedisAddr))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	// No-op unless the process installs a global MeterProvider.
	exporter, err := otelexport.New(otel.GetMeterProvider().Meter("github.com/MrEthical07/storeauth"), engine)
	if err != nil {
		return fmt.Errorf("otel exporter: %w", err)
	}
	defer func() { _ = exporter.Close() }()

	api := httpapi.New(engine, repo,
		httpapi.WithLogger(logger),
		httpapi.WithMetricsHandler(prometheus.New(engine).Handler()),
		httpapi.WithTrustProxyHeaders(cfg.TrustProxyHeaders),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var zcfg zap.Config
	switch format {
	case "json":
		zcfg = zap.NewProductionConfig()
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("log format %q: want json or console", format)
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
