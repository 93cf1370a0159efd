// Command storeauth-loadtest measures Authorize and Logout throughput
// against a Redis-backed revocation registry.
//
// It seeds users, logs each one in, then runs three phases: authorize
// (every token admitted), logout (revokes half the tokens) and recheck
// (revoked tokens must be rejected, the rest admitted). With no Redis
// address an in-process miniredis is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/storeauth"
)

type tokenState struct {
	token   string
	revoked bool
}

func main() {
	var (
		users       = pflag.Int("users", 1000, "number of users to register and log in")
		concurrency = pflag.Int("concurrency", 64, "number of concurrent workers")
		ops         = pflag.Int("ops", 100000, "authorize operations per phase")
		redisAddr   = pflag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = pflag.String("prefix", "lt-revoked", "revocation key prefix")
	)
	pflag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	states, err := seed(ctx, engine, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorizeStats := runAuthorizePhase(ctx, engine, states, *ops, *concurrency)
	logoutStats := runLogoutPhase(ctx, engine, states, *concurrency)
	recheckStats := runAuthorizePhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("authorize", authorizeStats)
	printStats("logout", logoutStats)
	printStats("recheck", recheckStats)

	if authorizeStats.failures+logoutStats.failures+recheckStats.failures > 0 {
		os.Exit(1)
	}
}

func buildEngine(client redis.UniversalClient, prefix string) (*storeauth.Engine, error) {
	cfg := storeauth.DefaultConfig()
	cfg.Token.Secret = []byte("storeauth-loadtest-secret-0123456789")
	cfg.Token.Lifetime = time.Hour
	cfg.Revocation.Backend = storeauth.BackendRedis
	cfg.Revocation.RedisPrefix = prefix
	cfg.Revocation.EvictExpired = true
	// Cheap hashing keeps seeding fast. Never use these in production.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.UpgradeOnLogin = false

	return storeauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLatencyHistograms(true).
		Build()
}

func seed(ctx context.Context, engine *storeauth.Engine, n int) ([]tokenState, error) {
	runID := time.Now().UnixNano()
	states := make([]tokenState, n)
	for i := 0; i < n; i++ {
		username := fmt.Sprintf("lt-%d-%d", runID, i)
		if _, err := engine.Register(ctx, username, "loadtest-password"); err != nil {
			return nil, err
		}
		res, err := engine.Login(ctx, username, "loadtest-password")
		if err != nil {
			return nil, err
		}
		states[i] = tokenState{token: res.AccessToken}
	}
	return states, nil
}

// runAuthorizePhase counts a failure whenever the outcome disagrees with the
// token's expected state.
func runAuthorizePhase(ctx context.Context, engine *storeauth.Engine, states []tokenState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := states[r.Intn(len(states))]
				t0 := time.Now()
				_, err := engine.Authorize(ctx, state.token)
				d := time.Since(t0)
				if state.revoked != errors.Is(err, storeauth.ErrTokenRevoked) || (!state.revoked && err != nil) {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runLogoutPhase revokes every even-indexed token.
func runLogoutPhase(ctx context.Context, engine *storeauth.Engine, states []tokenState, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(states)/2+1)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)-1) * 2
				if i >= len(states) {
					return
				}
				t0 := time.Now()
				err := engine.Logout(ctx, states[i].token)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					states[i].revoked = true
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
