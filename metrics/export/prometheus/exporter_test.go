package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/storeauth"
)

type fakeSource struct {
	snapshot storeauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() storeauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters:   map[storeauth.MetricID]uint64{},
			Histograms: map[storeauth.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters: map[storeauth.MetricID]uint64{
				storeauth.MetricLoginSuccess: 7,
			},
			Histograms: map[storeauth.MetricID][]uint64{
				storeauth.MetricAuthorizeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "storeauth_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "storeauth_authorize_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "storeauth_authorize_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "storeauth_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
	if out != exp.Render() {
		t.Fatal("expected deterministic output")
	}
}

func TestRenderOmitsHistogramWhenDisabled(t *testing.T) {
	exp := New(fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters:   map[storeauth.MetricID]uint64{storeauth.MetricLogout: 1},
			Histograms: map[storeauth.MetricID][]uint64{},
		},
	})

	out := exp.Render()
	if strings.Contains(out, "storeauth_authorize_latency_seconds") {
		t.Fatalf("expected no histogram, got:\n%s", out)
	}
	if !strings.Contains(out, "storeauth_logout_total 1") {
		t.Fatalf("expected logout counter, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := New(fakeSource{
		snapshot: storeauth.MetricsSnapshot{
			Counters:   map[storeauth.MetricID]uint64{storeauth.MetricLoginSuccess: 1},
			Histograms: map[storeauth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRenderFromEngine(t *testing.T) {
	cfg := storeauth.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	engine, err := storeauth.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Authorize(context.Background(), "")

	out := New(engine).Render()
	if !strings.Contains(out, "storeauth_authorize_missing_total 1") {
		t.Fatalf("expected missing counter from engine, got:\n%s", out)
	}
}
