package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/storeauth"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seenID := make(map[storeauth.MetricID]bool)
	seenName := make(map[string]bool)
	for _, def := range CounterDefs {
		if seenID[def.ID] || seenName[def.Name] {
			t.Fatalf("duplicate counter definition %+v", def)
		}
		seenID[def.ID] = true
		seenName[def.Name] = true
		if !strings.HasPrefix(def.Name, "storeauth_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
	}

	for id := storeauth.MetricRegisterSuccess; id < storeauth.MetricAuthorizeLatency; id++ {
		if !seenID[id] {
			t.Fatalf("metric %d has no counter definition", id)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(HistogramBounds) != len(got) || len(HistogramBoundSuffix) != len(got) {
		t.Fatal("bucket bounds out of sync")
	}
}
