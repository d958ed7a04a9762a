package aggregate

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func swapAt(pool string, ts uint64, fee float64) Swap {
	return Swap{
		PoolID:    pool,
		TokenA:    "a",
		TokenB:    "b",
		TokenIn:   "a",
		AmountIn:  10,
		AmountOut: 9,
		Fee:       fee,
		ReserveA:  110,
		ReserveB:  91,
		Timestamp: ts,
	}
}

func TestObserveAccumulatesWindow(t *testing.T) {
	agg := NewAggregator(Config{WindowSeconds: 3600}, nil)
	agg.Observe(swapAt("a-b", 10, 0.03))

	m, ok := agg.Pool("a-b")
	if !ok {
		t.Fatalf("expected pool window")
	}
	if m.SwapCount != 1 || m.VolumeA != 10 || m.VolumeB != 9 || m.FeeA != 0.03 {
		t.Fatalf("unexpected window: %+v", m)
	}
	if math.Abs(m.TVL-182) > 1e-9 {
		t.Fatalf("tvl = %v, want 182", m.TVL)
	}
	if m.APRValue == nil {
		t.Fatalf("expected apr")
	}
	want := 0.03 / 220 * 8760
	if math.Abs(*m.APRValue-want) > 1e-9 {
		t.Fatalf("apr = %v, want %v", *m.APRValue, want)
	}
	if m.APR == nil || *m.APR == "" {
		t.Fatalf("expected formatted apr")
	}
}

func TestObserveRollsWindow(t *testing.T) {
	agg := NewAggregator(Config{WindowSeconds: 3600, History: 2}, nil)
	agg.Observe(swapAt("a-b", 10, 0.03))
	agg.Observe(swapAt("a-b", 20, 0.03))
	agg.Observe(swapAt("a-b", 3700, 0.03))

	hist := agg.History("a-b")
	if len(hist) != 1 || hist[0].SwapCount != 2 {
		t.Fatalf("unexpected history: %+v", hist)
	}
	m, _ := agg.Pool("a-b")
	if m.SwapCount != 1 || m.WindowStart.Unix() != 3600 {
		t.Fatalf("unexpected open window: %+v", m)
	}

	agg.Observe(swapAt("a-b", 7300, 0))
	agg.Observe(swapAt("a-b", 10900, 0))
	if got := len(agg.History("a-b")); got != 2 {
		t.Fatalf("history len = %d, want 2", got)
	}
}

func TestBestAPR(t *testing.T) {
	agg := NewAggregator(Config{WindowSeconds: 3600}, nil)
	agg.Observe(swapAt("a-b", 10, 0.03))
	agg.Observe(swapAt("a-c", 10, 0.3))
	agg.Observe(swapAt("b-c", 10, 0))

	best, ok := agg.BestAPR()
	if !ok || best.PoolID != "a-c" {
		t.Fatalf("best = %+v, ok = %v", best, ok)
	}
	if _, ok := NewAggregator(Config{}, nil).BestAPR(); ok {
		t.Fatalf("empty aggregator should have no best pool")
	}
}

func TestFlushAndLoad(t *testing.T) {
	store := &FileStateStore{Path: filepath.Join(t.TempDir(), "windows.json")}
	ctx := context.Background()

	agg := NewAggregator(Config{WindowSeconds: 60, StateStore: store}, nil)
	agg.Observe(swapAt("a-b", 10, 0.03))
	agg.Observe(swapAt("a-b", 70, 0.03))
	if err := agg.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	restored := NewAggregator(Config{WindowSeconds: 60, StateStore: store}, nil)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	hist := restored.History("a-b")
	if len(hist) != 1 || hist[0].SwapCount != 1 || hist[0].WindowStart.Unix() != 0 {
		t.Fatalf("unexpected restored history: %+v", hist)
	}
}
