package aggregate

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	History       int
	StateStore    StateStore
}

// WindowMetrics is the flushed view of one pool window.
type WindowMetrics struct {
	PoolID         string    `json:"poolId"`
	WindowSizeSecs int64     `json:"windowSizeSecs"`
	WindowStart    time.Time `json:"windowStart"`
	WindowEnd      time.Time `json:"windowEnd"`
	SwapCount      uint64    `json:"swapCount"`
	NPCSwaps       uint64    `json:"npcSwaps"`
	VolumeA        float64   `json:"volumeA"`
	VolumeB        float64   `json:"volumeB"`
	FeeA           float64   `json:"feeA"`
	FeeB           float64   `json:"feeB"`
	ReserveA       float64   `json:"reserveA"`
	ReserveB       float64   `json:"reserveB"`
	TVL            float64   `json:"tvl"`
	FeeRate        *string   `json:"feeRate,omitempty"`
	APR            *string   `json:"apr,omitempty"`
	APRValue       *float64  `json:"aprValue,omitempty"`
}

// Aggregator folds swaps into per-pool windows. Safe for concurrent use.
type Aggregator struct {
	cfg    Config
	logger *zap.Logger

	mu           sync.RWMutex
	accumulators map[string]*Accumulator
	closed       map[string][]WindowMetrics
	dirty        bool
}

func NewAggregator(cfg Config, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowSeconds == 0 {
		cfg.WindowSeconds = 3600
	}
	if cfg.History <= 0 {
		cfg.History = 24
	}
	return &Aggregator{
		cfg:          cfg,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		closed:       make(map[string][]WindowMetrics),
	}
}

// Observe adds a swap, closing the pool's previous window when it falls
// into a new one.
func (a *Aggregator) Observe(s Swap) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := windowStart(s.Timestamp, a.cfg.WindowSeconds)
	end := start + a.cfg.WindowSeconds

	acc := a.accumulators[s.PoolID]
	if acc == nil {
		acc = NewAccumulator(s, start, end)
		a.accumulators[s.PoolID] = acc
	} else if acc.WindowStart != start {
		a.closeWindow(acc)
		acc = NewAccumulator(s, start, end)
		a.accumulators[s.PoolID] = acc
	}
	acc.AddSwap(s)
}

func (a *Aggregator) closeWindow(acc *Accumulator) {
	m := a.metrics(acc)
	hist := append(a.closed[acc.PoolID], m)
	if len(hist) > a.cfg.History {
		hist = hist[len(hist)-a.cfg.History:]
	}
	a.closed[acc.PoolID] = hist
	a.dirty = true
	a.logger.Debug("window closed",
		zap.String("pool", acc.PoolID),
		zap.Uint64("swaps", acc.SwapCount),
		zap.Float64("tvl", m.TVL),
	)
}

func (a *Aggregator) metrics(acc *Accumulator) WindowMetrics {
	tvl := valueInB(acc.ReserveA, acc.ReserveB, acc.ReserveA, acc.ReserveB)
	fees := valueInB(acc.FeeA, acc.FeeB, acc.ReserveA, acc.ReserveB)
	rate := computeFeeRate(fees, tvl)
	apr := computeAPR(rate, a.cfg.WindowSeconds)
	tvlF, _ := tvl.Float64()

	return WindowMetrics{
		PoolID:         acc.PoolID,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		NPCSwaps:       acc.NPCSwaps,
		VolumeA:        acc.VolumeA,
		VolumeB:        acc.VolumeB,
		FeeA:           acc.FeeA,
		FeeB:           acc.FeeB,
		ReserveA:       acc.ReserveA,
		ReserveB:       acc.ReserveB,
		TVL:            tvlF,
		FeeRate:        ratString(rate),
		APR:            ratString(apr),
		APRValue:       ratFloat(apr),
	}
}

// Latest returns, per pool, the open window if any, else the last closed one.
func (a *Aggregator) Latest() []WindowMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	seen := make(map[string]bool)
	var out []WindowMetrics
	for id, acc := range a.accumulators {
		out = append(out, a.metrics(acc))
		seen[id] = true
	}
	for id, hist := range a.closed {
		if seen[id] || len(hist) == 0 {
			continue
		}
		out = append(out, hist[len(hist)-1])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PoolID < out[j].PoolID })
	return out
}

// Pool returns the latest window for poolID.
func (a *Aggregator) Pool(poolID string) (WindowMetrics, bool) {
	for _, m := range a.Latest() {
		if m.PoolID == poolID {
			return m, true
		}
	}
	return WindowMetrics{}, false
}

// History returns the closed windows for poolID, oldest first.
func (a *Aggregator) History(poolID string) []WindowMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]WindowMetrics(nil), a.closed[poolID]...)
}

// BestAPR returns the latest window with the highest APR estimate.
func (a *Aggregator) BestAPR() (WindowMetrics, bool) {
	var best WindowMetrics
	found := false
	for _, m := range a.Latest() {
		if m.APRValue == nil {
			continue
		}
		if !found || *m.APRValue > *best.APRValue {
			best = m
			found = true
		}
	}
	return best, found
}

// Load restores closed windows from the state store.
func (a *Aggregator) Load(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	windows, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil || !ok {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = make(map[string][]WindowMetrics)
	for _, m := range windows {
		a.closed[m.PoolID] = append(a.closed[m.PoolID], m)
	}
	return nil
}

// Flush writes closed windows to the state store when they changed.
func (a *Aggregator) Flush(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	var windows []WindowMetrics
	for _, hist := range a.closed {
		windows = append(windows, hist...)
	}
	a.dirty = false
	a.mu.Unlock()

	sort.Slice(windows, func(i, j int) bool {
		if windows[i].PoolID != windows[j].PoolID {
			return windows[i].PoolID < windows[j].PoolID
		}
		return windows[i].WindowStart.Before(windows[j].WindowStart)
	})
	return a.cfg.StateStore.Save(ctx, windows)
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}
