package aggregate

// Swap is one executed trade as seen by the aggregator.
type Swap struct {
	PoolID    string
	TokenA    string
	TokenB    string
	TokenIn   string
	AmountIn  float64
	AmountOut float64
	Fee       float64
	ReserveA  float64
	ReserveB  float64
	Synthetic bool
	Timestamp uint64
}

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolID      string
	TokenA      string
	TokenB      string
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	NPCSwaps    uint64
	VolumeA     float64
	VolumeB     float64
	FeeA        float64
	FeeB        float64
	ReserveA    float64
	ReserveB    float64
	FirstTS     uint64
	LastTS      uint64
}

func NewAccumulator(s Swap, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolID:      s.PoolID,
		TokenA:      s.TokenA,
		TokenB:      s.TokenB,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		ReserveA:    s.ReserveA,
		ReserveB:    s.ReserveB,
		FirstTS:     s.Timestamp,
		LastTS:      s.Timestamp,
	}
}

func (a *Accumulator) AddSwap(s Swap) {
	if s.Timestamp >= a.LastTS {
		a.LastTS = s.Timestamp
		a.ReserveA = s.ReserveA
		a.ReserveB = s.ReserveB
	}
	if a.FirstTS == 0 || s.Timestamp < a.FirstTS {
		a.FirstTS = s.Timestamp
	}

	// Volume counts both legs; the fee is charged on the input side.
	if s.TokenIn == a.TokenA {
		a.VolumeA += s.AmountIn
		a.VolumeB += s.AmountOut
		a.FeeA += s.Fee
	} else {
		a.VolumeB += s.AmountIn
		a.VolumeA += s.AmountOut
		a.FeeB += s.Fee
	}

	a.SwapCount++
	if s.Synthetic {
		a.NPCSwaps++
	}
}
