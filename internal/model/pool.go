package model

// Pool holds constant-product reserves for a token pair.
type Pool struct {
	ID        string  `json:"id"`
	TokenA    string  `json:"tokenA"`
	TokenB    string  `json:"tokenB"`
	ReserveA  float64 `json:"reserveA"`
	ReserveB  float64 `json:"reserveB"`
	CreatedBy string  `json:"createdBy"`
}

// PairKey returns the canonical key for an unordered token pair.
func PairKey(tokenA, tokenB string) string {
	if tokenB < tokenA {
		tokenA, tokenB = tokenB, tokenA
	}
	return tokenA + "-" + tokenB
}

// PairKey returns the canonical key of the pool's pair.
func (p Pool) PairKey() string {
	return PairKey(p.TokenA, p.TokenB)
}

// Closed reports whether the pool has no reserves left.
func (p Pool) Closed() bool {
	return p.ReserveA <= 0 || p.ReserveB <= 0
}

// Has reports whether token is one side of the pool.
func (p Pool) Has(token string) bool {
	return p.TokenA == token || p.TokenB == token
}

// Other returns the opposite side of token in the pool.
func (p Pool) Other(token string) string {
	if p.TokenA == token {
		return p.TokenB
	}
	return p.TokenA
}

// Reserves returns (reserveIn, reserveOut) for a swap paying tokenIn.
func (p Pool) Reserves(tokenIn string) (float64, float64) {
	if tokenIn == p.TokenA {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// SpotPrice returns the price of tokenA denominated in tokenB.
func (p Pool) SpotPrice() float64 {
	if p.ReserveA <= 0 {
		return 0
	}
	return p.ReserveB / p.ReserveA
}
