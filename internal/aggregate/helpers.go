package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 12

// ratFromFloat converts v, treating non-finite values as zero.
func ratFromFloat(v float64) *big.Rat {
	r := new(big.Rat)
	if r.SetFloat64(v) == nil {
		return new(big.Rat)
	}
	return r
}

// valueInB prices an (a, b) amount pair in token B at the reserve ratio.
func valueInB(amountA, amountB, reserveA, reserveB float64) *big.Rat {
	out := ratFromFloat(amountB)
	if reserveA <= 0 {
		return out
	}
	price := new(big.Rat).Quo(ratFromFloat(reserveB), ratFromFloat(reserveA))
	return out.Add(out, new(big.Rat).Mul(ratFromFloat(amountA), price))
}

func computeFeeRate(feeValue, tvl *big.Rat) *big.Rat {
	if feeValue == nil || feeValue.Sign() == 0 || tvl == nil || tvl.Sign() == 0 {
		return nil
	}
	return new(big.Rat).Quo(feeValue, tvl)
}

func computeAPR(feeRate *big.Rat, windowSeconds uint64) *big.Rat {
	if feeRate == nil || windowSeconds == 0 {
		return nil
	}
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(feeRate, yearSeconds)
	return apr.Quo(apr, window)
}

func ratString(r *big.Rat) *string {
	if r == nil {
		return nil
	}
	s := r.FloatString(ratioScale)
	return &s
}

func ratFloat(r *big.Rat) *float64 {
	if r == nil {
		return nil
	}
	f, _ := r.Float64()
	return &f
}
