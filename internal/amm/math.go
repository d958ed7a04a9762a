// Package amm holds the constant-product pricing math used by the pool engine.
package amm

import (
	"fmt"
	"math"

	"mercadolp/internal/model"
)

// BpsDenominator converts basis points to a fraction.
const BpsDenominator = 10_000

// Quote is the result of pricing a swap against a pool.
type Quote struct {
	AmountIn       float64 `json:"amountIn"`
	AmountInNet    float64 `json:"amountInNet"`
	Fee            float64 `json:"fee"`
	AmountOut      float64 `json:"amountOut"`
	SpotPrice      float64 `json:"spotPrice"`
	ExecutionPrice float64 `json:"executionPrice"`
	PriceImpact    float64 `json:"priceImpact"`
}

// Impact classifies the quote's price impact.
func (q Quote) Impact() ImpactLevel {
	return ClassifyImpact(q.PriceImpact)
}

// ImpactLevel buckets price impact for display.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactModerate ImpactLevel = "moderate"
	ImpactHigh     ImpactLevel = "high"
	ImpactSevere   ImpactLevel = "severe"
)

// ClassifyImpact maps a fractional price impact to its level.
func ClassifyImpact(impact float64) ImpactLevel {
	pct := impact * 100
	switch {
	case pct < 2:
		return ImpactLow
	case pct < 5:
		return ImpactModerate
	case pct < 10:
		return ImpactHigh
	default:
		return ImpactSevere
	}
}

// Valid reports whether v is a finite, strictly positive quantity.
func Valid(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// FeeFraction converts a basis-point fee to a fraction.
func FeeFraction(feeBps uint32) float64 {
	return float64(feeBps) / BpsDenominator
}

// QuoteExactIn prices amountIn against (reserveIn, reserveOut) with x*y=k.
func QuoteExactIn(reserveIn, reserveOut, amountIn float64, feeBps uint32) (Quote, error) {
	if !Valid(amountIn) {
		return Quote{}, fmt.Errorf("%w: amount in %v", model.ErrInvalidAmount, amountIn)
	}
	if !Valid(reserveIn) || !Valid(reserveOut) {
		return Quote{}, fmt.Errorf("%w: pool has no reserves", model.ErrInvalidAmount)
	}
	if feeBps >= BpsDenominator {
		return Quote{}, fmt.Errorf("fee %d bps out of range", feeBps)
	}

	fee := amountIn * FeeFraction(feeBps)
	net := amountIn - fee
	out := reserveOut - (reserveIn*reserveOut)/(reserveIn+net)
	spot := reserveOut / reserveIn
	exec := out / amountIn

	return Quote{
		AmountIn:       amountIn,
		AmountInNet:    net,
		Fee:            fee,
		AmountOut:      out,
		SpotPrice:      spot,
		ExecutionPrice: exec,
		PriceImpact:    1 - exec/spot,
	}, nil
}

// Deposit describes how much of a liquidity request the pool accepts.
type Deposit struct {
	UsedA    float64
	UsedB    float64
	ExcessA  float64
	ExcessB  float64
	Adjusted bool
}

// MatchRatio clamps (amountA, amountB) to the pool's reserve ratio. Empty pools
// accept any positive ratio. Excess is reported so the caller never debits it.
func MatchRatio(reserveA, reserveB, amountA, amountB, tolerance float64) (Deposit, error) {
	if !Valid(amountA) || !Valid(amountB) {
		return Deposit{}, fmt.Errorf("%w: deposit %v/%v", model.ErrInvalidAmount, amountA, amountB)
	}
	if reserveA <= 0 || reserveB <= 0 {
		return Deposit{UsedA: amountA, UsedB: amountB}, nil
	}

	ratio := reserveB / reserveA
	want := amountA * ratio
	if math.Abs(amountB-want) <= tolerance*want {
		return Deposit{UsedA: amountA, UsedB: amountB}, nil
	}

	usedA := math.Min(amountA, amountB/ratio)
	usedB := usedA * ratio
	return Deposit{
		UsedA:    usedA,
		UsedB:    usedB,
		ExcessA:  amountA - usedA,
		ExcessB:  math.Max(0, amountB-usedB),
		Adjusted: true,
	}, nil
}

// PoolValue is the pool's value in tokenB units at its own spot price.
func PoolValue(reserveA, reserveB float64) float64 {
	if reserveA <= 0 {
		return reserveB
	}
	return reserveA*(reserveB/reserveA) + reserveB
}

// DepositShare returns the share of post-deposit pool value a deposit owns.
func DepositShare(reserveA, reserveB, usedA, usedB float64) float64 {
	if reserveA <= 0 || reserveB <= 0 {
		return 1
	}
	price := reserveB / reserveA
	dep := usedA*price + usedB
	pre := PoolValue(reserveA, reserveB)
	return dep / (pre + dep)
}

// Loss reports the gap between holding and withdrawing.
type Loss struct {
	HoldValue     float64 `json:"holdValue"`
	ReturnedValue float64 `json:"returnedValue"`
	Delta         float64 `json:"delta"`
	Fraction      float64 `json:"fraction"`
}

// ImpermanentLoss compares returned amounts with simply holding the deposit,
// both valued in tokenB at spot (tokenA priced in tokenB).
func ImpermanentLoss(depositedA, depositedB, returnedA, returnedB, spot float64) Loss {
	hold := depositedA*spot + depositedB
	got := returnedA*spot + returnedB
	loss := Loss{HoldValue: hold, ReturnedValue: got, Delta: hold - got}
	if hold > 0 {
		loss.Fraction = loss.Delta / hold
	}
	return loss
}
