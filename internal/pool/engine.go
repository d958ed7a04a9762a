// Package pool implements the AMM pool engine and its liquidity ledger.
package pool

import (
	"fmt"

	"go.uber.org/zap"

	"mercadolp/internal/amm"
	"mercadolp/internal/model"
)

// Config controls pricing behaviour.
type Config struct {
	FeeBps         uint32
	RatioTolerance float64
}

// Engine applies swaps and liquidity changes to a state aggregate. Every method
// validates fully before mutating so a rejected call leaves state unchanged.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine builds an Engine.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RatioTolerance <= 0 {
		cfg.RatioTolerance = 1e-6
	}
	return &Engine{cfg: cfg, logger: logger}
}

// FeeBps returns the configured swap fee.
func (e *Engine) FeeBps() uint32 {
	return e.cfg.FeeBps
}

// SwapResult describes an executed swap.
type SwapResult struct {
	PoolID   string    `json:"poolId"`
	TokenIn  string    `json:"tokenIn"`
	TokenOut string    `json:"tokenOut"`
	Quote    amm.Quote `json:"quote"`
	FeeValue float64   `json:"feeValue"`
	KBefore  float64   `json:"kBefore"`
	KAfter   float64   `json:"kAfter"`
}

// CreatePool registers an empty pool for an unordered token pair.
func (e *Engine) CreatePool(state *model.State, tokenA, tokenB, createdBy string) (model.Pool, error) {
	if tokenA == tokenB {
		return model.Pool{}, fmt.Errorf("%w: pool needs two distinct tokens", model.ErrInvalidToken)
	}
	for _, id := range []string{tokenA, tokenB} {
		if state.Token(id) == nil {
			return model.Pool{}, fmt.Errorf("%w: %s", model.ErrTokenNotFound, id)
		}
	}
	if existing := state.PoolForPair(tokenA, tokenB); existing != nil {
		return model.Pool{}, fmt.Errorf("%w: %s", model.ErrDuplicatePool, existing.ID)
	}

	if tokenB < tokenA {
		tokenA, tokenB = tokenB, tokenA
	}
	p := model.Pool{
		ID:        model.PairKey(tokenA, tokenB),
		TokenA:    tokenA,
		TokenB:    tokenB,
		CreatedBy: createdBy,
	}
	state.Pools = append(state.Pools, p)
	e.logger.Debug("pool created", zap.String("pool", p.ID), zap.String("created_by", createdBy))
	return p, nil
}

// Quote prices a swap without touching state.
func (e *Engine) Quote(state *model.State, poolID, tokenIn string, amountIn float64) (amm.Quote, error) {
	p := state.Pool(poolID)
	if p == nil {
		return amm.Quote{}, fmt.Errorf("%w: %s", model.ErrPoolNotFound, poolID)
	}
	if !p.Has(tokenIn) {
		return amm.Quote{}, fmt.Errorf("%w: %s not in pool %s", model.ErrTokenNotFound, tokenIn, poolID)
	}
	rin, rout := p.Reserves(tokenIn)
	return amm.QuoteExactIn(rin, rout, amountIn, e.cfg.FeeBps)
}

// Swap executes a swap for the player, or for an NPC when synthetic is true.
// Synthetic traders have unlimited inventory and never touch the player.
// The quote is always re-derived here so callers cannot execute stale prices.
func (e *Engine) Swap(state *model.State, poolID, tokenIn string, amountIn float64, synthetic bool) (SwapResult, error) {
	q, err := e.Quote(state, poolID, tokenIn, amountIn)
	if err != nil {
		return SwapResult{}, err
	}
	p := state.Pool(poolID)
	tokenOut := p.Other(tokenIn)

	if !synthetic {
		if have := state.Player.Balance(tokenIn); have < amountIn {
			return SwapResult{}, fmt.Errorf("%w: %s has %.6f, needs %.6f", model.ErrInsufficientBalance, tokenIn, have, amountIn)
		}
	}

	kBefore := p.ReserveA * p.ReserveB
	feeValue := q.Fee
	if tokenIn == p.TokenA {
		feeValue = q.Fee * p.SpotPrice()
	}

	if tokenIn == p.TokenA {
		p.ReserveA += q.AmountIn
		p.ReserveB -= q.AmountOut
	} else {
		p.ReserveB += q.AmountIn
		p.ReserveA -= q.AmountOut
	}

	if !synthetic {
		// Balance checked above; debit cannot fail.
		_ = state.Player.Debit(tokenIn, amountIn)
		state.Player.Credit(tokenOut, q.AmountOut)
		state.Player.SwapCount++
	}
	accrueFees(state, poolID, feeValue)

	return SwapResult{
		PoolID:   poolID,
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
		Quote:    q,
		FeeValue: feeValue,
		KBefore:  kBefore,
		KAfter:   p.ReserveA * p.ReserveB,
	}, nil
}

// LiquidityResult describes an accepted deposit.
type LiquidityResult struct {
	PoolID      string  `json:"poolId"`
	UsedA       float64 `json:"usedA"`
	UsedB       float64 `json:"usedB"`
	ExcessA     float64 `json:"excessA"`
	ExcessB     float64 `json:"excessB"`
	MintedShare float64 `json:"mintedShare"`
	Share       float64 `json:"share"`
}

// AddLiquidity deposits into poolID on behalf of the player. Deposits off the
// pool ratio are clamped; the excess is never debited.
func (e *Engine) AddLiquidity(state *model.State, poolID string, amountA, amountB float64) (LiquidityResult, error) {
	p := state.Pool(poolID)
	if p == nil {
		return LiquidityResult{}, fmt.Errorf("%w: %s", model.ErrPoolNotFound, poolID)
	}
	dep, err := amm.MatchRatio(p.ReserveA, p.ReserveB, amountA, amountB, e.cfg.RatioTolerance)
	if err != nil {
		return LiquidityResult{}, err
	}
	if !amm.Valid(dep.UsedA) || !amm.Valid(dep.UsedB) {
		return LiquidityResult{}, fmt.Errorf("%w: deposit rounds to zero", model.ErrInvalidAmount)
	}
	if have := state.Player.Balance(p.TokenA); have < dep.UsedA {
		return LiquidityResult{}, fmt.Errorf("%w: %s has %.6f, needs %.6f", model.ErrInsufficientBalance, p.TokenA, have, dep.UsedA)
	}
	if have := state.Player.Balance(p.TokenB); have < dep.UsedB {
		return LiquidityResult{}, fmt.Errorf("%w: %s has %.6f, needs %.6f", model.ErrInsufficientBalance, p.TokenB, have, dep.UsedB)
	}

	minted := amm.DepositShare(p.ReserveA, p.ReserveB, dep.UsedA, dep.UsedB)

	_ = state.Player.Debit(p.TokenA, dep.UsedA)
	_ = state.Player.Debit(p.TokenB, dep.UsedB)
	p.ReserveA += dep.UsedA
	p.ReserveB += dep.UsedB

	rescale(state, poolID, 1-minted)
	pos := state.Player.Position(poolID)
	if pos == nil {
		state.Player.LPPositions = append(state.Player.LPPositions, model.LiquidityPosition{
			PoolID:  poolID,
			OwnerID: state.Player.ID,
		})
		pos = &state.Player.LPPositions[len(state.Player.LPPositions)-1]
	}
	pos.ShareOfPool += minted
	pos.DepositedA += dep.UsedA
	pos.DepositedB += dep.UsedB
	state.Player.Stats.LiquidityAdds++
	prune(state)

	if dep.Adjusted {
		e.logger.Debug("deposit clamped to pool ratio",
			zap.String("pool", poolID),
			zap.Float64("excess_a", dep.ExcessA),
			zap.Float64("excess_b", dep.ExcessB),
		)
	}

	return LiquidityResult{
		PoolID:      poolID,
		UsedA:       dep.UsedA,
		UsedB:       dep.UsedB,
		ExcessA:     dep.ExcessA,
		ExcessB:     dep.ExcessB,
		MintedShare: minted,
		Share:       shareOf(state, poolID),
	}, nil
}

// Withdrawal describes a liquidity removal.
type Withdrawal struct {
	PoolID         string   `json:"poolId"`
	Fraction       float64  `json:"fraction"`
	AmountA        float64  `json:"amountA"`
	AmountB        float64  `json:"amountB"`
	RemainingShare float64  `json:"remainingShare"`
	Closed         bool     `json:"closed"`
	Loss           amm.Loss `json:"impermanentLoss"`
}

// RemoveLiquidity withdraws fraction of the player's position in poolID.
func (e *Engine) RemoveLiquidity(state *model.State, poolID string, fraction float64) (Withdrawal, error) {
	if !amm.Valid(fraction) || fraction > 1 {
		return Withdrawal{}, fmt.Errorf("%w: fraction %v must be in (0,1]", model.ErrInvalidAmount, fraction)
	}
	p := state.Pool(poolID)
	if p == nil {
		return Withdrawal{}, fmt.Errorf("%w: %s", model.ErrPoolNotFound, poolID)
	}
	pos := state.Player.Position(poolID)
	if pos == nil {
		return Withdrawal{}, fmt.Errorf("%w: %s", model.ErrPositionNotFound, poolID)
	}

	removed := pos.ShareOfPool * fraction
	outA := p.ReserveA * removed
	outB := p.ReserveB * removed
	spot := p.SpotPrice()
	loss := amm.ImpermanentLoss(pos.DepositedA*fraction, pos.DepositedB*fraction, outA, outB, spot)

	closing := removed >= 1-shareEpsilon
	if closing {
		outA, outB = p.ReserveA, p.ReserveB
		p.ReserveA, p.ReserveB = 0, 0
	} else {
		p.ReserveA -= outA
		p.ReserveB -= outB
	}

	pos.ShareOfPool -= removed
	pos.DepositedA *= 1 - fraction
	pos.DepositedB *= 1 - fraction
	if fraction >= 1 {
		pos.ShareOfPool = 0
	}
	if !closing {
		rescale(state, poolID, 1/(1-removed))
	}
	state.Player.Credit(p.TokenA, outA)
	state.Player.Credit(p.TokenB, outB)
	prune(state)

	return Withdrawal{
		PoolID:         poolID,
		Fraction:       fraction,
		AmountA:        outA,
		AmountB:        outB,
		RemainingShare: shareOf(state, poolID),
		Closed:         p.Closed(),
		Loss:           loss,
	}, nil
}
