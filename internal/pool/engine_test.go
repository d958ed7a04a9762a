package pool

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercadolp/internal/amm"
	"mercadolp/internal/model"
)

func newState() *model.State {
	return &model.State{
		Player: model.Player{
			ID:        "player",
			Inventory: map[string]float64{"manzana": 1000, "uva": 1000, "fresa": 1000},
		},
		Tokens: []model.Token{
			{ID: "manzana", Symbol: "MANZANA", IsBaseToken: true},
			{ID: "uva", Symbol: "UVA", IsBaseToken: true},
			{ID: "fresa", Symbol: "FRESA", IsBaseToken: true},
		},
	}
}

func seededPool(t *testing.T, e *Engine, s *model.State, reserveA, reserveB float64) *model.Pool {
	t.Helper()
	p, err := e.CreatePool(s, "manzana", "uva", "house")
	require.NoError(t, err)
	pp := s.Pool(p.ID)
	pp.ReserveA, pp.ReserveB = reserveA, reserveB
	return pp
}

func TestCreatePoolRejectsDuplicatePair(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()

	_, err := e.CreatePool(s, "uva", "manzana", "player")
	require.NoError(t, err)

	_, err = e.CreatePool(s, "manzana", "uva", "player")
	require.ErrorIs(t, err, model.ErrDuplicatePool)

	_, err = e.CreatePool(s, "manzana", "kiwi", "player")
	require.ErrorIs(t, err, model.ErrTokenNotFound)

	_, err = e.CreatePool(s, "uva", "uva", "player")
	require.ErrorIs(t, err, model.ErrInvalidToken)
	require.Len(t, s.Pools, 1)
}

func TestAddLiquidityToEmptyPool(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	p, err := e.CreatePool(s, "manzana", "uva", "player")
	require.NoError(t, err)

	res, err := e.AddLiquidity(s, p.ID, 100, 50)
	require.NoError(t, err)

	pool := s.Pool(p.ID)
	assert.Equal(t, 100.0, pool.ReserveA)
	assert.Equal(t, 50.0, pool.ReserveB)
	assert.Equal(t, 1.0, res.Share)
	require.Len(t, s.Player.LPPositions, 1)
	assert.Equal(t, 1.0, s.Player.LPPositions[0].ShareOfPool)
	assert.Equal(t, 900.0, s.Player.Balance("manzana"))
	assert.Equal(t, 950.0, s.Player.Balance("uva"))
}

func TestAddLiquidityClampsToRatio(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	pool := seededPool(t, e, s, 100, 50)

	res, err := e.AddLiquidity(s, pool.ID, 10, 10)
	require.NoError(t, err)

	assert.InDelta(t, 10, res.UsedA, 1e-12)
	assert.InDelta(t, 5, res.UsedB, 1e-12)
	assert.InDelta(t, 5, res.ExcessB, 1e-12)
	// Excess is never debited.
	assert.InDelta(t, 995, s.Player.Balance("uva"), 1e-12)
	assert.InDelta(t, 990, s.Player.Balance("manzana"), 1e-12)
	assert.InDelta(t, 10.0/110.0, res.Share, 1e-12)
}

func TestAddLiquidityInsufficientBalanceLeavesStateUnchanged(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	pool := seededPool(t, e, s, 100, 100)
	before := s.Clone()

	_, err := e.AddLiquidity(s, pool.ID, 5000, 5000)
	require.ErrorIs(t, err, model.ErrInsufficientBalance)
	assert.Equal(t, before, s)
}

func TestSwapScenarioB(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	pool := seededPool(t, e, s, 100, 100)

	res, err := e.Swap(s, pool.ID, "manzana", 10, false)
	require.NoError(t, err)

	assert.InDelta(t, 9.066, res.Quote.AmountOut, 1e-3)
	assert.InDelta(t, 0.0934, res.Quote.PriceImpact, 1e-3)
	assert.Equal(t, amm.ImpactHigh, res.Quote.Impact())
	assert.Equal(t, 1, s.Player.SwapCount)
	assert.InDelta(t, 990, s.Player.Balance("manzana"), 1e-9)
	assert.InDelta(t, 1000+res.Quote.AmountOut, s.Player.Balance("uva"), 1e-9)
	assert.Greater(t, res.KAfter, res.KBefore)
}

func TestSwapInsufficientBalance(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	pool := seededPool(t, e, s, 100, 100)
	before := s.Clone()

	_, err := e.Swap(s, pool.ID, "manzana", 5000, false)
	require.ErrorIs(t, err, model.ErrInsufficientBalance)
	assert.Equal(t, before, s)

	_, err = e.Swap(s, pool.ID, "manzana", -1, false)
	require.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = e.Swap(s, "nope", "manzana", 1, false)
	require.ErrorIs(t, err, model.ErrPoolNotFound)
}

func TestSyntheticSwapSkipsPlayer(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	pool := seededPool(t, e, s, 100, 100)

	_, err := e.Swap(s, pool.ID, "uva", 50000, true)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Player.SwapCount)
	assert.Equal(t, 1000.0, s.Player.Balance("uva"))
	assert.Greater(t, s.Pool(pool.ID).ReserveA, 0.0)
}

func TestConstantProductGrowsWithFee(t *testing.T) {
	for _, fee := range []uint32{0, 5, 30, 100} {
		e := NewEngine(Config{FeeBps: fee}, nil)
		s := newState()
		pool := seededPool(t, e, s, 500, 200)

		for i := 0; i < 20; i++ {
			tokenIn := "manzana"
			if i%2 == 1 {
				tokenIn = "uva"
			}
			res, err := e.Swap(s, pool.ID, tokenIn, float64(i+1), true)
			require.NoError(t, err)
			if fee == 0 {
				assert.InEpsilon(t, res.KBefore, res.KAfter, 1e-9)
			} else {
				assert.Greater(t, res.KAfter, res.KBefore)
			}
		}
	}
}

func TestFeesAccrueProRata(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	pool := seededPool(t, e, s, 100, 100)

	_, err := e.AddLiquidity(s, pool.ID, 100, 100)
	require.NoError(t, err)
	require.InDelta(t, 0.5, s.Player.Position(pool.ID).ShareOfPool, 1e-12)

	_, err = e.Swap(s, pool.ID, "uva", 10, true)
	require.NoError(t, err)

	// Fee 0.03 uva, half accrues to the player's 50% position.
	assert.InDelta(t, 0.015, s.Player.Position(pool.ID).FeesEarnedCumulative, 1e-12)
	assert.InDelta(t, 0.015, s.Player.TotalFeesEarned, 1e-12)
}

func TestRemoveLiquidityFullWithdrawalClosesPool(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	p, err := e.CreatePool(s, "manzana", "uva", "player")
	require.NoError(t, err)
	_, err = e.AddLiquidity(s, p.ID, 100, 50)
	require.NoError(t, err)

	w, err := e.RemoveLiquidity(s, p.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, 100.0, w.AmountA)
	assert.Equal(t, 50.0, w.AmountB)
	assert.True(t, w.Closed)
	assert.Empty(t, s.Player.LPPositions)
	assert.InDelta(t, 1000, s.Player.Balance("manzana"), 1e-9)
	assert.InDelta(t, 0, w.Loss.Delta, 1e-9)
}

func TestRemoveLiquidityPartialKeepsShareInvariant(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	pool := seededPool(t, e, s, 100, 100)
	_, err := e.AddLiquidity(s, pool.ID, 100, 100)
	require.NoError(t, err)

	w, err := e.RemoveLiquidity(s, pool.ID, 0.5)
	require.NoError(t, err)

	assert.InDelta(t, 50, w.AmountA, 1e-9)
	assert.InDelta(t, 50, w.AmountB, 1e-9)
	// 50 of 150 remaining units belong to the player.
	assert.InDelta(t, 1.0/3.0, w.RemainingShare, 1e-9)
	assert.LessOrEqual(t, TotalShare(s, pool.ID), 1+shareEpsilon)
	assert.False(t, w.Closed)
}

func TestRemoveLiquidityReportsImpermanentLoss(t *testing.T) {
	e := NewEngine(Config{FeeBps: 0}, nil)
	s := newState()
	p, err := e.CreatePool(s, "manzana", "uva", "player")
	require.NoError(t, err)
	_, err = e.AddLiquidity(s, p.ID, 100, 100)
	require.NoError(t, err)

	_, err = e.Swap(s, p.ID, "uva", 100, true)
	require.NoError(t, err)

	w, err := e.RemoveLiquidity(s, p.ID, 1)
	require.NoError(t, err)
	// Reserves move to 50 manzana / 200 uva, spot 4: hold 500 vs returned 400.
	assert.InDelta(t, 50, w.AmountA, 1e-9)
	assert.InDelta(t, 200, w.AmountB, 1e-9)
	assert.InDelta(t, 100, w.Loss.Delta, 1e-9)
	assert.InDelta(t, 0.2, w.Loss.Fraction, 1e-9)
}

func TestRemoveLiquidityValidation(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	pool := seededPool(t, e, s, 100, 100)

	_, err := e.RemoveLiquidity(s, pool.ID, 0.5)
	require.ErrorIs(t, err, model.ErrPositionNotFound)

	for _, f := range []float64{0, -0.1, 1.5, math.NaN()} {
		_, err = e.RemoveLiquidity(s, pool.ID, f)
		require.ErrorIs(t, err, model.ErrInvalidAmount)
	}
}

func TestShareInvariantUnderRandomOps(t *testing.T) {
	e := NewEngine(Config{FeeBps: 30}, nil)
	s := newState()
	pool := seededPool(t, e, s, 300, 150)

	ops := []struct {
		add      bool
		a, b     float64
		fraction float64
	}{
		{add: true, a: 10, b: 5},
		{add: true, a: 40, b: 30},
		{fraction: 0.25},
		{add: true, a: 1, b: 100},
		{fraction: 0.9},
		{add: true, a: 200, b: 100},
		{fraction: 1},
		{add: true, a: 3, b: 1.5},
	}
	for _, op := range ops {
		if op.add {
			_, err := e.AddLiquidity(s, pool.ID, op.a, op.b)
			require.NoError(t, err)
		} else {
			_, err := e.RemoveLiquidity(s, pool.ID, op.fraction)
			require.NoError(t, err)
		}
		_, err := e.Swap(s, pool.ID, "manzana", 2, true)
		require.NoError(t, err)

		total := TotalShare(s, pool.ID)
		assert.LessOrEqual(t, total, 1+shareEpsilon)
		if total > 0 {
			p := s.Pool(pool.ID)
			assert.Greater(t, p.ReserveA, 0.0)
			assert.Greater(t, p.ReserveB, 0.0)
		}
	}
}
