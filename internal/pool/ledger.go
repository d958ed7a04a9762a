package pool

import (
	"mercadolp/internal/model"
)

// shareEpsilon is the rounding tolerance for pool shares.
const shareEpsilon = 1e-9

// positionsFor returns pointers to every position held in poolID.
func positionsFor(state *model.State, poolID string) []*model.LiquidityPosition {
	var out []*model.LiquidityPosition
	for i := range state.Player.LPPositions {
		if state.Player.LPPositions[i].PoolID == poolID {
			out = append(out, &state.Player.LPPositions[i])
		}
	}
	return out
}

// TotalShare sums provider shares in poolID. The remainder up to 1 is house
// liquidity seeded with the pool.
func TotalShare(state *model.State, poolID string) float64 {
	var sum float64
	for _, pos := range positionsFor(state, poolID) {
		sum += pos.ShareOfPool
	}
	return sum
}

// accrueFees credits a swap fee to providers pro-rata to their share.
func accrueFees(state *model.State, poolID string, feeValue float64) {
	if feeValue <= 0 {
		return
	}
	for _, pos := range positionsFor(state, poolID) {
		earned := feeValue * pos.ShareOfPool
		pos.FeesEarnedCumulative += earned
		if pos.OwnerID == state.Player.ID {
			state.Player.TotalFeesEarned += earned
		}
	}
}

// rescale multiplies every share in poolID by factor, capping at 1.
func rescale(state *model.State, poolID string, factor float64) {
	for _, pos := range positionsFor(state, poolID) {
		pos.ShareOfPool *= factor
		if pos.ShareOfPool > 1 {
			pos.ShareOfPool = 1
		}
	}
}

// prune drops positions whose share fell to zero.
func prune(state *model.State) {
	kept := state.Player.LPPositions[:0]
	for _, pos := range state.Player.LPPositions {
		if pos.ShareOfPool > shareEpsilon {
			kept = append(kept, pos)
		}
	}
	state.Player.LPPositions = kept
}

func shareOf(state *model.State, poolID string) float64 {
	if pos := state.Player.Position(poolID); pos != nil {
		return pos.ShareOfPool
	}
	return 0
}
