// Package auction implements a uniform-price clearing auction over future blocks.
package auction

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"mercadolp/internal/amm"
	"mercadolp/internal/model"
)

const qtyEpsilon = 1e-12

// Engine opens, bids on and clears auctions held in a state aggregate.
type Engine struct {
	logger *zap.Logger
}

// NewEngine builds an Engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Open schedules an auction of supply units of tokenID, paid in payTokenID,
// clearing when the simulated clock reaches blockID.
func (e *Engine) Open(state *model.State, blockID uint64, tokenID, payTokenID string, supply float64) (model.Auction, error) {
	if !amm.Valid(supply) {
		return model.Auction{}, fmt.Errorf("%w: supply %v", model.ErrInvalidAmount, supply)
	}
	if blockID <= state.Block {
		return model.Auction{}, fmt.Errorf("%w: block %d is not in the future", model.ErrAuctionClosed, blockID)
	}
	if state.Auction(blockID) != nil {
		return model.Auction{}, fmt.Errorf("auction for block %d already exists", blockID)
	}
	for _, id := range []string{tokenID, payTokenID} {
		if state.Token(id) == nil {
			return model.Auction{}, fmt.Errorf("%w: %s", model.ErrTokenNotFound, id)
		}
	}

	a := model.Auction{
		BlockID:    blockID,
		TokenID:    tokenID,
		PayTokenID: payTokenID,
		Supply:     supply,
	}
	state.Auctions = append(state.Auctions, a)
	return a, nil
}

// PlaceBid records a bid. Nothing is escrowed: the spend is settled at clearing.
func (e *Engine) PlaceBid(state *model.State, bidderID string, blockID uint64, priceCap, maxSpend float64, now int64) (model.Bid, error) {
	if !amm.Valid(priceCap) || !amm.Valid(maxSpend) {
		return model.Bid{}, fmt.Errorf("%w: cap %v spend %v", model.ErrInvalidAmount, priceCap, maxSpend)
	}
	a := state.Auction(blockID)
	if a == nil {
		return model.Bid{}, fmt.Errorf("%w: block %d", model.ErrAuctionNotFound, blockID)
	}
	if a.Cleared || blockID <= state.Block {
		return model.Bid{}, fmt.Errorf("%w: block %d", model.ErrAuctionClosed, blockID)
	}

	bid := model.Bid{BidderID: bidderID, PriceCap: priceCap, MaxSpend: maxSpend, Timestamp: now}
	a.Bids = append(a.Bids, bid)
	if bidderID == state.Player.ID {
		state.Player.Stats.AuctionBidsPlaced++
	}
	return bid, nil
}

// Due returns the block ids of open auctions whose block has arrived.
func Due(state *model.State) []uint64 {
	var out []uint64
	for _, a := range state.Auctions {
		if !a.Cleared && a.BlockID <= state.Block {
			out = append(out, a.BlockID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clear resolves the auction for blockID at a single clearing price and settles
// the player's allocation. Auctions without bids clear empty.
func (e *Engine) Clear(state *model.State, blockID uint64) (model.Auction, error) {
	a := state.Auction(blockID)
	if a == nil {
		return model.Auction{}, fmt.Errorf("%w: block %d", model.ErrAuctionNotFound, blockID)
	}
	if a.Cleared {
		return model.Auction{}, fmt.Errorf("%w: block %d already cleared", model.ErrAuctionClosed, blockID)
	}

	bids := make([]model.Bid, len(a.Bids))
	copy(bids, a.Bids)
	// The player can only spend what they hold when the block closes, summed
	// over all of their bids on this block.
	have := state.Player.Balance(a.PayTokenID)
	if total := Committed(*a, state.Player.ID); total > have {
		scale := 0.0
		if total > 0 {
			scale = have / total
		}
		for i := range bids {
			if bids[i].BidderID == state.Player.ID {
				bids[i].MaxSpend *= scale
			}
		}
	}

	price, allocs := Resolve(bids, a.Supply)
	a.Cleared = true
	if price > 0 {
		a.ClearingPrice = &price
	}

	for i := range allocs {
		alloc := &allocs[i]
		if alloc.BidderID != state.Player.ID || alloc.Quantity <= qtyEpsilon {
			continue
		}
		if have := state.Player.Balance(a.PayTokenID); alloc.Cost > have {
			// Rounding only: quantity follows cost at the clearing price.
			alloc.Cost = have
			alloc.Quantity = have / price
		}
		_ = state.Player.Debit(a.PayTokenID, alloc.Cost)
		state.Player.Credit(a.TokenID, alloc.Quantity)
		state.Player.Stats.AuctionTokensWon += alloc.Quantity
	}
	a.Allocations = allocs

	e.logger.Debug("auction cleared",
		zap.Uint64("block", blockID),
		zap.Float64("clearing_price", price),
		zap.Int("bids", len(bids)),
		zap.Int("winners", len(allocs)),
	)
	return *a, nil
}

// Committed sums the spend bidderID has offered on a.
func Committed(a model.Auction, bidderID string) float64 {
	var total float64
	for _, b := range a.Bids {
		if b.BidderID == bidderID {
			total += b.MaxSpend
		}
	}
	return total
}

// Resolve computes the uniform clearing price and allocations for bids against
// supply. Each bid demands maxSpend/price units. The clearing price is the lowest
// cap at which cumulative demand exhausts supply, or the lowest cap when demand
// never does. Caps above the clearing price fill first; ties at the clearing
// price share what remains pro-rata to bid size.
func Resolve(bids []model.Bid, supply float64) (float64, []model.Allocation) {
	live := make([]model.Bid, 0, len(bids))
	for _, b := range bids {
		if b.PriceCap > 0 && b.MaxSpend > 0 {
			live = append(live, b)
		}
	}
	if len(live) == 0 || supply <= 0 {
		return 0, nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].PriceCap != live[j].PriceCap {
			return live[i].PriceCap > live[j].PriceCap
		}
		return live[i].Timestamp < live[j].Timestamp
	})

	price := live[len(live)-1].PriceCap
	var spend float64
	for i, b := range live {
		spend += b.MaxSpend
		// All bids sharing this cap are admitted together.
		if i+1 < len(live) && live[i+1].PriceCap == b.PriceCap {
			continue
		}
		if spend/b.PriceCap >= supply {
			price = b.PriceCap
			break
		}
	}

	remaining := supply
	var allocs []model.Allocation
	var ties []model.Bid
	for _, b := range live {
		switch {
		case b.PriceCap > price:
			qty := b.MaxSpend / price
			if qty > remaining {
				qty = remaining
			}
			remaining -= qty
			allocs = append(allocs, model.Allocation{BidderID: b.BidderID, Quantity: qty, Cost: qty * price})
		case b.PriceCap == price:
			ties = append(ties, b)
		}
	}

	var tieDemand float64
	for _, b := range ties {
		tieDemand += b.MaxSpend / price
	}
	scale := 1.0
	if tieDemand > remaining && tieDemand > 0 {
		scale = remaining / tieDemand
	}
	for _, b := range ties {
		qty := b.MaxSpend / price * scale
		allocs = append(allocs, model.Allocation{BidderID: b.BidderID, Quantity: qty, Cost: qty * price})
	}

	return price, mergeAllocations(allocs)
}

// mergeAllocations folds multiple winning bids of the same bidder together,
// keeping first-seen order.
func mergeAllocations(allocs []model.Allocation) []model.Allocation {
	index := make(map[string]int, len(allocs))
	out := make([]model.Allocation, 0, len(allocs))
	for _, a := range allocs {
		if a.Quantity <= qtyEpsilon {
			continue
		}
		if i, ok := index[a.BidderID]; ok {
			out[i].Quantity += a.Quantity
			out[i].Cost += a.Cost
			continue
		}
		index[a.BidderID] = len(out)
		out = append(out, a)
	}
	return out
}
