package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercadolp/internal/model"
)

func newState() *model.State {
	return &model.State{
		Player: model.Player{ID: "player", Inventory: map[string]float64{"uva": 100}},
		Tokens: []model.Token{{ID: "uva"}, {ID: "kiwi"}},
		Block:  10,
	}
}

func allocFor(allocs []model.Allocation, bidder string) float64 {
	for _, a := range allocs {
		if a.BidderID == bidder {
			return a.Quantity
		}
	}
	return 0
}

func TestResolveScenarioC(t *testing.T) {
	bids := []model.Bid{
		{BidderID: "a", PriceCap: 5, MaxSpend: 50},
		{BidderID: "b", PriceCap: 4, MaxSpend: 40},
		{BidderID: "c", PriceCap: 3, MaxSpend: 30},
	}

	price, allocs := Resolve(bids, 22.5)
	assert.Equal(t, 4.0, price)
	assert.InDelta(t, 12.5, allocFor(allocs, "a"), 1e-12)
	assert.InDelta(t, 10, allocFor(allocs, "b"), 1e-12)
	assert.Equal(t, 0.0, allocFor(allocs, "c"))
}

func TestResolveCapsMarginalBidBySupply(t *testing.T) {
	bids := []model.Bid{
		{BidderID: "a", PriceCap: 5, MaxSpend: 50},
		{BidderID: "b", PriceCap: 4, MaxSpend: 40},
		{BidderID: "c", PriceCap: 3, MaxSpend: 30},
	}

	price, allocs := Resolve(bids, 20)
	assert.Equal(t, 4.0, price)
	assert.InDelta(t, 12.5, allocFor(allocs, "a"), 1e-12)
	assert.InDelta(t, 7.5, allocFor(allocs, "b"), 1e-12)
	assert.Equal(t, 0.0, allocFor(allocs, "c"))
}

func TestResolveProRatesTiesBySize(t *testing.T) {
	bids := []model.Bid{
		{BidderID: "a", PriceCap: 2, MaxSpend: 30},
		{BidderID: "b", PriceCap: 2, MaxSpend: 10},
	}

	price, allocs := Resolve(bids, 10)
	assert.Equal(t, 2.0, price)
	assert.InDelta(t, 7.5, allocFor(allocs, "a"), 1e-12)
	assert.InDelta(t, 2.5, allocFor(allocs, "b"), 1e-12)
}

func TestResolveUndersubscribedFillsEveryone(t *testing.T) {
	bids := []model.Bid{
		{BidderID: "a", PriceCap: 5, MaxSpend: 10},
		{BidderID: "b", PriceCap: 2, MaxSpend: 10},
	}

	price, allocs := Resolve(bids, 1000)
	assert.Equal(t, 2.0, price)
	assert.InDelta(t, 5, allocFor(allocs, "a"), 1e-12)
	assert.InDelta(t, 5, allocFor(allocs, "b"), 1e-12)
}

func TestClearWithoutBids(t *testing.T) {
	e := NewEngine(nil)
	s := newState()
	_, err := e.Open(s, 12, "kiwi", "uva", 100)
	require.NoError(t, err)

	a, err := e.Clear(s, 12)
	require.NoError(t, err)
	assert.True(t, a.Cleared)
	assert.Nil(t, a.ClearingPrice)
	assert.Empty(t, a.Allocations)
}

func TestPlaceBidAndClearSettlesPlayer(t *testing.T) {
	e := NewEngine(nil)
	s := newState()
	_, err := e.Open(s, 12, "kiwi", "uva", 20)
	require.NoError(t, err)

	_, err = e.PlaceBid(s, "player", 12, 5, 50, 1)
	require.NoError(t, err)
	_, err = e.PlaceBid(s, "npc-1", 12, 4, 40, 2)
	require.NoError(t, err)
	_, err = e.PlaceBid(s, "npc-2", 12, 3, 30, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Player.Stats.AuctionBidsPlaced)
	// No escrow while the auction is open.
	assert.Equal(t, 100.0, s.Player.Balance("uva"))

	s.Block = 12
	assert.Equal(t, []uint64{12}, Due(s))

	a, err := e.Clear(s, 12)
	require.NoError(t, err)
	require.NotNil(t, a.ClearingPrice)
	assert.Equal(t, 4.0, *a.ClearingPrice)
	assert.InDelta(t, 12.5, s.Player.Balance("kiwi"), 1e-12)
	assert.InDelta(t, 50, s.Player.Balance("uva"), 1e-12)
	assert.InDelta(t, 12.5, s.Player.Stats.AuctionTokensWon, 1e-12)

	_, err = e.PlaceBid(s, "player", 12, 5, 10, 4)
	require.ErrorIs(t, err, model.ErrAuctionClosed)
	_, err = e.Clear(s, 12)
	require.ErrorIs(t, err, model.ErrAuctionClosed)
	assert.Empty(t, Due(s))
}

func TestClearCapsPlayerSpendByBalance(t *testing.T) {
	e := NewEngine(nil)
	s := newState()
	s.Player.Inventory["uva"] = 20
	_, err := e.Open(s, 11, "kiwi", "uva", 100)
	require.NoError(t, err)
	_, err = e.PlaceBid(s, "player", 11, 2, 80, 1)
	require.NoError(t, err)

	s.Block = 11
	_, err = e.Clear(s, 11)
	require.NoError(t, err)
	assert.InDelta(t, 10, s.Player.Balance("kiwi"), 1e-12)
	assert.InDelta(t, 0, s.Player.Balance("uva"), 1e-12)
}

// assertPaidAtClearingPrice checks the player paid exactly what they were
// credited at the clearing price.
func assertPaidAtClearingPrice(t *testing.T, a model.Auction, debited float64) {
	t.Helper()
	require.NotNil(t, a.ClearingPrice)
	won := allocFor(a.Allocations, "player")
	assert.InDelta(t, won*(*a.ClearingPrice), debited, 1e-9)
	for _, alloc := range a.Allocations {
		assert.InDelta(t, alloc.Quantity*(*a.ClearingPrice), alloc.Cost, 1e-9, alloc.BidderID)
	}
}

func TestClearCapsStackedPlayerBids(t *testing.T) {
	e := NewEngine(nil)
	s := newState()
	_, err := e.Open(s, 11, "kiwi", "uva", 100)
	require.NoError(t, err)
	_, err = e.PlaceBid(s, "player", 11, 3, 300, 1)
	require.NoError(t, err)
	_, err = e.PlaceBid(s, "player", 11, 3, 300, 2)
	require.NoError(t, err)
	_, err = e.PlaceBid(s, "npc-1", 11, 2, 300, 3)
	require.NoError(t, err)
	assert.Equal(t, 600.0, Committed(*s.Auction(11), "player"))

	s.Block = 11
	a, err := e.Clear(s, 11)
	require.NoError(t, err)
	require.NotNil(t, a.ClearingPrice)
	assert.Equal(t, 2.0, *a.ClearingPrice)
	assert.InDelta(t, 50, s.Player.Balance("kiwi"), 1e-9)
	assert.InDelta(t, 0, s.Player.Balance("uva"), 1e-9)
	assert.InDelta(t, 50, allocFor(a.Allocations, "npc-1"), 1e-9)
	assertPaidAtClearingPrice(t, a, 100)
}

func TestClearAfterBalanceDrop(t *testing.T) {
	e := NewEngine(nil)
	s := newState()
	_, err := e.Open(s, 11, "kiwi", "uva", 100)
	require.NoError(t, err)
	_, err = e.PlaceBid(s, "player", 11, 2, 100, 1)
	require.NoError(t, err)
	_, err = e.PlaceBid(s, "npc-1", 11, 1, 100, 2)
	require.NoError(t, err)

	require.NoError(t, s.Player.Debit("uva", 60))
	s.Block = 11
	a, err := e.Clear(s, 11)
	require.NoError(t, err)
	require.NotNil(t, a.ClearingPrice)
	assert.Equal(t, 1.0, *a.ClearingPrice)
	assert.InDelta(t, 40, s.Player.Balance("kiwi"), 1e-9)
	assert.InDelta(t, 0, s.Player.Balance("uva"), 1e-9)
	assert.InDelta(t, 60, allocFor(a.Allocations, "npc-1"), 1e-9)
	assertPaidAtClearingPrice(t, a, 40)
}

func TestBidValidation(t *testing.T) {
	e := NewEngine(nil)
	s := newState()
	_, err := e.Open(s, 12, "kiwi", "uva", 10)
	require.NoError(t, err)

	_, err = e.PlaceBid(s, "player", 12, 0, 10, 1)
	require.ErrorIs(t, err, model.ErrInvalidAmount)
	_, err = e.PlaceBid(s, "player", 99, 1, 10, 1)
	require.ErrorIs(t, err, model.ErrAuctionNotFound)

	_, err = e.Open(s, 5, "kiwi", "uva", 10)
	require.ErrorIs(t, err, model.ErrAuctionClosed)
	assert.Equal(t, 0, s.Player.Stats.AuctionBidsPlaced)
}
