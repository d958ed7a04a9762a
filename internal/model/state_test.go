package model

import (
	"testing"
)

func TestStateCloneIsDeep(t *testing.T) {
	price := 4.0
	original := &State{
		Player: Player{
			ID:          "p1",
			Inventory:   map[string]float64{"manzana": 10},
			LPPositions: []LiquidityPosition{{PoolID: "manzana-uva", ShareOfPool: 0.5}},
			Badges:      []string{"first-swap"},
		},
		Pools:    []Pool{{ID: "manzana-uva", TokenA: "manzana", TokenB: "uva", ReserveA: 100, ReserveB: 50}},
		Auctions: []Auction{{BlockID: 3, Bids: []Bid{{BidderID: "p1"}}, ClearingPrice: &price}},
	}

	clone := original.Clone()
	clone.Player.Inventory["manzana"] = 0
	clone.Player.LPPositions[0].ShareOfPool = 1
	clone.Player.Badges[0] = "other"
	clone.Pools[0].ReserveA = 1
	*clone.Auctions[0].ClearingPrice = 9
	clone.Auctions[0].Bids[0].BidderID = "x"

	if original.Player.Inventory["manzana"] != 10 {
		t.Fatalf("inventory shared with clone")
	}
	if original.Player.LPPositions[0].ShareOfPool != 0.5 {
		t.Fatalf("positions shared with clone")
	}
	if original.Player.Badges[0] != "first-swap" {
		t.Fatalf("badges shared with clone")
	}
	if original.Pools[0].ReserveA != 100 {
		t.Fatalf("pools shared with clone")
	}
	if *original.Auctions[0].ClearingPrice != 4 || original.Auctions[0].Bids[0].BidderID != "p1" {
		t.Fatalf("auctions shared with clone")
	}
}

func TestPairKeyIsUnordered(t *testing.T) {
	if PairKey("uva", "manzana") != PairKey("manzana", "uva") {
		t.Fatalf("pair key depends on order")
	}
	s := &State{Pools: []Pool{{ID: "manzana-uva", TokenA: "manzana", TokenB: "uva"}}}
	if s.PoolForPair("uva", "manzana") == nil {
		t.Fatalf("expected pool lookup by reversed pair")
	}
}

func TestPlayerDebitRejectsOverdraw(t *testing.T) {
	p := Player{Inventory: map[string]float64{"uva": 5}}
	if err := p.Debit("uva", 6); err == nil {
		t.Fatalf("expected insufficient balance")
	}
	if p.Balance("uva") != 5 {
		t.Fatalf("balance changed on rejected debit")
	}
	if err := p.Debit("uva", 5); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if p.Balance("uva") != 0 {
		t.Fatalf("balance mismatch: %v", p.Balance("uva"))
	}
}
