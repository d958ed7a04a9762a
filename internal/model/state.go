package model

// State is the single game-state aggregate owned by the engine.
type State struct {
	Player       Player    `json:"player"`
	Pools        []Pool    `json:"pools"`
	Tokens       []Token   `json:"tokens"`
	Auctions     []Auction `json:"auctions"`
	CurrentLevel int       `json:"currentLevel"`
	ShowMap      bool      `json:"showMap"`
	Block        uint64    `json:"block"`
}

// Pool returns a pointer to the pool with id, or nil.
func (s *State) Pool(id string) *Pool {
	for i := range s.Pools {
		if s.Pools[i].ID == id {
			return &s.Pools[i]
		}
	}
	return nil
}

// PoolForPair returns the pool of an unordered token pair, or nil.
func (s *State) PoolForPair(tokenA, tokenB string) *Pool {
	key := PairKey(tokenA, tokenB)
	for i := range s.Pools {
		if s.Pools[i].PairKey() == key {
			return &s.Pools[i]
		}
	}
	return nil
}

// Token returns the token with id, or nil.
func (s *State) Token(id string) *Token {
	for i := range s.Tokens {
		if s.Tokens[i].ID == id {
			return &s.Tokens[i]
		}
	}
	return nil
}

// Auction returns the auction for blockID, or nil.
func (s *State) Auction(blockID uint64) *Auction {
	for i := range s.Auctions {
		if s.Auctions[i].BlockID == blockID {
			return &s.Auctions[i]
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand to readers.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Player = s.Player.clone()
	out.Pools = append([]Pool(nil), s.Pools...)
	out.Tokens = append([]Token(nil), s.Tokens...)
	if s.Auctions != nil {
		out.Auctions = make([]Auction, len(s.Auctions))
		for i, a := range s.Auctions {
			out.Auctions[i] = a.clone()
		}
	}
	return &out
}

func (p Player) clone() Player {
	out := p
	if p.Inventory != nil {
		out.Inventory = make(map[string]float64, len(p.Inventory))
		for k, v := range p.Inventory {
			out.Inventory[k] = v
		}
	}
	out.LPPositions = append([]LiquidityPosition(nil), p.LPPositions...)
	out.Badges = append([]string(nil), p.Badges...)
	out.Stats.Milestones = append([]string(nil), p.Stats.Milestones...)
	return out
}

func (a Auction) clone() Auction {
	out := a
	out.Bids = append([]Bid(nil), a.Bids...)
	out.Allocations = append([]Allocation(nil), a.Allocations...)
	if a.ClearingPrice != nil {
		price := *a.ClearingPrice
		out.ClearingPrice = &price
	}
	return out
}
