package model

// Bid is a sealed bid against a future block of supply.
type Bid struct {
	BidderID  string  `json:"bidderId"`
	PriceCap  float64 `json:"priceCap"`
	MaxSpend  float64 `json:"maxSpend"`
	Timestamp int64   `json:"timestamp"`
}

// Allocation is the quantity a bidder won at the clearing price.
type Allocation struct {
	BidderID string  `json:"bidderId"`
	Quantity float64 `json:"quantity"`
	Cost     float64 `json:"cost"`
}

// Auction is a uniform-price clearing auction for one block.
type Auction struct {
	BlockID       uint64       `json:"blockId"`
	TokenID       string       `json:"tokenId"`
	PayTokenID    string       `json:"payTokenId"`
	Supply        float64      `json:"supply"`
	Bids          []Bid        `json:"bids"`
	ClearingPrice *float64     `json:"clearingPrice,omitempty"`
	Allocations   []Allocation `json:"allocations,omitempty"`
	Cleared       bool         `json:"cleared"`
}
