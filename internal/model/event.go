package model

// EventType names a discrete engine event.
type EventType string

const (
	EventSwapCompleted    EventType = "swap_completed"
	EventLiquidityChanged EventType = "liquidity_changed"
	EventTokenCreated     EventType = "token_created"
	EventPoolCreated      EventType = "pool_created"
	EventBidPlaced        EventType = "bid_placed"
	EventAuctionCleared   EventType = "auction_cleared"
	EventLevelUp          EventType = "level_up"
	EventBadgeEarned      EventType = "badge_earned"
	EventPrompt           EventType = "prompt"
	EventNPCTrade         EventType = "npc_trade"
	EventError            EventType = "error"
)

// Event is published to listeners after an action is applied.
type Event struct {
	Seq       uint64            `json:"seq"`
	Type      EventType         `json:"type"`
	Timestamp int64             `json:"timestamp"`
	PlayerID  string            `json:"playerId,omitempty"`
	PoolID    string            `json:"poolId,omitempty"`
	TokenID   string            `json:"tokenId,omitempty"`
	Amount    float64           `json:"amount,omitempty"`
	Level     int               `json:"level,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}
