package model

import "fmt"

// PlayerStats holds counters that are not part of the headline progression.
type PlayerStats struct {
	AuctionBidsPlaced int      `json:"auctionBidsPlaced"`
	AuctionTokensWon  float64  `json:"auctionTokensWon"`
	LiquidityAdds     int      `json:"liquidityAdds"`
	TokensCreated     int      `json:"tokensCreated"`
	LastActiveDay     string   `json:"lastActiveDay,omitempty"`
	Milestones        []string `json:"milestones,omitempty"`
}

// Player is the single human participant of the simulation.
type Player struct {
	ID              string              `json:"id"`
	Inventory       map[string]float64  `json:"inventory"`
	SwapCount       int                 `json:"swapCount"`
	LPPositions     []LiquidityPosition `json:"lpPositions"`
	TotalFeesEarned float64             `json:"totalFeesEarned"`
	Reputation      int                 `json:"reputation"`
	Level           int                 `json:"level"`
	XP              int                 `json:"xp"`
	CurrentStreak   int                 `json:"currentStreak"`
	Badges          []string            `json:"badges"`
	Stats           PlayerStats         `json:"stats"`
}

// Balance returns the player's holding of token.
func (p *Player) Balance(token string) float64 {
	if p.Inventory == nil {
		return 0
	}
	return p.Inventory[token]
}

// Credit adds amount of token to the inventory.
func (p *Player) Credit(token string, amount float64) {
	if p.Inventory == nil {
		p.Inventory = make(map[string]float64)
	}
	p.Inventory[token] += amount
}

// Debit removes amount of token, refusing to go negative.
func (p *Player) Debit(token string, amount float64) error {
	have := p.Balance(token)
	if have < amount {
		return fmt.Errorf("%w: %s has %.6f, needs %.6f", ErrInsufficientBalance, token, have, amount)
	}
	p.Inventory[token] = have - amount
	return nil
}

// Position returns the player's position in poolID, or nil.
func (p *Player) Position(poolID string) *LiquidityPosition {
	for i := range p.LPPositions {
		if p.LPPositions[i].PoolID == poolID {
			return &p.LPPositions[i]
		}
	}
	return nil
}

// HasBadge reports whether achievement id was already awarded.
func (p *Player) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// HasMilestone reports whether a one-shot prompt was already raised.
func (p *Player) HasMilestone(id string) bool {
	for _, m := range p.Stats.Milestones {
		if m == id {
			return true
		}
	}
	return false
}
