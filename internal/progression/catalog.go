// Package progression awards XP, levels and achievements after player actions.
package progression

import (
	"mercadolp/internal/model"
	"mercadolp/internal/token"
)

// Category groups achievements in the UI.
type Category string

const (
	CategoryTrading   Category = "trading"
	CategoryLiquidity Category = "liquidity"
	CategoryCreation  Category = "creation"
	CategoryMastery   Category = "mastery"
)

// View is the read-only projection achievement conditions are evaluated over.
type View struct {
	SwapCount     int
	LiquidityAdds int
	Positions     int
	FeesEarned    float64
	TokensCreated int
	BidsPlaced    int
	TokensWon     float64
	Streak        int
	Reputation    int
	Level         int
}

// Project builds the View for state.
func Project(state *model.State) View {
	p := state.Player
	created := p.Stats.TokensCreated
	if n := token.CountPlayerCreated(state.Tokens); n > created {
		created = n
	}
	return View{
		SwapCount:     p.SwapCount,
		LiquidityAdds: p.Stats.LiquidityAdds,
		Positions:     len(p.LPPositions),
		FeesEarned:    p.TotalFeesEarned,
		TokensCreated: created,
		BidsPlaced:    p.Stats.AuctionBidsPlaced,
		TokensWon:     p.Stats.AuctionTokensWon,
		Streak:        p.CurrentStreak,
		Reputation:    p.Reputation,
		Level:         p.Level,
	}
}

// Achievement is a catalog entry. Condition must be pure.
type Achievement struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Category    Category        `json:"category"`
	XPReward    int             `json:"xpReward"`
	Condition   func(View) bool `json:"-"`
}

var catalog = []Achievement{
	{
		ID: "first-swap", Name: "Primer intercambio", Icon: "🔄", Category: CategoryTrading, XPReward: 50,
		Description: "Completa tu primer swap.",
		Condition:   func(v View) bool { return v.SwapCount >= 1 },
	},
	{
		ID: "swaps-10", Name: "Comerciante", Icon: "🛒", Category: CategoryTrading, XPReward: 100,
		Description: "Completa 10 swaps.",
		Condition:   func(v View) bool { return v.SwapCount >= 10 },
	},
	{
		ID: "swaps-50", Name: "Mayorista", Icon: "🏪", Category: CategoryTrading, XPReward: 250,
		Description: "Completa 50 swaps.",
		Condition:   func(v View) bool { return v.SwapCount >= 50 },
	},
	{
		ID: "first-lp", Name: "Proveedor de liquidez", Icon: "💧", Category: CategoryLiquidity, XPReward: 75,
		Description: "Aporta liquidez a un pool.",
		Condition:   func(v View) bool { return v.LiquidityAdds >= 1 || v.Positions >= 1 },
	},
	{
		ID: "lp-3-pools", Name: "Diversificado", Icon: "🌊", Category: CategoryLiquidity, XPReward: 200,
		Description: "Mantén posiciones en 3 pools a la vez.",
		Condition:   func(v View) bool { return v.Positions >= 3 },
	},
	{
		ID: "fee-collector", Name: "Recolector de comisiones", Icon: "💰", Category: CategoryLiquidity, XPReward: 150,
		Description: "Acumula 10 en comisiones como proveedor.",
		Condition:   func(v View) bool { return v.FeesEarned >= 10 },
	},
	{
		ID: "token-creator", Name: "Creador", Icon: "🪙", Category: CategoryCreation, XPReward: 100,
		Description: "Crea tu primer token.",
		Condition:   func(v View) bool { return v.TokensCreated >= 1 },
	},
	{
		ID: "token-mogul", Name: "Magnate", Icon: "🏭", Category: CategoryCreation, XPReward: 300,
		Description: "Crea 5 tokens.",
		Condition:   func(v View) bool { return v.TokensCreated >= 5 },
	},
	{
		ID: "first-bid", Name: "Primera puja", Icon: "🔨", Category: CategoryTrading, XPReward: 50,
		Description: "Puja en una subasta.",
		Condition:   func(v View) bool { return v.BidsPlaced >= 1 },
	},
	{
		ID: "auction-winner", Name: "Ganador de subasta", Icon: "🏆", Category: CategoryTrading, XPReward: 150,
		Description: "Gana tokens en una subasta.",
		Condition:   func(v View) bool { return v.TokensWon > 0 },
	},
	{
		ID: "streak-3", Name: "Constante", Icon: "🔥", Category: CategoryMastery, XPReward: 100,
		Description: "Juega 3 días seguidos.",
		Condition:   func(v View) bool { return v.Streak >= 3 },
	},
	{
		ID: "reputation-25", Name: "Reconocido", Icon: "⭐", Category: CategoryMastery, XPReward: 150,
		Description: "Alcanza 25 de reputación.",
		Condition:   func(v View) bool { return v.Reputation >= 25 },
	},
	{
		ID: "level-5", Name: "Veterano del mercado", Icon: "🎖️", Category: CategoryMastery, XPReward: 250,
		Description: "Llega al nivel 5.",
		Condition:   func(v View) bool { return v.Level >= 5 },
	},
}

// Catalog returns the achievement list in evaluation order.
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (Achievement, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}
