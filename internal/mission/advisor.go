// Package mission derives the player's current objective and contextual
// hints from a read-only view of the game state.
package mission

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"mercadolp/internal/aggregate"
	"mercadolp/internal/amm"
	"mercadolp/internal/model"
	"mercadolp/internal/token"
)

// Stats supplies pool statistics. *aggregate.Aggregator satisfies it.
type Stats interface {
	BestAPR() (aggregate.WindowMetrics, bool)
}

// Objective is one rung of the tutorial ladder.
type Objective struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Step        int    `json:"step"`
	Total       int    `json:"total"`
}

// HintKind identifies what triggered a hint.
type HintKind string

const (
	HintMissingToken HintKind = "missing_token"
	HintSevereImpact HintKind = "severe_impact"
	HintOpenAuction  HintKind = "open_auction"
	HintImpermanent  HintKind = "impermanent_loss"
	HintBestAPR      HintKind = "best_apr"
)

// Hint is a contextual tip.
type Hint struct {
	Kind    HintKind `json:"kind"`
	PoolID  string   `json:"poolId,omitempty"`
	Message string   `json:"message"`
}

// Advice is the advisor's output.
type Advice struct {
	Objective Objective `json:"objective"`
	Progress  float64   `json:"progress"`
	Hints     []Hint    `json:"hints"`
}

type rung struct {
	id, title, description string
	done                   func(s *model.State) bool
}

var ladder = []rung{
	{"first_swap", "Haz tu primer swap", "Cambia una fruta por otra en cualquier pool.",
		func(s *model.State) bool { return s.Player.SwapCount >= 1 }},
	{"first_liquidity", "Aporta liquidez", "Deposita dos tokens en un pool y empieza a ganar comisiones.",
		func(s *model.State) bool { return s.Player.Stats.LiquidityAdds >= 1 || len(s.Player.LPPositions) > 0 }},
	{"create_token", "Crea tu token", "Lanza un token propio y ábrele un pool.",
		func(s *model.State) bool {
			return s.Player.Stats.TokensCreated >= 1 || token.CountPlayerCreated(s.Tokens) >= 1
		}},
	{"first_bid", "Puja en una subasta", "Ofrece un precio máximo por el próximo bloque de tokens.",
		func(s *model.State) bool { return s.Player.Stats.AuctionBidsPlaced >= 1 }},
	{"reach_level_5", "Llega al nivel 5", "Sigue operando para ganar experiencia.",
		func(s *model.State) bool { return s.Player.Level >= 5 }},
}

var freePlay = rung{id: "free_play", title: "Juego libre", description: "Ya dominas el mercado. Explora a tu ritmo."}

// Advisor computes Advice. It never mutates the state it reads.
type Advisor struct {
	FeeBps uint32

	// ImpactProbe is the fraction of a holding used as a typical trade.
	ImpactProbe float64

	// LossThreshold is the IL fraction above which a position is flagged.
	LossThreshold float64
}

// NewAdvisor builds an Advisor with the pool fee.
func NewAdvisor(feeBps uint32) *Advisor {
	return &Advisor{FeeBps: feeBps, ImpactProbe: 0.5, LossThreshold: 0.01}
}

// Advise returns the current objective and hints. stats may be nil.
func (a *Advisor) Advise(state *model.State, stats Stats) Advice {
	adv := Advice{
		Objective: objective(state),
		Progress:  float64(countDone(state)) / float64(len(ladder)),
	}

	adv.Hints = append(adv.Hints, a.missingTokenHints(state)...)
	adv.Hints = append(adv.Hints, a.impactHints(state)...)
	adv.Hints = append(adv.Hints, openAuctionHints(state)...)
	adv.Hints = append(adv.Hints, a.lossHints(state)...)
	if stats != nil {
		if best, ok := stats.BestAPR(); ok && best.APR != nil {
			adv.Hints = append(adv.Hints, Hint{
				Kind:    HintBestAPR,
				PoolID:  best.PoolID,
				Message: fmt.Sprintf("El pool %s paga el mejor APR estimado: %s%%.", best.PoolID, percent(*best.APRValue)),
			})
		}
	}
	return adv
}

// objective returns the first rung not yet completed.
func objective(state *model.State) Objective {
	for i, r := range ladder {
		if !r.done(state) {
			return Objective{ID: r.id, Title: r.title, Description: r.description, Step: i + 1, Total: len(ladder)}
		}
	}
	return Objective{ID: freePlay.id, Title: freePlay.title, Description: freePlay.description, Step: len(ladder) + 1, Total: len(ladder)}
}

func countDone(state *model.State) int {
	n := 0
	for _, r := range ladder {
		if r.done(state) {
			n++
		}
	}
	return n
}

func (a *Advisor) missingTokenHints(state *model.State) []Hint {
	var out []Hint
	for _, p := range state.Pools {
		if p.Closed() {
			continue
		}
		hasA := state.Player.Balance(p.TokenA) > 0
		hasB := state.Player.Balance(p.TokenB) > 0
		if hasA == hasB {
			continue
		}
		have, need := p.TokenA, p.TokenB
		if hasB {
			have, need = p.TokenB, p.TokenA
		}
		out = append(out, Hint{
			Kind:    HintMissingToken,
			PoolID:  p.ID,
			Message: fmt.Sprintf("No tienes %s. Cambia algo de %s en el pool %s para conseguirlo.", symbol(state, need), symbol(state, have), p.ID),
		})
	}
	return out
}

func (a *Advisor) impactHints(state *model.State) []Hint {
	var out []Hint
	for _, p := range state.Pools {
		if p.Closed() {
			continue
		}
		for _, in := range []string{p.TokenA, p.TokenB} {
			bal := state.Player.Balance(in)
			if bal <= 0 {
				continue
			}
			rin, rout := p.Reserves(in)
			q, err := amm.QuoteExactIn(rin, rout, bal*a.ImpactProbe, a.FeeBps)
			if err != nil || q.Impact() != amm.ImpactSevere {
				continue
			}
			out = append(out, Hint{
				Kind:   HintSevereImpact,
				PoolID: p.ID,
				Message: fmt.Sprintf("Cambiar %s %s en %s movería el precio un %s%%. Prueba con cantidades más pequeñas.",
					decimal.NewFromFloat(bal*a.ImpactProbe).StringFixed(2), symbol(state, in), p.ID, percent(q.PriceImpact)),
			})
		}
	}
	return out
}

func openAuctionHints(state *model.State) []Hint {
	var out []Hint
	for _, au := range state.Auctions {
		if au.Cleared || au.BlockID <= state.Block {
			continue
		}
		out = append(out, Hint{
			Kind: HintOpenAuction,
			Message: fmt.Sprintf("La subasta del bloque %d reparte %s %s. Puja antes de que cierre.",
				au.BlockID, decimal.NewFromFloat(au.Supply).StringFixed(0), symbol(state, au.TokenID)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Message < out[j].Message })
	return out
}

func (a *Advisor) lossHints(state *model.State) []Hint {
	var out []Hint
	for _, pos := range state.Player.LPPositions {
		p := state.Pool(pos.PoolID)
		if p == nil || p.Closed() {
			continue
		}
		loss := amm.ImpermanentLoss(pos.DepositedA, pos.DepositedB,
			pos.ShareOfPool*p.ReserveA, pos.ShareOfPool*p.ReserveB, p.SpotPrice())
		if loss.Fraction <= a.LossThreshold {
			continue
		}
		out = append(out, Hint{
			Kind:   HintImpermanent,
			PoolID: p.ID,
			Message: fmt.Sprintf("Tu posición en %s vale un %s%% menos que haber guardado los tokens. Las comisiones ganadas pueden compensarlo.",
				p.ID, percent(loss.Fraction)),
		})
	}
	return out
}

func symbol(state *model.State, id string) string {
	if t := state.Token(id); t != nil {
		return t.Emoji + " " + t.Symbol
	}
	return id
}

func percent(fraction float64) string {
	return decimal.NewFromFloat(fraction * 100).StringFixed(1)
}
