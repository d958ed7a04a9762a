// Package npc drives autonomous traders against the pool engine.
package npc

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mercadolp/internal/model"
	"mercadolp/internal/pool"
)

// Swapper executes a swap against the state. pool.Engine satisfies it.
type Swapper interface {
	Swap(state *model.State, poolID, tokenIn string, amountIn float64, synthetic bool) (pool.SwapResult, error)
}

// Config holds scheduler tunables.
type Config struct {
	Cooldowns        map[model.Personality]time.Duration
	MaxTradeFraction float64
	Seed             uint64
}

// DefaultCooldowns returns the per-personality waits between trades.
func DefaultCooldowns() map[model.Personality]time.Duration {
	return map[model.Personality]time.Duration{
		model.PersonalityComprador:   20 * time.Second,
		model.PersonalityEspeculador: 8 * time.Second,
		model.PersonalityCasual:      45 * time.Second,
	}
}

// Trade pairs an activity line with the swap that produced it.
type Trade struct {
	Activity model.NPCActivity
	Result   pool.SwapResult
}

// Scheduler decides which NPCs trade on each tick.
type Scheduler struct {
	cfg      Config
	roster   []model.NPCTrader
	rng      *rand.Rand
	lastSide map[string]bool
	logger   *zap.Logger
}

// NewScheduler builds a Scheduler over roster.
func NewScheduler(cfg Config, roster []model.NPCTrader, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cooldowns == nil {
		cfg.Cooldowns = DefaultCooldowns()
	}
	if cfg.MaxTradeFraction <= 0 || cfg.MaxTradeFraction > 0.5 {
		cfg.MaxTradeFraction = 0.02
	}
	traders := make([]model.NPCTrader, len(roster))
	copy(traders, roster)
	return &Scheduler{
		cfg:      cfg,
		roster:   traders,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		lastSide: make(map[string]bool),
		logger:   logger,
	}
}

// Roster returns a copy of the traders and their last trade times.
func (s *Scheduler) Roster() []model.NPCTrader {
	out := make([]model.NPCTrader, len(s.roster))
	copy(out, s.roster)
	return out
}

// Tick lets every NPC past its cooldown trade once. NPCs with no eligible pool
// are skipped; a failed swap is logged and skipped.
func (s *Scheduler) Tick(state *model.State, now time.Time, swapper Swapper) []Trade {
	nowMs := now.UnixMilli()
	var trades []Trade
	for i := range s.roster {
		npc := &s.roster[i]
		cooldown := s.cfg.Cooldowns[npc.Personality]
		if npc.LastTradeTime != 0 && nowMs-npc.LastTradeTime < cooldown.Milliseconds() {
			continue
		}

		p, ok := s.pickPool(state, *npc)
		if !ok {
			continue
		}
		tokenIn := s.pickSide(*npc, p)
		amount := s.tradeSize(p)
		if amount <= 0 {
			continue
		}

		res, err := swapper.Swap(state, p.ID, tokenIn, amount, true)
		if err != nil {
			s.logger.Warn("npc swap failed", zap.String("npc", npc.ID), zap.String("pool", p.ID), zap.Error(err))
			continue
		}
		npc.LastTradeTime = nowMs

		trades = append(trades, Trade{
			Activity: model.NPCActivity{
				ID:        uuid.NewString(),
				NPCID:     npc.ID,
				Action:    describe(state, *npc, res),
				Timestamp: nowMs,
			},
			Result: res,
		})
	}
	return trades
}

func (s *Scheduler) pickPool(state *model.State, npc model.NPCTrader) (model.Pool, bool) {
	var candidates []model.Pool
	for _, p := range state.Pools {
		if p.Closed() {
			continue
		}
		if npc.Prefers(p.TokenA) || npc.Prefers(p.TokenB) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return model.Pool{}, false
	}
	return candidates[s.rng.IntN(len(candidates))], true
}

// pickSide returns the token the NPC pays with.
func (s *Scheduler) pickSide(npc model.NPCTrader, p model.Pool) string {
	switch npc.Personality {
	case model.PersonalityComprador:
		preferA := npc.Prefers(p.TokenA)
		preferB := npc.Prefers(p.TokenB)
		if preferA && !preferB {
			return p.TokenB
		}
		if preferB && !preferA {
			return p.TokenA
		}
	case model.PersonalityEspeculador:
		side := !s.lastSide[npc.ID]
		s.lastSide[npc.ID] = side
		if side {
			return p.TokenA
		}
		return p.TokenB
	}
	if s.rng.IntN(2) == 0 {
		return p.TokenA
	}
	return p.TokenB
}

// tradeSize is a random slice of the shallower reserve, bounding the impact
// the NPC itself causes.
func (s *Scheduler) tradeSize(p model.Pool) float64 {
	shallow := p.ReserveA
	if p.ReserveB < shallow {
		shallow = p.ReserveB
	}
	return shallow * s.cfg.MaxTradeFraction * (0.2 + 0.8*s.rng.Float64())
}

func describe(state *model.State, npc model.NPCTrader, res pool.SwapResult) string {
	in := label(state, res.TokenIn)
	out := label(state, res.TokenOut)
	amountOut := decimal.NewFromFloat(res.Quote.AmountOut).StringFixed(2)
	amountIn := decimal.NewFromFloat(res.Quote.AmountIn).StringFixed(2)

	var verb string
	switch npc.Personality {
	case model.PersonalityComprador:
		verb = "compró"
	case model.PersonalityEspeculador:
		verb = "especuló con"
	default:
		verb = "cambió por"
	}
	return fmt.Sprintf("%s %s %s %s %s pagando %s %s. %q", npc.Avatar, npc.Name, verb, amountOut, out, amountIn, in, npc.Catchphrase)
}

func label(state *model.State, tokenID string) string {
	if t := state.Token(tokenID); t != nil {
		return t.Emoji + " " + t.Symbol
	}
	return tokenID
}
