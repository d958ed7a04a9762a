package progression

import (
	"time"

	"go.uber.org/zap"

	"mercadolp/internal/model"
)

// Action identifies a player mutation that earns XP.
type Action string

const (
	ActionSwap            Action = "swap"
	ActionAddLiquidity    Action = "add_liquidity"
	ActionRemoveLiquidity Action = "remove_liquidity"
	ActionCreateToken     Action = "create_token"
	ActionCreatePool      Action = "create_pool"
	ActionPlaceBid        Action = "place_bid"
	ActionAuctionWon      Action = "auction_won"
)

// Prompt kinds raised once per player.
const (
	PromptSync        = "sync_prompt"
	PromptNFTEligible = "nft_eligible"
)

// Config holds progression tunables.
type Config struct {
	Curve              Curve
	ActionXP           map[Action]int
	ReputationPerTrade int
	SyncPromptLevel    int
	NFTLevel           int
}

// DefaultActionXP is the XP granted per action kind.
func DefaultActionXP() map[Action]int {
	return map[Action]int{
		ActionSwap:            10,
		ActionAddLiquidity:    20,
		ActionRemoveLiquidity: 5,
		ActionCreateToken:     30,
		ActionCreatePool:      15,
		ActionPlaceBid:        10,
		ActionAuctionWon:      25,
	}
}

// Prompt is a one-shot UI hint for an external collaborator.
type Prompt struct {
	Kind  string `json:"kind"`
	Level int    `json:"level"`
}

// Outcome lists what an evaluation changed.
type Outcome struct {
	XPGained int           `json:"xpGained"`
	Badges   []Achievement `json:"badges,omitempty"`
	LevelUps []int         `json:"levelUps,omitempty"`
	Prompts  []Prompt      `json:"prompts,omitempty"`
}

// Empty reports whether nothing changed.
func (o Outcome) Empty() bool {
	return o.XPGained == 0 && len(o.Badges) == 0 && len(o.LevelUps) == 0 && len(o.Prompts) == 0
}

// Engine evaluates the achievement catalog against a state.
type Engine struct {
	cfg     Config
	catalog []Achievement
	logger  *zap.Logger
}

// NewEngine builds an Engine, filling zero config fields with defaults.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Curve = cfg.Curve.normalized()
	if cfg.ActionXP == nil {
		cfg.ActionXP = DefaultActionXP()
	}
	if cfg.ReputationPerTrade <= 0 {
		cfg.ReputationPerTrade = 1
	}
	if cfg.SyncPromptLevel <= 0 {
		cfg.SyncPromptLevel = 3
	}
	if cfg.NFTLevel <= 0 {
		cfg.NFTLevel = 10
	}
	return &Engine{cfg: cfg, catalog: Catalog(), logger: logger}
}

// Curve returns the level curve in use.
func (e *Engine) Curve() Curve {
	return e.cfg.Curve
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// RecordAction applies the XP, reputation and streak effects of action and
// then evaluates achievements.
func (e *Engine) RecordAction(state *model.State, action Action, now time.Time) Outcome {
	p := &state.Player
	xp := e.cfg.ActionXP[action]
	p.XP += xp

	if action == ActionSwap {
		p.Reputation += e.cfg.ReputationPerTrade
	}
	touchStreak(p, now)

	out := e.Evaluate(state)
	out.XPGained += xp
	return out
}

// Evaluate awards every unearned achievement whose condition holds, repeating
// until nothing changes. Calling it again without a state change is a no-op.
func (e *Engine) Evaluate(state *model.State) Outcome {
	p := &state.Player
	var out Outcome
	out.LevelUps = e.relevel(p)

	for {
		view := Project(state)
		awarded := false
		for _, a := range e.catalog {
			if p.HasBadge(a.ID) || !a.Condition(view) {
				continue
			}
			p.Badges = append(p.Badges, a.ID)
			p.XP += a.XPReward
			out.XPGained += a.XPReward
			out.Badges = append(out.Badges, a)
			awarded = true
			e.logger.Info("achievement earned", zap.String("id", a.ID), zap.Int("xp_reward", a.XPReward))
		}
		out.LevelUps = append(out.LevelUps, e.relevel(p)...)
		if !awarded {
			break
		}
	}

	out.Prompts = e.prompts(p)
	return out
}

// relevel raises the level to match XP and returns each level entered.
func (e *Engine) relevel(p *model.Player) []int {
	target := e.cfg.Curve.LevelFor(p.XP)
	if p.Level < 1 {
		p.Level = 1
	}
	var ups []int
	for p.Level < target {
		p.Level++
		ups = append(ups, p.Level)
	}
	return ups
}

func (e *Engine) prompts(p *model.Player) []Prompt {
	var out []Prompt
	for _, t := range []struct {
		kind  string
		level int
	}{
		{PromptSync, e.cfg.SyncPromptLevel},
		{PromptNFTEligible, e.cfg.NFTLevel},
	} {
		if p.Level < t.level || p.HasMilestone(t.kind) {
			continue
		}
		p.Stats.Milestones = append(p.Stats.Milestones, t.kind)
		out = append(out, Prompt{Kind: t.kind, Level: p.Level})
	}
	return out
}

// touchStreak counts consecutive calendar days with activity.
func touchStreak(p *model.Player, now time.Time) {
	today := now.Format(time.DateOnly)
	switch p.Stats.LastActiveDay {
	case today:
		if p.CurrentStreak == 0 {
			p.CurrentStreak = 1
		}
		return
	case now.AddDate(0, 0, -1).Format(time.DateOnly):
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}
	p.Stats.LastActiveDay = today
}

// Progress reports XP within the current level as a fraction in [0,1].
func (e *Engine) Progress(p model.Player) float64 {
	level := e.cfg.Curve.LevelFor(p.XP)
	lo := e.cfg.Curve.XPForLevel(level)
	hi := e.cfg.Curve.XPForLevel(level + 1)
	if hi <= lo {
		return 1
	}
	return float64(p.XP-lo) / float64(hi-lo)
}
