package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mercadolp/internal/model"
)

// Tuning holds the simulation constants. Missing keys keep their defaults.
type Tuning struct {
	Pool        PoolTuning         `yaml:"pool"`
	Progression ProgressionTuning  `yaml:"progression"`
	NPC         NPCTuning          `yaml:"npc"`
	Auction     AuctionTuning      `yaml:"auction"`
	Starter     map[string]float64 `yaml:"starter_inventory"`
	SeedPools   []SeedPool         `yaml:"seed_pools"`

	// CreatorSupply is credited to the player for each token they create.
	CreatorSupply float64 `yaml:"creator_supply"`
}

type PoolTuning struct {
	FeeBps         uint32  `yaml:"fee_bps"`
	RatioTolerance float64 `yaml:"ratio_tolerance"`
}

type ProgressionTuning struct {
	BaseXP             int            `yaml:"base_xp"`
	Exponent           float64        `yaml:"exponent"`
	ActionXP           map[string]int `yaml:"action_xp"`
	ReputationPerTrade int            `yaml:"reputation_per_trade"`
	SyncPromptLevel    int            `yaml:"sync_prompt_level"`
	NFTLevel           int            `yaml:"nft_level"`
}

type NPCTuning struct {
	Cooldowns        map[string]time.Duration `yaml:"cooldowns"`
	MaxTradeFraction float64                  `yaml:"max_trade_fraction"`
	FeedSize         int                      `yaml:"feed_size"`
	Roster           []model.NPCTrader        `yaml:"roster"`
}

type AuctionTuning struct {
	BlockInterval time.Duration `yaml:"block_interval"`
	Supply        float64       `yaml:"supply"`
	Token         string        `yaml:"token"`
	PayToken      string        `yaml:"pay_token"`
	Lookahead     uint64        `yaml:"lookahead"`
}

// SeedPool is house liquidity created for a fresh game.
type SeedPool struct {
	TokenA   string  `yaml:"token_a"`
	TokenB   string  `yaml:"token_b"`
	ReserveA float64 `yaml:"reserve_a"`
	ReserveB float64 `yaml:"reserve_b"`
}

// DefaultTuning returns the compiled-in constants.
func DefaultTuning() Tuning {
	return Tuning{
		Pool: PoolTuning{FeeBps: 30, RatioTolerance: 1e-6},
		Progression: ProgressionTuning{
			BaseXP:             100,
			Exponent:           1.5,
			ReputationPerTrade: 1,
			SyncPromptLevel:    3,
			NFTLevel:           10,
		},
		NPC: NPCTuning{
			Cooldowns: map[string]time.Duration{
				string(model.PersonalityComprador):   20 * time.Second,
				string(model.PersonalityEspeculador): 8 * time.Second,
				string(model.PersonalityCasual):      45 * time.Second,
			},
			MaxTradeFraction: 0.02,
			FeedSize:         50,
		},
		Auction: AuctionTuning{
			BlockInterval: 30 * time.Second,
			Supply:        100,
			Token:         "fresa",
			PayToken:      "manzana",
			Lookahead:     2,
		},
		Starter: map[string]float64{
			"manzana": 100,
			"platano": 100,
			"uva":     50,
		},
		SeedPools: []SeedPool{
			{TokenA: "manzana", TokenB: "platano", ReserveA: 1000, ReserveB: 1000},
			{TokenA: "fresa", TokenB: "manzana", ReserveA: 500, ReserveB: 1000},
			{TokenA: "naranja", TokenB: "uva", ReserveA: 800, ReserveB: 400},
			{TokenA: "pina", TokenB: "platano", ReserveA: 300, ReserveB: 600},
		},
		CreatorSupply: 1000,
	}
}

// LoadTuning reads path over the defaults. An empty path returns defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate rejects values the engines cannot run with.
func (t Tuning) Validate() error {
	if t.Pool.FeeBps >= 10000 {
		return fmt.Errorf("pool.fee_bps must be below 10000")
	}
	if t.NPC.MaxTradeFraction <= 0 || t.NPC.MaxTradeFraction > 0.5 {
		return fmt.Errorf("npc.max_trade_fraction must be in (0, 0.5]")
	}
	if t.Progression.Exponent < 1 {
		return fmt.Errorf("progression.exponent must be >= 1")
	}
	if t.CreatorSupply < 0 {
		return fmt.Errorf("creator_supply must not be negative")
	}
	for _, p := range t.SeedPools {
		if p.ReserveA <= 0 || p.ReserveB <= 0 {
			return fmt.Errorf("seed pool %s-%s needs positive reserves", p.TokenA, p.TokenB)
		}
	}
	return nil
}
