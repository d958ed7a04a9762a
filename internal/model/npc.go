package model

// Personality drives an NPC's cooldown and trade direction.
type Personality string

const (
	PersonalityComprador   Personality = "comprador"
	PersonalityEspeculador Personality = "especulador"
	PersonalityCasual      Personality = "casual"
)

// AnyToken is the wildcard preference matching every pool.
const AnyToken = "*"

// NPCTrader is an autonomous market participant.
type NPCTrader struct {
	ID              string      `json:"id" yaml:"id"`
	Name            string      `json:"name" yaml:"name"`
	Avatar          string      `json:"avatar" yaml:"avatar"`
	Personality     Personality `json:"personality" yaml:"personality"`
	Catchphrase     string      `json:"catchphrase" yaml:"catchphrase"`
	PreferredTokens []string    `json:"preferredTokens" yaml:"preferred_tokens"`
	LastTradeTime   int64       `json:"lastTradeTime" yaml:"-"`
}

// Prefers reports whether the NPC is biased toward token.
func (n NPCTrader) Prefers(token string) bool {
	for _, t := range n.PreferredTokens {
		if t == AnyToken || t == token {
			return true
		}
	}
	return false
}

// NPCActivity is one line of the NPC activity feed.
type NPCActivity struct {
	ID        string `json:"id"`
	NPCID     string `json:"npcId"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}
