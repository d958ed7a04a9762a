// Package claim builds the read-only snapshot handed to the NFT claim service.
package claim

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"mercadolp/internal/model"
	"mercadolp/internal/token"
)

// Snapshot is what the claim service sees of a player.
type Snapshot struct {
	PlayerID        string  `json:"playerId"`
	Level           int     `json:"level"`
	XP              int     `json:"xp"`
	TotalSwaps      int     `json:"totalSwaps"`
	TotalLPProvided float64 `json:"totalLpProvided"`
	TokensCreated   int     `json:"tokensCreated"`
}

// Ticket binds a snapshot to a wallet with a digest the service can recompute.
type Ticket struct {
	Snapshot Snapshot `json:"snapshot"`
	Wallet   string   `json:"wallet"`
	Digest   string   `json:"digest"`
}

// Build projects state into a Snapshot. totalLpProvided is the sum of deposits
// still held in open positions, valued in each pool's token B at spot.
func Build(state *model.State) Snapshot {
	p := state.Player
	var provided float64
	for _, pos := range p.LPPositions {
		spot := 0.0
		if pool := state.Pool(pos.PoolID); pool != nil && !pool.Closed() {
			spot = pool.SpotPrice()
		}
		provided += pos.DepositedA*spot + pos.DepositedB
	}

	created := p.Stats.TokensCreated
	if n := token.CountPlayerCreated(state.Tokens); n > created {
		created = n
	}
	return Snapshot{
		PlayerID:        p.ID,
		Level:           p.Level,
		XP:              p.XP,
		TotalSwaps:      p.SwapCount,
		TotalLPProvided: provided,
		TokensCreated:   created,
	}
}

// Eligible reports whether the snapshot meets minLevel.
func (s Snapshot) Eligible(minLevel int) bool {
	return s.Level >= minLevel
}

// Ticket validates wallet and binds it to the snapshot.
func (s Snapshot) Ticket(wallet string) (Ticket, error) {
	wallet = strings.TrimSpace(wallet)
	if !common.IsHexAddress(wallet) {
		return Ticket{}, fmt.Errorf("invalid wallet address: %q", wallet)
	}
	addr := common.HexToAddress(wallet)

	digest, err := s.digest(addr)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{Snapshot: s, Wallet: addr.Hex(), Digest: digest.Hex()}, nil
}

func (s Snapshot) digest(addr common.Address) (common.Hash, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return crypto.Keccak256Hash(addr.Bytes(), payload), nil
}

// Verify recomputes the digest and reports whether the ticket is unchanged.
func (t Ticket) Verify() bool {
	if !common.IsHexAddress(t.Wallet) {
		return false
	}
	digest, err := t.Snapshot.digest(common.HexToAddress(t.Wallet))
	if err != nil {
		return false
	}
	return digest.Hex() == t.Digest
}
