package claim

import (
	"testing"

	"mercadolp/internal/model"
)

func sampleState() *model.State {
	return &model.State{
		Player: model.Player{
			ID: "player", Level: 6, XP: 1300, SwapCount: 42,
			LPPositions: []model.LiquidityPosition{{PoolID: "fresa-uva", ShareOfPool: 0.5, DepositedA: 10, DepositedB: 5}},
		},
		Pools: []model.Pool{{ID: "fresa-uva", TokenA: "fresa", TokenB: "uva", ReserveA: 100, ReserveB: 50}},
		Tokens: []model.Token{
			{ID: "fresa", IsBaseToken: true},
			{ID: "mango"},
		},
	}
}

func TestBuild(t *testing.T) {
	snap := Build(sampleState())
	if snap.Level != 6 || snap.XP != 1300 || snap.TotalSwaps != 42 || snap.TokensCreated != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.TotalLPProvided != 10 {
		t.Fatalf("totalLpProvided = %v, want 10", snap.TotalLPProvided)
	}
	if !snap.Eligible(5) || snap.Eligible(7) {
		t.Fatalf("eligibility mismatch for level %d", snap.Level)
	}
}

func TestTicketRoundTrip(t *testing.T) {
	snap := Build(sampleState())
	ticket, err := snap.Ticket("0x52908400098527886e0f7030069857d2e4169ee7")
	if err != nil {
		t.Fatalf("ticket: %v", err)
	}
	if ticket.Wallet != "0x52908400098527886E0F7030069857D2E4169EE7" {
		t.Fatalf("wallet not checksummed: %s", ticket.Wallet)
	}
	if !ticket.Verify() {
		t.Fatalf("fresh ticket must verify")
	}

	ticket.Snapshot.Level = 99
	if ticket.Verify() {
		t.Fatalf("tampered ticket must not verify")
	}
}

func TestTicketRejectsBadWallet(t *testing.T) {
	if _, err := Build(sampleState()).Ticket("not-a-wallet"); err == nil {
		t.Fatalf("expected error")
	}
}
