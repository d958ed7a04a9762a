package token

import (
	"errors"
	"testing"

	"mercadolp/internal/model"
)

func TestSeedIsIdempotent(t *testing.T) {
	state := &model.State{}
	reg := NewRegistry(state)
	reg.Seed()
	reg.Seed()

	if len(state.Tokens) != len(BaseTokens()) {
		t.Fatalf("token count mismatch: %d", len(state.Tokens))
	}
	if reg.PlayerCreated() != 0 {
		t.Fatalf("base tokens counted as player created")
	}
}

func TestCreateToken(t *testing.T) {
	state := &model.State{}
	reg := NewRegistry(state)
	reg.Seed()

	tok, err := reg.Create(" kiwi ", "🥝")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tok.ID != "kiwi" || tok.Symbol != "KIWI" || tok.IsBaseToken {
		t.Fatalf("token mismatch: %+v", tok)
	}
	if reg.PlayerCreated() != 1 {
		t.Fatalf("player created count mismatch")
	}

	if _, err := reg.Create("KIWI", ""); !errors.Is(err, model.ErrDuplicateToken) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if _, err := reg.Create("UVA", ""); !errors.Is(err, model.ErrDuplicateToken) {
		t.Fatalf("expected duplicate base symbol, got %v", err)
	}
	if _, err := reg.Create("x", ""); !errors.Is(err, model.ErrInvalidToken) {
		t.Fatalf("expected invalid symbol, got %v", err)
	}
}
