// Package token manages the simulation's fungible assets.
package token

import (
	"fmt"
	"regexp"
	"strings"

	"mercadolp/internal/model"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,8}$`)

// BaseTokens returns the fruit catalog seeded at the start of every game.
func BaseTokens() []model.Token {
	return []model.Token{
		{ID: "manzana", Symbol: "MANZANA", Emoji: "🍎", IsBaseToken: true},
		{ID: "platano", Symbol: "PLATANO", Emoji: "🍌", IsBaseToken: true},
		{ID: "uva", Symbol: "UVA", Emoji: "🍇", IsBaseToken: true},
		{ID: "naranja", Symbol: "NARANJA", Emoji: "🍊", IsBaseToken: true},
		{ID: "fresa", Symbol: "FRESA", Emoji: "🍓", IsBaseToken: true},
		{ID: "pina", Symbol: "PINA", Emoji: "🍍", IsBaseToken: true},
	}
}

// Registry validates and appends tokens on a state aggregate.
type Registry struct {
	state *model.State
}

// NewRegistry wraps the token list of state.
func NewRegistry(state *model.State) *Registry {
	return &Registry{state: state}
}

// Seed installs the base tokens that are missing from the state.
func (r *Registry) Seed() {
	for _, t := range BaseTokens() {
		if r.state.Token(t.ID) == nil {
			r.state.Tokens = append(r.state.Tokens, t)
		}
	}
}

// Get returns a copy of the token with id.
func (r *Registry) Get(id string) (model.Token, error) {
	t := r.state.Token(id)
	if t == nil {
		return model.Token{}, fmt.Errorf("%w: %s", model.ErrTokenNotFound, id)
	}
	return *t, nil
}

// Create appends an immutable player token. The id is the lowercase symbol.
func (r *Registry) Create(symbol, emoji string) (model.Token, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(symbol) {
		return model.Token{}, fmt.Errorf("%w: symbol %q must be 2-8 letters or digits", model.ErrInvalidToken, symbol)
	}
	id := strings.ToLower(symbol)
	for _, t := range r.state.Tokens {
		if t.ID == id || t.Symbol == symbol {
			return model.Token{}, fmt.Errorf("%w: %s", model.ErrDuplicateToken, symbol)
		}
	}
	if strings.TrimSpace(emoji) == "" {
		emoji = "🪙"
	}

	tok := model.Token{ID: id, Symbol: symbol, Emoji: emoji}
	r.state.Tokens = append(r.state.Tokens, tok)
	return tok, nil
}

// PlayerCreated counts tokens that are not part of the base catalog.
func (r *Registry) PlayerCreated() int {
	return CountPlayerCreated(r.state.Tokens)
}

// CountPlayerCreated counts non-base tokens in a list.
func CountPlayerCreated(tokens []model.Token) int {
	n := 0
	for _, t := range tokens {
		if !t.IsBaseToken {
			n++
		}
	}
	return n
}
