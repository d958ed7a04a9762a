package model

import "errors"

// Simulation errors. Every rejected action leaves state unchanged.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPoolNotFound        = errors.New("pool not found")
	ErrDuplicatePool       = errors.New("pool already exists for pair")
	ErrTokenNotFound       = errors.New("token not found")
	ErrDuplicateToken      = errors.New("token already exists")
	ErrInvalidToken        = errors.New("invalid token")
	ErrPositionNotFound    = errors.New("liquidity position not found")
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrAuctionClosed       = errors.New("auction closed")
	// ErrStaleQuote is never returned: execution always re-derives the quote.
	ErrStaleQuote         = errors.New("stale quote")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
