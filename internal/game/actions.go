package game

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"mercadolp/internal/aggregate"
	"mercadolp/internal/amm"
	"mercadolp/internal/auction"
	"mercadolp/internal/mission"
	"mercadolp/internal/model"
	"mercadolp/internal/npc"
	"mercadolp/internal/pool"
	"mercadolp/internal/progression"
	"mercadolp/internal/token"
)

// SwapOutcome is the reply to an accepted swap.
type SwapOutcome struct {
	Result   pool.SwapResult     `json:"result"`
	Progress progression.Outcome `json:"progress"`
}

// LiquidityOutcome is the reply to an accepted deposit.
type LiquidityOutcome struct {
	Result   pool.LiquidityResult `json:"result"`
	Progress progression.Outcome  `json:"progress"`
}

// WithdrawOutcome is the reply to an accepted withdrawal.
type WithdrawOutcome struct {
	Result   pool.Withdrawal     `json:"result"`
	Progress progression.Outcome `json:"progress"`
}

// TokenOutcome is the reply to a created token.
type TokenOutcome struct {
	Token    model.Token         `json:"token"`
	Progress progression.Outcome `json:"progress"`
}

// PoolOutcome is the reply to a created and funded pool.
type PoolOutcome struct {
	Pool      model.Pool           `json:"pool"`
	Liquidity pool.LiquidityResult `json:"liquidity"`
	Progress  progression.Outcome  `json:"progress"`
}

// BidOutcome is the reply to an accepted bid.
type BidOutcome struct {
	BlockID  uint64              `json:"blockId"`
	Bid      model.Bid           `json:"bid"`
	Progress progression.Outcome `json:"progress"`
}

// BlockOutcome lists what advancing the block clock did.
type BlockOutcome struct {
	Block    uint64              `json:"block"`
	Cleared  []model.Auction     `json:"cleared,omitempty"`
	Opened   []model.Auction     `json:"opened,omitempty"`
	Progress progression.Outcome `json:"progress"`
}

// Quote prices a swap without executing it.
func (e *Engine) Quote(ctx context.Context, poolID, tokenIn string, amountIn float64) (amm.Quote, error) {
	return call(ctx, e, "quote", func() (amm.Quote, error) {
		return e.pools.Quote(e.state, poolID, tokenIn, amountIn)
	})
}

// Swap executes a player swap. The quote is re-derived at execution time.
func (e *Engine) Swap(ctx context.Context, poolID, tokenIn string, amountIn float64) (SwapOutcome, error) {
	return call(ctx, e, "swap", func() (SwapOutcome, error) {
		var out SwapOutcome
		err := e.mutate("swap", func(s *model.State) error {
			res, err := e.pools.Swap(s, poolID, tokenIn, amountIn, false)
			if err != nil {
				return err
			}
			out.Result = res
			out.Progress = e.progress.RecordAction(s, progression.ActionSwap, e.clock())
			return nil
		})
		if err != nil {
			return SwapOutcome{}, err
		}

		e.observeSwap(out.Result, false)
		e.metrics.RecordSwap("player", tokenIn, amountIn)
		e.commit(out.Progress, swapEvent(e.state.Player.ID, out.Result))
		return out, nil
	})
}

// AddLiquidity deposits into poolID. Off-ratio deposits are clamped and the
// excess stays in the inventory.
func (e *Engine) AddLiquidity(ctx context.Context, poolID string, amountA, amountB float64) (LiquidityOutcome, error) {
	return call(ctx, e, "add_liquidity", func() (LiquidityOutcome, error) {
		var out LiquidityOutcome
		err := e.mutate("add_liquidity", func(s *model.State) error {
			res, err := e.pools.AddLiquidity(s, poolID, amountA, amountB)
			if err != nil {
				return err
			}
			out.Result = res
			out.Progress = e.progress.RecordAction(s, progression.ActionAddLiquidity, e.clock())
			return nil
		})
		if err != nil {
			return LiquidityOutcome{}, err
		}

		e.metrics.RecordLiquidity("add")
		e.commit(out.Progress, model.Event{
			Type:     model.EventLiquidityChanged,
			PlayerID: e.state.Player.ID,
			PoolID:   poolID,
			Amount:   out.Result.Share,
			Detail:   "add",
			Attrs: map[string]string{
				"used_a": formatAmount(out.Result.UsedA),
				"used_b": formatAmount(out.Result.UsedB),
			},
		})
		return out, nil
	})
}

// RemoveLiquidity withdraws fraction of the player's position in poolID.
func (e *Engine) RemoveLiquidity(ctx context.Context, poolID string, fraction float64) (WithdrawOutcome, error) {
	return call(ctx, e, "remove_liquidity", func() (WithdrawOutcome, error) {
		var out WithdrawOutcome
		err := e.mutate("remove_liquidity", func(s *model.State) error {
			res, err := e.pools.RemoveLiquidity(s, poolID, fraction)
			if err != nil {
				return err
			}
			out.Result = res
			out.Progress = e.progress.RecordAction(s, progression.ActionRemoveLiquidity, e.clock())
			return nil
		})
		if err != nil {
			return WithdrawOutcome{}, err
		}

		e.metrics.RecordLiquidity("remove")
		e.commit(out.Progress, model.Event{
			Type:     model.EventLiquidityChanged,
			PlayerID: e.state.Player.ID,
			PoolID:   poolID,
			Amount:   out.Result.RemainingShare,
			Detail:   "remove",
			Attrs: map[string]string{
				"amount_a": formatAmount(out.Result.AmountA),
				"amount_b": formatAmount(out.Result.AmountB),
			},
		})
		return out, nil
	})
}

// CreateToken registers a player token and credits the creator supply.
func (e *Engine) CreateToken(ctx context.Context, symbol, emoji string) (TokenOutcome, error) {
	return call(ctx, e, "create_token", func() (TokenOutcome, error) {
		var out TokenOutcome
		err := e.mutate("create_token", func(s *model.State) error {
			tok, err := token.NewRegistry(s).Create(symbol, emoji)
			if err != nil {
				return err
			}
			s.Player.Stats.TokensCreated++
			if e.tuning.CreatorSupply > 0 {
				s.Player.Credit(tok.ID, e.tuning.CreatorSupply)
			}
			out.Token = tok
			out.Progress = e.progress.RecordAction(s, progression.ActionCreateToken, e.clock())
			return nil
		})
		if err != nil {
			return TokenOutcome{}, err
		}

		e.metrics.RecordTokenCreated()
		e.commit(out.Progress, model.Event{
			Type:     model.EventTokenCreated,
			PlayerID: e.state.Player.ID,
			TokenID:  out.Token.ID,
			Detail:   out.Token.Symbol,
		})
		return out, nil
	})
}

// CreatePool opens a pool for an unordered pair and funds it with the
// player's initial deposit, which sets the starting price.
func (e *Engine) CreatePool(ctx context.Context, tokenA, tokenB string, amountA, amountB float64) (PoolOutcome, error) {
	return call(ctx, e, "create_pool", func() (PoolOutcome, error) {
		var out PoolOutcome
		err := e.mutate("create_pool", func(s *model.State) error {
			p, err := e.pools.CreatePool(s, tokenA, tokenB, s.Player.ID)
			if err != nil {
				return err
			}
			// CreatePool may reorder the pair; keep amounts attached to their token.
			a, b := amountA, amountB
			if p.TokenA != tokenA {
				a, b = amountB, amountA
			}
			res, err := e.pools.AddLiquidity(s, p.ID, a, b)
			if err != nil {
				return err
			}
			out.Pool = *s.Pool(p.ID)
			out.Liquidity = res
			out.Progress = e.progress.RecordAction(s, progression.ActionCreatePool, e.clock())
			return nil
		})
		if err != nil {
			return PoolOutcome{}, err
		}

		e.metrics.RecordLiquidity("create_pool")
		e.commit(out.Progress, model.Event{
			Type:     model.EventPoolCreated,
			PlayerID: e.state.Player.ID,
			PoolID:   out.Pool.ID,
			Amount:   out.Pool.SpotPrice(),
		})
		return out, nil
	})
}

// PlaceBid records a player bid on the auction for blockID.
func (e *Engine) PlaceBid(ctx context.Context, blockID uint64, priceCap, maxSpend float64) (BidOutcome, error) {
	return call(ctx, e, "place_bid", func() (BidOutcome, error) {
		var out BidOutcome
		err := e.mutate("place_bid", func(s *model.State) error {
			if a := s.Auction(blockID); a != nil && !a.Cleared && blockID > s.Block {
				open := auction.Committed(*a, s.Player.ID)
				if have := s.Player.Balance(a.PayTokenID); open+maxSpend > have {
					return fmt.Errorf("%w: %s has %.6f, bids on block %d spend up to %.6f",
						model.ErrInsufficientBalance, a.PayTokenID, have, blockID, open+maxSpend)
				}
			}
			bid, err := e.auctions.PlaceBid(s, s.Player.ID, blockID, priceCap, maxSpend, e.clock().UnixMilli())
			if err != nil {
				return err
			}
			out.BlockID = blockID
			out.Bid = bid
			out.Progress = e.progress.RecordAction(s, progression.ActionPlaceBid, e.clock())
			return nil
		})
		if err != nil {
			return BidOutcome{}, err
		}

		e.metrics.RecordBid()
		e.commit(out.Progress, model.Event{
			Type:     model.EventBidPlaced,
			PlayerID: e.state.Player.ID,
			Amount:   maxSpend,
			Attrs: map[string]string{
				"block":     strconv.FormatUint(blockID, 10),
				"price_cap": formatAmount(priceCap),
			},
		})
		return out, nil
	})
}

// OpenAuction schedules an extra auction of the configured token.
func (e *Engine) OpenAuction(ctx context.Context, blockID uint64, supply float64) (model.Auction, error) {
	return call(ctx, e, "open_auction", func() (model.Auction, error) {
		var out model.Auction
		err := e.mutate("open_auction", func(s *model.State) error {
			a, err := e.auctions.Open(s, blockID, e.tuning.Auction.Token, e.tuning.Auction.PayToken, supply)
			out = a
			return err
		})
		if err != nil {
			return model.Auction{}, err
		}
		e.save()
		return out, nil
	})
}

// AdvanceBlock moves the simulated block clock forward by one, clears every
// auction that became due and keeps the lookahead window of auctions open.
func (e *Engine) AdvanceBlock(ctx context.Context) (BlockOutcome, error) {
	return call(ctx, e, "advance_block", func() (BlockOutcome, error) {
		return e.applyAdvanceBlock(), nil
	})
}

func (e *Engine) applyAdvanceBlock() BlockOutcome {
	var out BlockOutcome
	var won bool
	err := e.mutate("advance_block", func(s *model.State) error {
		s.Block++
		out.Block = s.Block
		for _, id := range auction.Due(s) {
			before := s.Player.Stats.AuctionTokensWon
			a, err := e.auctions.Clear(s, id)
			if err != nil {
				return err
			}
			out.Cleared = append(out.Cleared, a)
			if s.Player.Stats.AuctionTokensWon > before {
				won = true
			}
		}
		out.Opened = e.scheduleAuctions(s)
		if won {
			out.Progress = e.progress.RecordAction(s, progression.ActionAuctionWon, e.clock())
		}
		return nil
	})
	if err != nil {
		e.logger.Error("advance block", zap.Error(err))
		return BlockOutcome{}
	}

	events := make([]model.Event, 0, len(out.Cleared))
	for _, a := range out.Cleared {
		e.metrics.RecordAuctionCleared()
		ev := model.Event{
			Type:    model.EventAuctionCleared,
			TokenID: a.TokenID,
			Amount:  a.Supply,
			Attrs:   map[string]string{"block": strconv.FormatUint(a.BlockID, 10)},
		}
		if a.ClearingPrice != nil {
			ev.Attrs["clearing_price"] = formatAmount(*a.ClearingPrice)
		}
		for _, alloc := range a.Allocations {
			if alloc.BidderID == e.state.Player.ID {
				ev.PlayerID = alloc.BidderID
				ev.Attrs["won"] = formatAmount(alloc.Quantity)
			}
		}
		events = append(events, ev)
	}
	e.commit(out.Progress, events...)
	return out
}

// scheduleAuctions keeps an auction open for each of the next lookahead blocks
// and seeds NPC bids on new ones so clearing has competition.
func (e *Engine) scheduleAuctions(s *model.State) []model.Auction {
	cfg := e.tuning.Auction
	var opened []model.Auction
	for b := s.Block + 1; b <= s.Block+cfg.Lookahead; b++ {
		if s.Auction(b) != nil {
			continue
		}
		a, err := e.auctions.Open(s, b, cfg.Token, cfg.PayToken, cfg.Supply)
		if err != nil {
			e.logger.Warn("open auction", zap.Uint64("block", b), zap.Error(err))
			continue
		}
		e.seedBids(s, a)
		opened = append(opened, *s.Auction(b))
	}
	return opened
}

func (e *Engine) seedBids(s *model.State, a model.Auction) {
	spot := 1.0
	if p := s.PoolForPair(a.TokenID, a.PayTokenID); p != nil && !p.Closed() {
		in, out := p.Reserves(a.TokenID)
		spot = out / in
	}
	now := e.clock().UnixMilli()
	for i, trader := range e.npcs.Roster() {
		if i >= 3 {
			break
		}
		priceCap := spot * (0.8 + 0.1*float64(i))
		spend := priceCap * a.Supply / 4
		if _, err := e.auctions.PlaceBid(s, trader.ID, a.BlockID, priceCap, spend, now); err != nil {
			e.logger.Debug("seed bid", zap.String("npc", trader.ID), zap.Error(err))
		}
	}
}

// Tick runs one NPC scheduling round.
func (e *Engine) Tick(ctx context.Context) ([]model.NPCActivity, error) {
	return call(ctx, e, "npc_tick", func() ([]model.NPCActivity, error) {
		return e.applyNPCTick(), nil
	})
}

func (e *Engine) applyNPCTick() []model.NPCActivity {
	var trades []npc.Trade
	_ = e.mutate("npc_tick", func(s *model.State) error {
		trades = e.npcs.Tick(s, e.clock(), e.pools)
		return nil
	})
	if len(trades) == 0 {
		return nil
	}

	activity := make([]model.NPCActivity, 0, len(trades))
	events := make([]model.Event, 0, len(trades))
	for _, t := range trades {
		activity = append(activity, t.Activity)
		e.observeSwap(t.Result, true)
		e.metrics.RecordSwap("npc", t.Result.TokenIn, t.Result.Quote.AmountIn)
		ev := swapEvent(t.Activity.NPCID, t.Result)
		ev.Type = model.EventNPCTrade
		ev.Detail = t.Activity.Action
		events = append(events, ev)
	}
	// The feed keeps newest first, so push oldest first.
	e.feed.Push(activity...)
	e.commit(progression.Outcome{}, events...)
	return activity
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot(ctx context.Context) (*model.State, error) {
	return call(ctx, e, "snapshot", func() (*model.State, error) {
		return e.state.Clone(), nil
	})
}

// Advice returns the mission advisor's view of the current state.
func (e *Engine) Advice(ctx context.Context) (mission.Advice, error) {
	return call(ctx, e, "advice", func() (mission.Advice, error) {
		return e.advisor.Advise(e.state, e.agg), nil
	})
}

// SetView stores the UI's selected mission level and map toggle.
func (e *Engine) SetView(ctx context.Context, level int, showMap bool) error {
	_, err := call(ctx, e, "set_view", func() (struct{}, error) {
		if level < 0 {
			return struct{}{}, fmt.Errorf("%w: level %d", model.ErrInvalidAmount, level)
		}
		e.state.CurrentLevel = level
		e.state.ShowMap = showMap
		e.save()
		return struct{}{}, nil
	})
	return err
}

// Reset discards the saved game and starts a fresh one.
func (e *Engine) Reset(ctx context.Context) (*model.State, error) {
	return call(ctx, e, "reset", func() (*model.State, error) {
		if e.gateway != nil {
			e.gateway.Clear()
		}
		e.state = e.newGame(e.state.Player.ID)
		e.save()
		return e.state.Clone(), nil
	})
}

// commit publishes the action events followed by progression events, then
// persists. Sink and save failures are logged and never reach the caller.
func (e *Engine) commit(progress progression.Outcome, events ...model.Event) {
	playerID := e.state.Player.ID
	for _, b := range progress.Badges {
		e.metrics.RecordBadge(b.ID)
		events = append(events, model.Event{
			Type:     model.EventBadgeEarned,
			PlayerID: playerID,
			Amount:   float64(b.XPReward),
			Detail:   b.ID,
		})
	}
	for _, lvl := range progress.LevelUps {
		events = append(events, model.Event{
			Type:     model.EventLevelUp,
			PlayerID: playerID,
			Level:    lvl,
			Amount:   float64(e.state.Player.XP),
		})
	}
	for _, p := range progress.Prompts {
		events = append(events, model.Event{
			Type:     model.EventPrompt,
			PlayerID: playerID,
			Level:    p.Level,
			Detail:   p.Kind,
		})
	}
	e.metrics.RecordLevel(e.state.Player.Level, len(progress.LevelUps))

	for i := range events {
		events[i] = e.bus.Publish(events[i])
	}
	if e.sink != nil && len(events) > 0 {
		if err := e.sink.PutEvents(events); err != nil {
			e.logger.Warn("write event log", zap.Int("events", len(events)), zap.Error(err))
		}
	}
	for _, p := range e.state.Pools {
		e.metrics.SetReserves(p.ID, p.TokenA, p.TokenB, p.ReserveA, p.ReserveB)
	}
	e.save()
}

func (e *Engine) save() {
	if e.gateway == nil {
		return
	}
	if !e.gateway.Save(e.state) {
		e.metrics.RecordSaveFailure()
	}
}

func (e *Engine) observeSwap(res pool.SwapResult, synthetic bool) {
	p := e.state.Pool(res.PoolID)
	if p == nil {
		return
	}
	e.agg.Observe(aggregate.Swap{
		PoolID:    p.ID,
		TokenA:    p.TokenA,
		TokenB:    p.TokenB,
		TokenIn:   res.TokenIn,
		AmountIn:  res.Quote.AmountIn,
		AmountOut: res.Quote.AmountOut,
		Fee:       res.Quote.Fee,
		ReserveA:  p.ReserveA,
		ReserveB:  p.ReserveB,
		Synthetic: synthetic,
		Timestamp: uint64(e.clock().Unix()),
	})
}

func swapEvent(actor string, res pool.SwapResult) model.Event {
	return model.Event{
		Type:     model.EventSwapCompleted,
		PlayerID: actor,
		PoolID:   res.PoolID,
		TokenID:  res.TokenIn,
		Amount:   res.Quote.AmountIn,
		Attrs: map[string]string{
			"token_out":    res.TokenOut,
			"amount_out":   formatAmount(res.Quote.AmountOut),
			"price_impact": formatAmount(res.Quote.PriceImpact),
		},
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
