// Package game owns the single game-state aggregate and serializes every
// mutation through one goroutine.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mercadolp/internal/aggregate"
	"mercadolp/internal/auction"
	"mercadolp/internal/config"
	"mercadolp/internal/metrics"
	"mercadolp/internal/mission"
	"mercadolp/internal/model"
	"mercadolp/internal/npc"
	"mercadolp/internal/persistence"
	"mercadolp/internal/pool"
	"mercadolp/internal/progression"
	"mercadolp/internal/storage"
	"mercadolp/internal/token"
)

// ErrStopped is returned by operations issued after Run has returned.
var ErrStopped = errors.New("engine stopped")

// Options wires an Engine. Every collaborator is optional.
type Options struct {
	Tuning     config.Tuning
	PlayerID   string
	Gateway    *persistence.Gateway
	Sink       storage.EventSink
	Metrics    *metrics.Metrics
	Aggregator *aggregate.Aggregator
	Roster     []model.NPCTrader
	Seed       uint64
	// NPCTick and BlockInterval drive the timers started by Run; zero
	// disables the timer.
	NPCTick       time.Duration
	BlockInterval time.Duration
	Clock         func() time.Time
}

type request struct {
	op    string
	fn    func() (any, error)
	reply chan response
}

type response struct {
	val any
	err error
}

// Engine is the controller. Public methods enqueue a request and wait for the
// single writer in Run to answer it.
type Engine struct {
	tuning   config.Tuning
	state    *model.State
	pools    *pool.Engine
	auctions *auction.Engine
	progress *progression.Engine
	npcs     *npc.Scheduler
	feed     *npc.Feed
	advisor  *mission.Advisor
	agg      *aggregate.Aggregator
	bus      *Bus
	gateway  *persistence.Gateway
	sink     storage.EventSink
	metrics  *metrics.Metrics
	logger   *zap.Logger
	clock    func() time.Time

	npcTick       time.Duration
	blockInterval time.Duration

	inbox chan request
	done  chan struct{}
}

// New builds an Engine, resuming the saved game when the gateway has one.
func New(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.PlayerID == "" {
		opts.PlayerID = "player"
	}
	t := opts.Tuning
	if t.Pool.RatioTolerance == 0 && t.Pool.FeeBps == 0 && t.NPC.MaxTradeFraction == 0 {
		t = config.DefaultTuning()
	}

	roster := opts.Roster
	if roster == nil {
		roster = t.NPC.Roster
	}
	if roster == nil {
		roster = npc.DefaultRoster()
	}

	agg := opts.Aggregator
	if agg == nil {
		agg = aggregate.NewAggregator(aggregate.Config{}, logger.Named("aggregate"))
	}

	e := &Engine{
		tuning:        t,
		pools:         pool.NewEngine(pool.Config{FeeBps: t.Pool.FeeBps, RatioTolerance: t.Pool.RatioTolerance}, logger.Named("pool")),
		auctions:      auction.NewEngine(logger.Named("auction")),
		progress:      progression.NewEngine(progressionConfig(t.Progression), logger.Named("progression")),
		npcs:          npc.NewScheduler(npc.Config{Cooldowns: cooldowns(t.NPC.Cooldowns), MaxTradeFraction: t.NPC.MaxTradeFraction, Seed: opts.Seed}, roster, logger.Named("npc")),
		feed:          npc.NewFeed(t.NPC.FeedSize),
		advisor:       mission.NewAdvisor(t.Pool.FeeBps),
		agg:           agg,
		gateway:       opts.Gateway,
		sink:          opts.Sink,
		metrics:       opts.Metrics,
		logger:        logger,
		clock:         opts.Clock,
		npcTick:       opts.NPCTick,
		blockInterval: opts.BlockInterval,
		inbox:         make(chan request),
		done:          make(chan struct{}),
	}
	e.bus = NewBus(opts.Metrics.RecordEventDropped)
	e.bus.now = opts.Clock

	if opts.Gateway != nil {
		e.state = opts.Gateway.Load()
	}
	if e.state == nil {
		e.state = e.newGame(opts.PlayerID)
		e.save()
	} else {
		logger.Info("resumed saved game",
			zap.Int("level", e.state.Player.Level),
			zap.Int("pools", len(e.state.Pools)),
			zap.Uint64("block", e.state.Block),
		)
	}
	return e
}

func progressionConfig(t config.ProgressionTuning) progression.Config {
	cfg := progression.Config{
		Curve:              progression.Curve{BaseXP: t.BaseXP, Exponent: t.Exponent},
		ReputationPerTrade: t.ReputationPerTrade,
		SyncPromptLevel:    t.SyncPromptLevel,
		NFTLevel:           t.NFTLevel,
	}
	if len(t.ActionXP) > 0 {
		cfg.ActionXP = progression.DefaultActionXP()
		for k, v := range t.ActionXP {
			cfg.ActionXP[progression.Action(k)] = v
		}
	}
	return cfg
}

func cooldowns(in map[string]time.Duration) map[model.Personality]time.Duration {
	if len(in) == 0 {
		return nil
	}
	out := npc.DefaultCooldowns()
	for k, v := range in {
		out[model.Personality(k)] = v
	}
	return out
}

// newGame seeds tokens, house liquidity, the starter inventory and the first
// auctions.
func (e *Engine) newGame(playerID string) *model.State {
	s := &model.State{
		Player: model.Player{ID: playerID, Inventory: make(map[string]float64), Level: 1},
	}
	token.NewRegistry(s).Seed()

	for _, sp := range e.tuning.SeedPools {
		p, err := e.pools.CreatePool(s, sp.TokenA, sp.TokenB, "system")
		if err != nil {
			e.logger.Warn("skip seed pool", zap.String("token_a", sp.TokenA), zap.String("token_b", sp.TokenB), zap.Error(err))
			continue
		}
		live := s.Pool(p.ID)
		live.ReserveA, live.ReserveB = sp.ReserveA, sp.ReserveB
		if live.TokenA != sp.TokenA {
			live.ReserveA, live.ReserveB = sp.ReserveB, sp.ReserveA
		}
	}
	for id, amount := range e.tuning.Starter {
		if s.Token(id) != nil && amount > 0 {
			s.Player.Credit(id, amount)
		}
	}
	e.scheduleAuctions(s)

	e.logger.Info("new game", zap.String("player", playerID), zap.Int("pools", len(s.Pools)))
	return s
}

// Run is the single writer. It returns when ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	if e.npcTick > 0 {
		go e.timer(ctx, e.npcTick, "npc_tick", func() (any, error) { return e.applyNPCTick(), nil })
	}
	if e.blockInterval > 0 {
		go e.timer(ctx, e.blockInterval, "advance_block", func() (any, error) { return e.applyAdvanceBlock(), nil })
	}

	e.logger.Info("engine started", zap.Duration("npc_tick", e.npcTick), zap.Duration("block_interval", e.blockInterval))
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case req := <-e.inbox:
			start := time.Now()
			val, err := req.fn()
			e.metrics.ObserveAction(req.op, time.Since(start).Seconds())
			if req.reply != nil {
				req.reply <- response{val: val, err: err}
			}
		}
	}
}

// timer enqueues fn every interval. It never touches state itself.
func (e *Engine) timer(ctx context.Context, interval time.Duration, op string, fn func() (any, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case e.inbox <- request{op: op, fn: fn}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (e *Engine) shutdown() {
	e.save()
	flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.agg.Flush(flushCtx); err != nil {
		e.logger.Warn("flush window stats", zap.Error(err))
	}
	e.logger.Info("engine stopped")
}

// do sends fn to the writer and waits for its answer.
func (e *Engine) do(ctx context.Context, op string, fn func() (any, error)) (any, error) {
	req := request{op: op, fn: fn, reply: make(chan response, 1)}
	select {
	case e.inbox <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		return nil, ErrStopped
	}
	select {
	case res := <-req.reply:
		return res.val, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func call[T any](ctx context.Context, e *Engine, op string, fn func() (T, error)) (T, error) {
	val, err := e.do(ctx, op, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return val.(T), nil
}

// mutate applies fn to a copy of the state and commits it only on success,
// so a rejected action never leaves partial changes behind.
func (e *Engine) mutate(op string, fn func(s *model.State) error) error {
	next := e.state.Clone()
	if err := fn(next); err != nil {
		e.metrics.RecordRejected(op)
		e.bus.Publish(model.Event{Type: model.EventError, PlayerID: e.state.Player.ID, Detail: fmt.Sprintf("%s: %v", op, err)})
		return err
	}
	e.state = next
	return nil
}

// Subscribe returns a feed of engine events.
func (e *Engine) Subscribe(buffer int) (<-chan model.Event, func()) {
	return e.bus.Subscribe(buffer)
}

// Activity returns the most recent NPC activity, newest first.
func (e *Engine) Activity(limit int) []model.NPCActivity {
	return e.feed.List(limit)
}

// Stats returns the latest window statistics per pool.
func (e *Engine) Stats() []aggregate.WindowMetrics {
	return e.agg.Latest()
}

// Progress exposes the progression engine for read-only helpers.
func (e *Engine) Progress() *progression.Engine {
	return e.progress
}
