// Package ws exposes the game engine over a websocket: engine events stream
// to every client and clients send intents that are forwarded to the engine.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mercadolp/internal/amm"
	"mercadolp/internal/game"
	"mercadolp/internal/model"
)

// Message types.
const (
	TypeSwap            = "swap"
	TypeAddLiquidity    = "add_liquidity"
	TypeRemoveLiquidity = "remove_liquidity"
	TypeCreateToken     = "create_token"
	TypePlaceBid        = "place_bid"
	TypeQuote           = "quote"

	TypeResult = "result"
	TypeError  = "error"
	TypeEvent  = "event"
)

// Engine is the part of the game engine the server drives.
type Engine interface {
	Subscribe(buffer int) (<-chan model.Event, func())
	Quote(ctx context.Context, poolID, tokenIn string, amountIn float64) (amm.Quote, error)
	Swap(ctx context.Context, poolID, tokenIn string, amountIn float64) (game.SwapOutcome, error)
	AddLiquidity(ctx context.Context, poolID string, amountA, amountB float64) (game.LiquidityOutcome, error)
	RemoveLiquidity(ctx context.Context, poolID string, fraction float64) (game.WithdrawOutcome, error)
	CreateToken(ctx context.Context, symbol, emoji string) (game.TokenOutcome, error)
	PlaceBid(ctx context.Context, blockID uint64, priceCap, maxSpend float64) (game.BidOutcome, error)
}

// Intent is a client request. Fields not used by Type are ignored.
type Intent struct {
	Type     string  `json:"type"`
	ID       string  `json:"id,omitempty"`
	PoolID   string  `json:"poolId,omitempty"`
	TokenIn  string  `json:"tokenIn,omitempty"`
	AmountIn float64 `json:"amountIn,omitempty"`
	AmountA  float64 `json:"amountA,omitempty"`
	AmountB  float64 `json:"amountB,omitempty"`
	Fraction float64 `json:"fraction,omitempty"`
	Symbol   string  `json:"symbol,omitempty"`
	Emoji    string  `json:"emoji,omitempty"`
	BlockID  uint64  `json:"blockId,omitempty"`
	PriceCap float64 `json:"priceCap,omitempty"`
	MaxSpend float64 `json:"maxSpend,omitempty"`
}

// Reply answers an intent or carries a pushed event.
type Reply struct {
	Type   string       `json:"type"`
	ID     string       `json:"id,omitempty"`
	Result any          `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
	Event  *model.Event `json:"event,omitempty"`
}

// Server bridges websocket clients to a game engine. Each connection sends
// intents and receives replies plus the engine's event stream.
type Server struct {
	engine  Engine
	logger  *zap.Logger
	timeout time.Duration

	upgrader websocket.Upgrader
}

// NewServer returns a Server for engine. A nil logger is replaced by a no-op.
func NewServer(engine Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:  engine,
		logger:  logger,
		timeout: 5 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // local play only
		},
	}
}

// Handler upgrades requests to websocket connections and serves each until the
// client disconnects or the request context ends.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		events, unsubscribe := s.engine.Subscribe(128)
		defer unsubscribe()
		replies := make(chan Reply, 16)

		s.logger.Info("client connected", zap.String("remote", r.RemoteAddr))

		// Writer goroutine.
		go func() {
			for {
				var msg Reply
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						cancel()
						return
					}
					msg = Reply{Type: TypeEvent, Event: &ev}
				case msg = <-replies:
				}
				if err := writeJSON(conn, msg); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.dispatch(ctx, raw)
			select {
			case replies <- reply:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		s.logger.Info("client disconnected", zap.String("remote", r.RemoteAddr))
	}
}

func (s *Server) dispatch(ctx context.Context, raw []byte) Reply {
	var in Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		return Reply{Type: TypeError, Error: fmt.Sprintf("bad message: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.apply(ctx, in)
	if err != nil {
		return Reply{Type: TypeError, ID: in.ID, Error: err.Error()}
	}
	return Reply{Type: TypeResult, ID: in.ID, Result: result}
}

func (s *Server) apply(ctx context.Context, in Intent) (any, error) {
	switch in.Type {
	case TypeQuote:
		return s.engine.Quote(ctx, in.PoolID, in.TokenIn, in.AmountIn)
	case TypeSwap:
		return s.engine.Swap(ctx, in.PoolID, in.TokenIn, in.AmountIn)
	case TypeAddLiquidity:
		return s.engine.AddLiquidity(ctx, in.PoolID, in.AmountA, in.AmountB)
	case TypeRemoveLiquidity:
		return s.engine.RemoveLiquidity(ctx, in.PoolID, in.Fraction)
	case TypeCreateToken:
		return s.engine.CreateToken(ctx, in.Symbol, in.Emoji)
	case TypePlaceBid:
		return s.engine.PlaceBid(ctx, in.BlockID, in.PriceCap, in.MaxSpend)
	default:
		return nil, fmt.Errorf("unknown message type %q", in.Type)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
