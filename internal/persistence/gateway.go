package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mercadolp/internal/model"
)

const (
	DefaultKey     = "mercado-lp-save"
	CurrentVersion = "2.0"
)

// errDiscarded marks a stored record that was rejected and should be removed.
var errDiscarded = errors.New("stored record discarded")

// Options configures a Gateway.
type Options struct {
	Key     string
	Version string
	Timeout time.Duration
}

// Gateway saves and loads the game snapshot. Its methods never panic and
// never return storage errors: failures are logged and reported as false/nil.
type Gateway struct {
	kv      KV
	key     string
	version string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewGateway builds a Gateway over kv.
func NewGateway(kv KV, opts Options, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Version == "" {
		opts.Version = CurrentVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Gateway{
		kv:      kv,
		key:     opts.Key,
		version: opts.Version,
		timeout: opts.Timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Version returns the schema version this gateway reads and writes.
func (g *Gateway) Version() string {
	return g.version
}

// Save overwrites the stored snapshot with state.
func (g *Gateway) Save(state *model.State) (ok bool) {
	defer g.contain("save", &ok)
	if state == nil {
		return false
	}
	data, err := json.Marshal(newRecord(g.version, state, g.now().UnixMilli()))
	if err != nil {
		g.fail("save", fmt.Errorf("marshal record: %w", err))
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.kv.Put(ctx, g.key, data); err != nil {
		g.fail("save", err)
		return false
	}
	return true
}

// Load returns the stored snapshot, or nil when there is none. A record with
// another version or an invalid shape is deleted and nil is returned.
func (g *Gateway) Load() (state *model.State) {
	defer g.contain("load", nil)

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	data, found, err := g.kv.Get(ctx, g.key)
	if err != nil {
		g.fail("load", err)
		return nil
	}
	if !found {
		return nil
	}

	rec, err := g.decode(data)
	if err != nil {
		if errors.Is(err, errDiscarded) {
			g.logger.Warn("discarding stored snapshot", zap.String("key", g.key), zap.Error(err))
			if derr := g.kv.Delete(ctx, g.key); derr != nil {
				g.fail("load", derr)
			}
		} else {
			g.fail("load", err)
		}
		return nil
	}
	return rec.state()
}

// Clear deletes the stored snapshot.
func (g *Gateway) Clear() (ok bool) {
	defer g.contain("clear", &ok)

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.kv.Delete(ctx, g.key); err != nil {
		g.fail("clear", err)
		return false
	}
	return true
}

// decode validates raw against the record schema and the expected version.
func (g *Gateway) decode(raw []byte) (Record, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Record{}, fmt.Errorf("%w: parse: %v", errDiscarded, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Record{}, fmt.Errorf("%w: not an object", errDiscarded)
	}
	if v, _ := obj["version"].(string); v != g.version {
		return Record{}, fmt.Errorf("%w: version %q, want %q", errDiscarded, v, g.version)
	}
	if err := recordSchema.Validate(doc); err != nil {
		return Record{}, fmt.Errorf("%w: %v", errDiscarded, err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: decode: %v", errDiscarded, err)
	}
	return rec, nil
}

func (g *Gateway) fail(op string, err error) {
	err = fmt.Errorf("%w: %s: %v", model.ErrStorageUnavailable, op, err)
	g.logger.Error("persistence failed", zap.String("op", op), zap.String("key", g.key), zap.Error(err))
}

func (g *Gateway) contain(op string, ok *bool) {
	if r := recover(); r != nil {
		g.fail(op, fmt.Errorf("panic: %v", r))
		if ok != nil {
			*ok = false
		}
	}
}
