package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercadolp/internal/model"
)

func sampleState() *model.State {
	price := 4.0
	return &model.State{
		Player: model.Player{
			ID:          "player",
			Inventory:   map[string]float64{"fresa": 12.5, "uva": 3},
			SwapCount:   4,
			LPPositions: []model.LiquidityPosition{{PoolID: "fresa-uva", OwnerID: "player", ShareOfPool: 0.25, DepositedA: 10, DepositedB: 5}},
			Level:       2,
			XP:          140,
			Badges:      []string{"first-swap"},
			Stats:       model.PlayerStats{AuctionBidsPlaced: 1, LastActiveDay: "2026-01-02"},
		},
		Pools:  []model.Pool{{ID: "fresa-uva", TokenA: "fresa", TokenB: "uva", ReserveA: 40, ReserveB: 20, CreatedBy: "system"}},
		Tokens: []model.Token{{ID: "fresa", Symbol: "FRESA", Emoji: "🍓", IsBaseToken: true}, {ID: "uva", Symbol: "UVA", Emoji: "🍇", IsBaseToken: true}},
		Auctions: []model.Auction{{
			BlockID: 3, TokenID: "fresa", PayTokenID: "uva", Supply: 20,
			Bids:          []model.Bid{{BidderID: "player", PriceCap: 5, MaxSpend: 50, Timestamp: 1}},
			ClearingPrice: &price,
			Allocations:   []model.Allocation{{BidderID: "player", Quantity: 10, Cost: 40}},
			Cleared:       true,
		}},
		CurrentLevel: 2,
		ShowMap:      true,
		Block:        4,
	}
}

func TestRoundTrip(t *testing.T) {
	for name, kv := range map[string]KV{
		"memory": NewMemoryKV(),
		"file":   &FileKV{Dir: t.TempDir()},
	} {
		t.Run(name, func(t *testing.T) {
			g := NewGateway(kv, Options{}, nil)
			want := sampleState()
			require.True(t, g.Save(want))
			assert.Equal(t, want, g.Load())
		})
	}
}

func TestRoundTripSQLite(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "save.db"))
	require.NoError(t, err)
	defer kv.Close()

	g := NewGateway(kv, Options{}, nil)
	want := sampleState()
	require.True(t, g.Save(want))
	want.Player.XP = 200
	require.True(t, g.Save(want))
	assert.Equal(t, want, g.Load())
	require.True(t, g.Clear())
	assert.Nil(t, g.Load())
}

func TestLoadVersionMismatchClearsRecord(t *testing.T) {
	kv := NewMemoryKV()
	old := NewGateway(kv, Options{Version: "1.0"}, nil)
	require.True(t, old.Save(sampleState()))

	current := NewGateway(kv, Options{Version: "2.0"}, nil)
	assert.Equal(t, "2.0", current.Version())
	assert.Nil(t, current.Load())

	_, found, err := kv.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadRejectsMalformedRecord(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, DefaultKey, []byte(`{"version":"2.0","player":{"id":"p"}}`)))

	g := NewGateway(kv, Options{}, nil)
	assert.Nil(t, g.Load())
	_, found, _ := kv.Get(ctx, DefaultKey)
	assert.False(t, found)

	require.NoError(t, kv.Put(ctx, DefaultKey, []byte(`not json`)))
	assert.Nil(t, g.Load())
}

func TestLoadEmpty(t *testing.T) {
	g := NewGateway(NewMemoryKV(), Options{}, nil)
	assert.Nil(t, g.Load())
	assert.True(t, g.Clear())
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk gone")
}
func (brokenKV) Put(context.Context, string, []byte) error { return errors.New("disk gone") }
func (brokenKV) Delete(context.Context, string) error      { panic("unexpected") }

func TestStorageFailuresAreContained(t *testing.T) {
	g := NewGateway(brokenKV{}, Options{}, nil)
	assert.False(t, g.Save(sampleState()))
	assert.Nil(t, g.Load())
	assert.False(t, g.Clear())
	assert.False(t, g.Save(nil))
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "backup", "save.zst")

	src := NewGateway(NewMemoryKV(), Options{}, nil)
	require.True(t, src.Save(sampleState()))
	require.NoError(t, src.Export(backup))

	dst := NewGateway(&FileKV{Dir: dir}, Options{}, nil)
	got, err := dst.Import(backup)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)
	assert.Equal(t, sampleState(), dst.Load())

	other := NewGateway(NewMemoryKV(), Options{Version: "3.0"}, nil)
	_, err = other.Import(backup)
	assert.ErrorIs(t, err, errDiscarded)
}
