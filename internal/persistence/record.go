package persistence

import (
	"github.com/santhosh-tekuri/jsonschema/v5"

	"mercadolp/internal/model"
)

// Record is the stored snapshot layout.
type Record struct {
	Version      string          `json:"version"`
	Player       model.Player    `json:"player"`
	Pools        []model.Pool    `json:"pools"`
	Tokens       []model.Token   `json:"tokens"`
	Auctions     []model.Auction `json:"auctions"`
	CurrentLevel int             `json:"currentLevel"`
	ShowMap      bool            `json:"showMap"`
	Block        uint64          `json:"block"`
	LastSaved    int64           `json:"lastSaved"`
}

func newRecord(version string, s *model.State, savedAt int64) Record {
	return Record{
		Version:      version,
		Player:       s.Player,
		Pools:        s.Pools,
		Tokens:       s.Tokens,
		Auctions:     s.Auctions,
		CurrentLevel: s.CurrentLevel,
		ShowMap:      s.ShowMap,
		Block:        s.Block,
		LastSaved:    savedAt,
	}
}

func (r Record) state() *model.State {
	return &model.State{
		Player:       r.Player,
		Pools:        r.Pools,
		Tokens:       r.Tokens,
		Auctions:     r.Auctions,
		CurrentLevel: r.CurrentLevel,
		ShowMap:      r.ShowMap,
		Block:        r.Block,
	}
}

const recordSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "player", "pools", "tokens", "currentLevel", "showMap", "lastSaved"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "player": {
      "type": "object",
      "required": ["id", "swapCount", "xp", "level"],
      "properties": {
        "id": {"type": "string"},
        "inventory": {"type": ["object", "null"], "additionalProperties": {"type": "number"}},
        "swapCount": {"type": "integer", "minimum": 0},
        "xp": {"type": "integer", "minimum": 0},
        "level": {"type": "integer", "minimum": 0},
        "badges": {"type": ["array", "null"], "items": {"type": "string"}},
        "lpPositions": {
          "type": ["array", "null"],
          "items": {"type": "object", "required": ["poolId", "shareOfPool"]}
        }
      }
    },
    "pools": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id", "tokenA", "tokenB", "reserveA", "reserveB"],
        "properties": {
          "reserveA": {"type": "number"},
          "reserveB": {"type": "number"}
        }
      }
    },
    "tokens": {
      "type": ["array", "null"],
      "items": {"type": "object", "required": ["id", "symbol"]}
    },
    "auctions": {"type": ["array", "null"]},
    "currentLevel": {"type": "integer"},
    "showMap": {"type": "boolean"},
    "block": {"type": "integer", "minimum": 0},
    "lastSaved": {"type": "integer"}
  }
}`

var recordSchema = jsonschema.MustCompileString("mercado-save.schema.json", recordSchemaJSON)
