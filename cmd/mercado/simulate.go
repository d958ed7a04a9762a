package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mercadolp/internal/aggregate"
	"mercadolp/internal/game"
	"mercadolp/internal/model"
	"mercadolp/internal/storage"
)

type simulateReport struct {
	Ticks    int                       `json:"ticks"`
	Trades   int                       `json:"trades"`
	Block    uint64                    `json:"block"`
	Auctions int                       `json:"auctionsCleared"`
	Pools    []model.Pool              `json:"pools"`
	Stats    []aggregate.WindowMetrics `json:"stats"`
	Recent   []model.NPCActivity       `json:"recentActivity"`
}

// runSimulate drives the engine on a virtual clock against a fresh in-memory
// game, so the same seed always produces the same market.
func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, tuning, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ticks, _ := cmd.Flags().GetInt("ticks")
	step, _ := cmd.Flags().GetDuration("step")
	blockEvery, _ := cmd.Flags().GetInt("block-every")
	if ticks <= 0 {
		return fmt.Errorf("ticks must be positive")
	}
	if step <= 0 {
		return fmt.Errorf("step must be positive")
	}

	npcs, err := roster(tuning, cfg.NPCs)
	if err != nil {
		return err
	}

	var sink storage.EventSink
	if cfg.EventLog != "" {
		sink = storage.NewJsonlStorage(cfg.EventLog)
	}

	// The virtual clock is only advanced between engine calls, each of which
	// hands off through the engine's inbox.
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	engine := game.New(game.Options{
		Tuning:   tuning,
		PlayerID: cfg.PlayerID,
		Sink:     sink,
		Roster:   npcs,
		Seed:     cfg.Seed,
		Clock:    func() time.Time { return now },
	}, logger.Named("game"))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	report := simulateReport{Ticks: ticks}
	for i := 1; i <= ticks; i++ {
		now = now.Add(step)
		acts, err := engine.Tick(ctx)
		if err != nil {
			return err
		}
		report.Trades += len(acts)

		if blockEvery > 0 && i%blockEvery == 0 {
			out, err := engine.AdvanceBlock(ctx)
			if err != nil {
				return err
			}
			report.Auctions += len(out.Cleared)
		}
	}

	state, err := engine.Snapshot(ctx)
	if err != nil {
		return err
	}
	report.Block = state.Block
	report.Pools = state.Pools
	report.Stats = engine.Stats()
	report.Recent = engine.Activity(10)

	cancel()
	<-done

	logger.Info("simulation complete",
		zap.Int("ticks", ticks),
		zap.Int("trades", report.Trades),
		zap.Uint64("block", report.Block),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
