package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mercadolp/internal/aggregate"
	"mercadolp/internal/claim"
	"mercadolp/internal/game"
	"mercadolp/internal/mission"
	"mercadolp/internal/model"
)

type statusReport struct {
	Player      model.Player              `json:"player"`
	Block       uint64                    `json:"block"`
	Progress    float64                   `json:"levelProgress"`
	NextLevelXP int                       `json:"nextLevelXp"`
	Advice      mission.Advice            `json:"advice"`
	Stats       []aggregate.WindowMetrics `json:"stats,omitempty"`
	Pool        *aggregate.WindowMetrics  `json:"pool,omitempty"`
	History     []aggregate.WindowMetrics `json:"history,omitempty"`
	Claim       claim.Snapshot            `json:"claim"`
	Eligible    bool                      `json:"claimEligible"`
	Ticket      *claim.Ticket             `json:"ticket,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, tuning, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	wallet, _ := cmd.Flags().GetString("wallet")
	claimLevel, _ := cmd.Flags().GetInt("claim-level")
	poolID, _ := cmd.Flags().GetString("pool")

	gateway, closeSave, err := openGateway(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSave()

	var stateStore aggregate.StateStore
	if cfg.AggregateState != "" {
		stateStore = &aggregate.FileStateStore{Path: cfg.AggregateState}
	}
	agg := aggregate.NewAggregator(aggregate.Config{StateStore: stateStore}, logger.Named("aggregate"))
	if err := agg.Load(cmd.Context()); err != nil {
		logger.Warn("load pool statistics", zap.Error(err))
	}

	engine := game.New(game.Options{
		Tuning:     tuning,
		PlayerID:   cfg.PlayerID,
		Gateway:    gateway,
		Aggregator: agg,
	}, logger.Named("game"))

	var report statusReport
	err = withEngine(cmd.Context(), engine, func(ctx context.Context) error {
		state, err := engine.Snapshot(ctx)
		if err != nil {
			return err
		}
		advice, err := engine.Advice(ctx)
		if err != nil {
			return err
		}

		report.Player = state.Player
		report.Block = state.Block
		report.Progress = engine.Progress().Progress(state.Player)
		report.NextLevelXP = engine.Progress().Curve().XPForLevel(state.Player.Level + 1)
		report.Advice = advice
		report.Stats = engine.Stats()
		report.Claim = claim.Build(state)
		report.Eligible = report.Claim.Eligible(claimLevel)
		if wallet != "" {
			ticket, err := report.Claim.Ticket(wallet)
			if err != nil {
				return err
			}
			report.Ticket = &ticket
		}
		return nil
	})
	if err != nil {
		return err
	}
	if poolID != "" {
		if m, ok := agg.Pool(poolID); ok {
			report.Pool = &m
		}
		report.History = agg.History(poolID)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
