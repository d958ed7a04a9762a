package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"mercadolp/internal/game"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, tuning, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	poolID, _ := cmd.Flags().GetString("pool")
	tokenIn, _ := cmd.Flags().GetString("token-in")
	amount, _ := cmd.Flags().GetFloat64("amount")
	if poolID == "" || tokenIn == "" {
		return fmt.Errorf("pool and token-in are required")
	}

	gateway, closeSave, err := openGateway(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSave()

	engine := game.New(game.Options{Tuning: tuning, PlayerID: cfg.PlayerID, Gateway: gateway}, logger.Named("game"))
	return withEngine(cmd.Context(), engine, func(ctx context.Context) error {
		q, err := engine.Quote(ctx, poolID, tokenIn, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "pool         %s\n", poolID)
		fmt.Fprintf(os.Stdout, "amount in    %s %s\n", fixed(q.AmountIn), tokenIn)
		fmt.Fprintf(os.Stdout, "fee          %s\n", fixed(q.Fee))
		fmt.Fprintf(os.Stdout, "amount out   %s\n", fixed(q.AmountOut))
		fmt.Fprintf(os.Stdout, "spot price   %s\n", fixed(q.SpotPrice))
		fmt.Fprintf(os.Stdout, "exec price   %s\n", fixed(q.ExecutionPrice))
		fmt.Fprintf(os.Stdout, "impact       %s%% (%s)\n", decimal.NewFromFloat(q.PriceImpact*100).StringFixed(2), q.Impact())
		return nil
	})
}

// withEngine runs engine for the duration of fn.
func withEngine(parent context.Context, engine *game.Engine, fn func(ctx context.Context) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		_ = engine.Run(ctx)
		close(done)
	}()
	err := fn(ctx)
	cancel()
	<-done
	return err
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(6)
}
