package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mercadolp/internal/config"
	"mercadolp/internal/model"
	"mercadolp/internal/npc"
	"mercadolp/internal/persistence"
)

func main() {
	root := &cobra.Command{
		Use:          "mercado",
		Short:        "Mercado LP market simulation",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Run the market with NPC traders and a websocket client endpoint",
		RunE:  runPlay,
	}
	addSaveFlags(playCmd.Flags())
	playCmd.Flags().String("listen", ":8080", "websocket listen address (empty disables)")
	playCmd.Flags().String("metrics-addr", "", "prometheus listen address (empty disables)")
	playCmd.Flags().Duration("npc-tick", 2*time.Second, "NPC scheduling interval (0 disables)")
	playCmd.Flags().StringSlice("npcs", nil, "NPC ids to enable (comma-separated, default all)")
	playCmd.Flags().Uint64("seed", 0, "NPC random seed (0 means time-based)")
	playCmd.Flags().String("event-log", "", "optional JSONL event log path")
	playCmd.Flags().Duration("aggregate-window", time.Hour, "pool statistics window")
	playCmd.Flags().String("aggregate-state", "./data/windows.json", "pool statistics state file")
	playCmd.Flags().String("user-id", "", "authenticated user id for milestone sync")
	playCmd.Flags().String("pg-dsn", "", "Postgres DSN for milestone sync")
	playCmd.Flags().String("sync-checkpoint", "./data/sync.json", "milestone sync checkpoint file")
	playCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	playCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	root.AddCommand(playCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a deterministic simulation without touching the saved game",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().String("tuning", "", "tuning.yaml path")
	simulateCmd.Flags().Int("ticks", 100, "NPC ticks to run")
	simulateCmd.Flags().Duration("step", 5*time.Second, "simulated time between ticks")
	simulateCmd.Flags().Int("block-every", 6, "advance the block clock every N ticks (0 disables)")
	simulateCmd.Flags().Uint64("seed", 1, "NPC random seed")
	simulateCmd.Flags().StringSlice("npcs", nil, "NPC ids to enable (comma-separated, default all)")
	simulateCmd.Flags().String("event-log", "", "optional JSONL event log path")
	simulateCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against the saved game",
		RunE:  runQuote,
	}
	addSaveFlags(quoteCmd.Flags())
	quoteCmd.Flags().String("pool", "", "pool id (e.g. manzana-platano)")
	quoteCmd.Flags().String("token-in", "", "input token id")
	quoteCmd.Flags().Float64("amount", 0, "input amount")
	root.AddCommand(quoteCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show player progress, mission advice and pool statistics",
		RunE:  runStatus,
	}
	addSaveFlags(statusCmd.Flags())
	statusCmd.Flags().String("aggregate-state", "./data/windows.json", "pool statistics state file")
	statusCmd.Flags().String("wallet", "", "wallet address for an NFT claim ticket")
	statusCmd.Flags().Int("claim-level", 10, "minimum level for the NFT claim")
	statusCmd.Flags().String("pool", "", "pool id to report window history for")
	root.AddCommand(statusCmd)

	root.AddCommand(newSaveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSaveFlags(flags *pflag.FlagSet) {
	flags.String("player-id", "player", "player id for a new game")
	flags.String("save-backend", "file", "save backend (file, sqlite, memory)")
	flags.String("save-dir", "./data", "directory for the file backend")
	flags.String("save-db", "./data/mercado.db", "database path for the sqlite backend")
	flags.String("save-key", persistence.DefaultKey, "storage key of the saved game")
	flags.String("save-version", persistence.CurrentVersion, "schema version of the saved game")
	flags.String("tuning", "", "tuning.yaml path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command) (config.Config, config.Tuning, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, config.Tuning{}, nil, err
	}
	tuning, err := config.LoadTuning(cfg.Tuning)
	if err != nil {
		return config.Config{}, config.Tuning{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, config.Tuning{}, nil, err
	}
	return cfg, tuning, logger, nil
}

// openGateway opens the configured save backend. The returned func releases it.
func openGateway(cfg config.Config, logger *zap.Logger) (*persistence.Gateway, func(), error) {
	var kv persistence.KV
	closer := func() {}
	switch cfg.SaveBackend {
	case "sqlite":
		db, err := persistence.OpenSQLite(cfg.SaveDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open save db: %w", err)
		}
		kv = db
		closer = func() { _ = db.Close() }
	case "memory":
		kv = persistence.NewMemoryKV()
	default:
		kv = &persistence.FileKV{Dir: cfg.SaveDir}
	}

	gw := persistence.NewGateway(kv, persistence.Options{
		Key:     cfg.SaveKey,
		Version: cfg.SaveVersion,
	}, logger.Named("persistence"))
	return gw, closer, nil
}

// roster returns the tuned roster restricted to ids. An empty ids keeps all.
func roster(t config.Tuning, ids []string) ([]model.NPCTrader, error) {
	all := t.NPC.Roster
	if len(all) == 0 {
		all = npc.DefaultRoster()
	}
	if len(ids) == 0 {
		return all, nil
	}

	byID := make(map[string]model.NPCTrader, len(all))
	for _, n := range all {
		byID[n.ID] = n
	}
	out := make([]model.NPCTrader, 0, len(ids))
	for _, id := range ids {
		n, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown npc %q", id)
		}
		out = append(out, n)
	}
	return out, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
