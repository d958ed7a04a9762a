package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mercadolp/internal/aggregate"
	"mercadolp/internal/cloudsync"
	"mercadolp/internal/game"
	"mercadolp/internal/metrics"
	"mercadolp/internal/storage"
	"mercadolp/internal/storage/postgres"
	"mercadolp/internal/transport/ws"
)

func runPlay(cmd *cobra.Command, _ []string) error {
	cfg, tuning, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	npcs, err := roster(tuning, cfg.NPCs)
	if err != nil {
		return err
	}
	windowSeconds := uint64(cfg.AggregateWindow.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("aggregate window must be at least 1s")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, closeSave, err := openGateway(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSave()

	m := metrics.New("mercado")

	var stateStore aggregate.StateStore
	if cfg.AggregateState != "" {
		stateStore = &aggregate.FileStateStore{Path: cfg.AggregateState}
	}
	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		StateStore:    stateStore,
	}, logger.Named("aggregate"))
	if err := agg.Load(ctx); err != nil {
		logger.Warn("load pool statistics", zap.Error(err))
	}

	var sink storage.EventSink
	if cfg.EventLog != "" {
		sink = storage.NewJsonlStorage(cfg.EventLog)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	engine := game.New(game.Options{
		Tuning:        tuning,
		PlayerID:      cfg.PlayerID,
		Gateway:       gateway,
		Sink:          sink,
		Metrics:       m,
		Aggregator:    agg,
		Roster:        npcs,
		Seed:          seed,
		NPCTick:       cfg.NPCTick,
		BlockInterval: tuning.Auction.BlockInterval,
	}, logger.Named("game"))

	var servers []*http.Server
	if cfg.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", ws.NewServer(engine, logger.Named("ws")).Handler())
		servers = append(servers, serve(cfg.Listen, mux, logger))
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		servers = append(servers, serve(cfg.MetricsAddr, mux, logger))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
	}()

	if cfg.SyncEnabled() {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}

		syncer := cloudsync.NewSyncer(cloudsync.RunConfig{
			UserID:            cfg.UserID,
			CheckpointPath:    cfg.SyncCheckpoint,
			CheckpointEnabled: cfg.SyncCheckpoint != "",
			MaxRetries:        cfg.MaxRetries,
			RetryBackoff:      cfg.RetryBackoff,
		}, store, logger.Named("cloudsync"))
		events, cancel := engine.Subscribe(256)
		defer cancel()
		go func() {
			if err := syncer.Run(ctx, events); err != nil {
				logger.Warn("milestone sync stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("play start",
		zap.String("player", cfg.PlayerID),
		zap.String("save_backend", cfg.SaveBackend),
		zap.String("listen", cfg.Listen),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.Duration("npc_tick", cfg.NPCTick),
		zap.Int("npcs", len(npcs)),
		zap.Bool("sync", cfg.SyncEnabled()),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serve(addr string, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
