// Package cloudsync mirrors terminal progression milestones to Postgres.
package cloudsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mercadolp/internal/model"
)

// MilestoneStore is the remote side of the sync. storage/postgres.Store
// satisfies it.
type MilestoneStore interface {
	UpsertMilestones(ctx context.Context, milestones []model.Milestone) error
	LoadCursor(ctx context.Context, name string) (uint64, bool, error)
	SaveCursor(ctx context.Context, name string, seq uint64) error
}

// RunConfig holds runtime settings for the syncer.
type RunConfig struct {
	UserID            string
	BatchSize         int
	FlushInterval     time.Duration
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Syncer consumes engine events and upserts milestones. Failures are logged;
// they never reach the game.
type Syncer struct {
	cfg        RunConfig
	store      MilestoneStore
	logger     *zap.Logger
	checkpoint *CheckpointStore
	retry      retryPolicy
	pending    []model.Milestone
	lastLevel  int
}

// NewSyncer builds a Syncer with its dependencies.
func NewSyncer(cfg RunConfig, store MilestoneStore, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &Syncer{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		retry:      newRetryPolicy(cfg.MaxRetries, cfg.RetryBackoff, logger),
	}
}

func (s *Syncer) cursorName() string {
	return "milestones:" + s.cfg.UserID
}

// Resume loads the last synced level from the local checkpoint and the
// remote cursor, keeping the higher one.
func (s *Syncer) Resume(ctx context.Context) error {
	cp, ok, err := s.checkpoint.Load()
	if err != nil {
		return err
	}
	if ok && cp.UserID == s.cfg.UserID {
		s.lastLevel = cp.LastSyncedLevel
	}

	var remote uint64
	err = s.retry.do(ctx, "load_cursor", func(ctx context.Context) error {
		var err error
		remote, _, err = s.store.LoadCursor(ctx, s.cursorName())
		return err
	})
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	if int(remote) > s.lastLevel {
		s.lastLevel = int(remote)
	}
	s.logger.Info("resume milestone sync", zap.String("user", s.cfg.UserID), zap.Int("last_level", s.lastLevel))
	return nil
}

// Run consumes events until ctx is done or events is closed.
func (s *Syncer) Run(ctx context.Context, events <-chan model.Event) error {
	if s.store == nil {
		return fmt.Errorf("milestone store is nil")
	}
	if s.cfg.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if err := s.Resume(ctx); err != nil {
		s.logger.Warn("resume failed, syncing from scratch", zap.Error(err))
	}

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			s.flushLogged(flushCtx)
			cancel()
			return nil
		case ev, ok := <-events:
			if !ok {
				s.flushLogged(ctx)
				return nil
			}
			s.Handle(ev)
			if len(s.pending) >= s.cfg.BatchSize {
				s.flushLogged(ctx)
			}
		case <-ticker.C:
			s.flushLogged(ctx)
		}
	}
}

// Handle queues the milestone carried by ev, if any.
func (s *Syncer) Handle(ev model.Event) bool {
	m, ok := MilestoneFromEvent(s.cfg.UserID, ev)
	if !ok || m.Level < s.lastLevel {
		return false
	}
	s.pending = append(s.pending, m)
	return true
}

// Pending returns the number of queued milestones.
func (s *Syncer) Pending() int {
	return len(s.pending)
}

// Flush upserts queued milestones and advances both cursors.
func (s *Syncer) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	batch := s.pending
	err := s.retry.do(ctx, "upsert_milestones", func(ctx context.Context) error {
		err := s.store.UpsertMilestones(ctx, batch)
		if err != nil {
			s.logger.Warn("upsert milestones failed", zap.Error(err), zap.Int("count", len(batch)))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert milestones: %w", err)
	}

	top := s.lastLevel
	for _, m := range batch {
		if m.Level > top {
			top = m.Level
		}
	}
	s.pending = nil
	s.lastLevel = top

	if err := s.checkpoint.Save(s.cfg.UserID, top); err != nil {
		return err
	}
	if err := s.store.SaveCursor(ctx, s.cursorName(), uint64(top)); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	s.logger.Info("milestones synced", zap.Int("count", len(batch)), zap.Int("level", top))
	return nil
}

func (s *Syncer) flushLogged(ctx context.Context) {
	if err := s.Flush(ctx); err != nil {
		s.logger.Warn("milestone sync failed", zap.Error(err), zap.Int("pending", len(s.pending)))
	}
}

// MilestoneFromEvent maps level-up and prompt events to milestones.
func MilestoneFromEvent(userID string, ev model.Event) (model.Milestone, bool) {
	var kind string
	switch ev.Type {
	case model.EventLevelUp:
		kind = "level_up"
	case model.EventPrompt:
		kind = ev.Detail
	default:
		return model.Milestone{}, false
	}
	if kind == "" {
		return model.Milestone{}, false
	}
	return model.Milestone{
		UserID:    userID,
		Kind:      kind,
		Level:     ev.Level,
		XP:        int(ev.Amount),
		Seq:       ev.Seq,
		ReachedAt: time.UnixMilli(ev.Timestamp).UTC(),
	}, true
}
