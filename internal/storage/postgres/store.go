package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercadolp/internal/model"
)

// Store provides Postgres persistence for synced milestones.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables the store writes to.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS player_milestones (
			user_id     TEXT        NOT NULL,
			kind        TEXT        NOT NULL,
			level       INTEGER     NOT NULL,
			xp          INTEGER     NOT NULL,
			seq         BIGINT      NOT NULL,
			reached_at  TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, kind, level)
		);
		CREATE TABLE IF NOT EXISTS sync_state (
			name        TEXT        PRIMARY KEY,
			last_seq    BIGINT      NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// UpsertMilestones inserts or updates milestones keyed by user, kind and level.
func (s *Store) UpsertMilestones(ctx context.Context, milestones []model.Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range milestones {
		batch.Queue(`
			INSERT INTO player_milestones (
				user_id, kind, level, xp, seq, reached_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (user_id, kind, level)
			DO UPDATE SET
				xp = GREATEST(player_milestones.xp, EXCLUDED.xp),
				seq = GREATEST(player_milestones.seq, EXCLUDED.seq),
				reached_at = LEAST(player_milestones.reached_at, EXCLUDED.reached_at),
				updated_at = now()
		`,
			m.UserID,
			m.Kind,
			m.Level,
			m.XP,
			int64(m.Seq),
			m.ReachedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range milestones {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadCursor returns the last synced sequence for a name.
func (s *Store) LoadCursor(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("cursor name required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq FROM sync_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

// SaveCursor upserts the last synced sequence for a name.
func (s *Store) SaveCursor(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("cursor name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_state (name, last_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq, updated_at = now()
	`, name, int64(seq))
	return err
}
