package cloudsync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mercadolp/internal/model"
)

type fakeStore struct {
	upserts   [][]model.Milestone
	cursor    uint64
	failTimes int
}

func (f *fakeStore) UpsertMilestones(ctx context.Context, m []model.Milestone) error {
	if f.failTimes > 0 {
		f.failTimes--
		return errors.New("connection refused")
	}
	f.upserts = append(f.upserts, append([]model.Milestone(nil), m...))
	return nil
}

func (f *fakeStore) LoadCursor(ctx context.Context, name string) (uint64, bool, error) {
	return f.cursor, f.cursor > 0, nil
}

func (f *fakeStore) SaveCursor(ctx context.Context, name string, seq uint64) error {
	f.cursor = seq
	return nil
}

func TestMilestoneFromEvent(t *testing.T) {
	m, ok := MilestoneFromEvent("u1", model.Event{Seq: 4, Type: model.EventLevelUp, Level: 3, Amount: 300, Timestamp: 1000})
	if !ok || m.Kind != "level_up" || m.Level != 3 || m.XP != 300 || m.UserID != "u1" {
		t.Fatalf("unexpected milestone: %+v", m)
	}
	m, ok = MilestoneFromEvent("u1", model.Event{Type: model.EventPrompt, Detail: "nft_eligible", Level: 10})
	if !ok || m.Kind != "nft_eligible" {
		t.Fatalf("unexpected prompt milestone: %+v", m)
	}
	if _, ok := MilestoneFromEvent("u1", model.Event{Type: model.EventSwapCompleted}); ok {
		t.Fatalf("swap events are not milestones")
	}
}

func TestFlushRetriesAndAdvancesCursor(t *testing.T) {
	store := &fakeStore{failTimes: 1}
	path := filepath.Join(t.TempDir(), "sync.json")
	s := NewSyncer(RunConfig{
		UserID: "u1", CheckpointPath: path, CheckpointEnabled: true,
		MaxRetries: 2, RetryBackoff: time.Millisecond,
	}, store, nil)

	s.Handle(model.Event{Type: model.EventLevelUp, Level: 2})
	s.Handle(model.Event{Type: model.EventLevelUp, Level: 3})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(store.upserts) != 1 || len(store.upserts[0]) != 2 {
		t.Fatalf("unexpected upserts: %+v", store.upserts)
	}
	if store.cursor != 3 {
		t.Fatalf("cursor = %d, want 3", store.cursor)
	}

	cp, ok, err := NewCheckpointStore(path, true).Load()
	if err != nil || !ok || cp.LastSyncedLevel != 3 {
		t.Fatalf("checkpoint = %+v, ok = %v, err = %v", cp, ok, err)
	}

	if s.Handle(model.Event{Type: model.EventLevelUp, Level: 2}) {
		t.Fatalf("levels below the cursor must be skipped")
	}
	if !s.Handle(model.Event{Type: model.EventPrompt, Detail: "sync_prompt", Level: 3}) {
		t.Fatalf("prompt at the cursor level must be queued")
	}
}

func TestFlushFailureKeepsPending(t *testing.T) {
	store := &fakeStore{failTimes: 10}
	s := NewSyncer(RunConfig{UserID: "u1", MaxRetries: 1, RetryBackoff: time.Millisecond}, store, nil)
	s.Handle(model.Event{Type: model.EventLevelUp, Level: 2})

	if err := s.Flush(context.Background()); err == nil {
		t.Fatalf("expected flush error")
	}
	if s.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", s.Pending())
	}
}

func TestRunDrainsUntilClosed(t *testing.T) {
	store := &fakeStore{cursor: 2}
	s := NewSyncer(RunConfig{UserID: "u1", FlushInterval: time.Hour}, store, nil)

	events := make(chan model.Event, 4)
	events <- model.Event{Type: model.EventLevelUp, Level: 1}
	events <- model.Event{Type: model.EventSwapCompleted}
	events <- model.Event{Type: model.EventLevelUp, Level: 4}
	close(events)

	if err := s.Run(context.Background(), events); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.upserts) != 1 || len(store.upserts[0]) != 1 || store.upserts[0][0].Level != 4 {
		t.Fatalf("unexpected upserts: %+v", store.upserts)
	}
}

func TestRetryStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := newRetryPolicy(5, 10*time.Millisecond, nil).do(ctx, "test", func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := newRetryPolicy(2, time.Millisecond, nil).do(context.Background(), "test", func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}
