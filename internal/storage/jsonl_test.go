package storage

import (
	"path/filepath"
	"testing"

	"mercadolp/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")
	s := NewJsonlStorage(path)

	if err := s.PutEvents([]model.Event{{Seq: 1, Type: model.EventSwapCompleted, PoolID: "fresa-uva", Amount: 9.5}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutEvents(nil); err != nil {
		t.Fatalf("put empty: %v", err)
	}
	if err := s.PutEvents([]model.Event{{Seq: 2, Type: model.EventLevelUp, Level: 2}}); err != nil {
		t.Fatalf("put: %v", err)
	}

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].PoolID != "fresa-uva" || events[0].Amount != 9.5 {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != model.EventLevelUp || events[1].Level != 2 {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}
