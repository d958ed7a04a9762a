package npc

import (
	"sync"

	"mercadolp/internal/model"
)

// Feed is a capped ring buffer of NPC activity, newest first.
type Feed struct {
	mu    sync.RWMutex
	items []model.NPCActivity
	next  int
	full  bool
}

// NewFeed builds a Feed holding at most capacity entries.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 50
	}
	return &Feed{items: make([]model.NPCActivity, capacity)}
}

// Push appends an entry, evicting the oldest when full.
func (f *Feed) Push(entries ...model.NPCActivity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.items[f.next] = e
		f.next = (f.next + 1) % len(f.items)
		if f.next == 0 {
			f.full = true
		}
	}
}

// Len returns the number of stored entries.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.full {
		return len(f.items)
	}
	return f.next
}

// List returns up to limit entries, most recent first. limit <= 0 means all.
func (f *Feed) List(limit int) []model.NPCActivity {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := f.next
	if f.full {
		n = len(f.items)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.NPCActivity, 0, limit)
	idx := f.next
	for i := 0; i < limit; i++ {
		idx = (idx - 1 + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}
