package game

import (
	"sync"
	"time"

	"mercadolp/internal/model"
)

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan model.Event
	nextID int
	seq    uint64
	onDrop func()
	now    func() time.Time
}

// NewBus builds a Bus. onDrop may be nil.
func NewBus(onDrop func()) *Bus {
	return &Bus{subs: make(map[int]chan model.Event), onDrop: onDrop, now: time.Now}
}

// Subscribe returns a channel of future events and a cancel func that closes it.
func (b *Bus) Subscribe(buffer int) (<-chan model.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan model.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish stamps ev with the next sequence number and delivers it.
func (b *Bus) Publish(ev model.Event) model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev.Seq = b.seq
	if ev.Timestamp == 0 {
		ev.Timestamp = b.now().UnixMilli()
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
	return ev
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
