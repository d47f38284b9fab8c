// Package events fans session changes out to interested subscribers.
package events

import (
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/vazadinhas/internal/model"
)

const subscriberBuffer = 8

// Broker delivers session events to per-user subscribers. Publishing never
// blocks: a subscriber that falls behind misses events rather than stalling sign-in.
type Broker struct {
	mu     sync.Mutex
	next   uint64
	subs   map[uuid.UUID]map[uint64]chan model.SessionEvent
	closed bool
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uuid.UUID]map[uint64]chan model.SessionEvent)}
}

// Subscribe registers interest in events of userID. The returned cancel func
// unregisters and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(userID uuid.UUID) (<-chan model.SessionEvent, func()) {
	ch := make(chan model.SessionEvent, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.next++
	id := b.next
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[uint64]chan model.SessionEvent)
	}
	b.subs[userID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[userID][id]; ok {
				delete(b.subs[userID], id)
				if len(b.subs[userID]) == 0 {
					delete(b.subs, userID)
				}
				close(c)
			}
		})
	}
}

// Publish delivers ev to every current subscriber of ev.UserID and reports
// how many received it.
func (b *Broker) Publish(ev model.SessionEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
			n++
		default:
		}
	}
	return n
}

// Close drops all subscribers and closes their channels.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for uid, m := range b.subs {
		for _, ch := range m {
			close(ch)
		}
		delete(b.subs, uid)
	}
}
