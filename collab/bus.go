package collab

import (
	"sync"

	"github.com/docketly/docketly-api/models"
)

// EventFunc consumes a collaboration event delivered through the bus
type EventFunc func(models.CollabEvent)

type subscription struct {
	id int
	fn EventFunc
}

// Bus is an in-process publish/subscribe fan-out from the transport to
// arbitrary consumers (cursor renderer, edit listeners). Delivery is
// synchronous in registration order.
type Bus struct {
	mu   sync.Mutex
	next int
	subs []subscription
}

// NewBus returns an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes exactly this
// registration. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(fn EventFunc) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish invokes all currently-registered callbacks with event, in
// registration order. The subscriber list is snapshotted first, so a callback
// that unsubscribes itself (or others) mid-round cannot corrupt delivery to
// the remaining callbacks of the same round.
func (b *Bus) Publish(event models.CollabEvent) {
	b.mu.Lock()
	round := make([]subscription, len(b.subs))
	copy(round, b.subs)
	b.mu.Unlock()

	for _, s := range round {
		s.fn(event)
	}
}

// Len returns the number of active subscriptions
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
